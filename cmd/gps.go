package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/shelfscan/internal/exifgps"
	"github.com/lehigh-university-libraries/shelfscan/internal/library"
	"github.com/spf13/cobra"
)

func newGPSCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "gps <folder>",
		Short: "Show where the photos in a folder were taken",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := library.New(opts.cfg.Library.Root)
			sources, err := lib.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			locations := exifgps.ExtractFolder(sources)
			fmt.Fprintf(stdout, "%d of %d images carry GPS data\n", len(locations), len(sources))
			if len(locations) == 0 {
				return nil
			}

			rows := make([][]string, 0, len(locations))
			for _, l := range locations {
				rows = append(rows, []string{l.FileName, l.Latitude, l.Longitude, l.Altitude, l.DateStamp, l.TimeStamp})
			}
			fmt.Fprint(stdout, renderTable(
				[]string{"File", "Latitude", "Longitude", "Altitude", "Date", "Time"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}
