package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/shelfscan/internal/library"
	"github.com/spf13/cobra"
)

func newFoldersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List the shelf folders under the library root",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := library.New(opts.cfg.Library.Root)
			folders, err := lib.Folders()
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if len(folders) == 0 {
				fmt.Fprintf(stdout, "No folders under %s\n", lib.Root)
				return nil
			}
			rows := make([][]string, 0, len(folders))
			for _, f := range folders {
				// Folders without images report zero rather than failing the listing
				names, _ := lib.ImageNames(f)
				rows = append(rows, []string{f, fmt.Sprint(len(names))})
			}
			fmt.Fprint(stdout, renderTable([]string{"Folder", "Images"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}
