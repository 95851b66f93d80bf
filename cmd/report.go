package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/shelfscan/internal/export"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <file>",
		Short: "Summarize a saved scan result (json, yaml, or parquet)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := export.ReadFile(args[0])
			if err != nil {
				return err
			}

			s := export.Summarize(result)
			stdout := cmd.OutOrStdout()
			fmt.Fprint(stdout, renderTable(
				[]string{"Scan", "Folder", "Books", "Authors", "Multi-image", "Images", "Sent", "Skipped"},
				[][]string{{
					s.ScanID, s.Folder,
					fmt.Sprint(s.Books), fmt.Sprint(s.Authors), fmt.Sprint(s.MultiImage),
					fmt.Sprint(s.Images), fmt.Sprint(s.Processed), fmt.Sprint(s.Skipped),
				}},
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			fmt.Fprintln(stdout)
			printScan(stdout, result)
			return nil
		},
	}
}
