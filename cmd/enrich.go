package cmd

import (
	"fmt"
	"time"

	"github.com/lehigh-university-libraries/shelfscan/internal/enrichment"
	"github.com/spf13/cobra"
)

func newEnrichCmd(opts *rootOptions) *cobra.Command {
	var title string
	var author string

	cmd := &cobra.Command{
		Use:     "enrich",
		Short:   "Look up ISBN, publisher and date for one book",
		Example: `  shelfscan enrich --title "Dune" --author "Frank Herbert"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			client := enrichment.New(cfg.Enrichment.GoogleBooksKey, time.Duration(cfg.Enrichment.TimeoutSeconds)*time.Second)

			details, err := client.Lookup(cmd.Context(), title, author)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Title", details.Title},
				{"Subtitle", details.Subtitle},
				{"Authors", details.Authors},
				{"ISBN", details.ISBN},
				{"Publisher", details.Publisher},
				{"Published", details.PublicationDate},
				{"Edition", details.Edition},
				{"Source", details.Source},
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Book title")
	cmd.Flags().StringVar(&author, "author", "", "Book author")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}
