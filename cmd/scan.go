package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/shelfscan/internal/enrichment"
	"github.com/lehigh-university-libraries/shelfscan/internal/export"
	"github.com/lehigh-university-libraries/shelfscan/internal/library"
	"github.com/lehigh-university-libraries/shelfscan/internal/models"
	"github.com/lehigh-university-libraries/shelfscan/internal/scanning"
	"github.com/spf13/cobra"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	var provider string
	var model string
	var output string
	var format string
	var enrich bool

	cmd := &cobra.Command{
		Use:   "scan <folder>",
		Short: "Detect the books in a folder of shelf photos",
		Long: `Scan every recognized image (HEIC, JPEG, PNG, WebP) in a folder under the
library root and print the books the model found, with the files each was seen in.`,
		Example: `  # Scan a folder with the configured provider
  shelfscan scan "Espana Ct Office"

  # Use a local Ollama model and save the result as parquet
  shelfscan scan "Espana Ct Office" --provider ollama --output scans/office.parquet

  # Look up ISBN and publisher for every detected book
  shelfscan scan "Espana Ct Office" --enrich`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *opts.cfg
			if provider != "" {
				cfg.LLM.Provider = provider
				if model == "" {
					cfg.LLM.Model = ""
				}
			}
			if model != "" {
				cfg.LLM.Model = model
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			svc, err := scanning.NewServiceFromConfig(&cfg, library.New(cfg.Library.Root))
			if err != nil {
				return err
			}

			result, err := svc.ScanFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			printScan(stdout, result)

			if output != "" {
				if err := export.WriteFile(output, format, result); err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Saved to %s\n", output)
			}

			if enrich && len(result.Books) > 0 {
				client := enrichment.New(cfg.Enrichment.GoogleBooksKey, time.Duration(cfg.Enrichment.TimeoutSeconds)*time.Second)
				details := client.EnrichAll(cmd.Context(), result.Books, cfg.Enrichment.Concurrency)
				fmt.Fprintln(stdout)
				printDetails(stdout, details)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (gemini, vertex, openai, or ollama)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults to provider's default)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result to this file")
	cmd.Flags().StringVar(&format, "format", "", "Output format: json, yaml, csv, or parquet (defaults to the file extension)")
	cmd.Flags().BoolVar(&enrich, "enrich", false, "Look up publication details for each detected book")

	return cmd
}

func printScan(w io.Writer, result *models.ScanResult) {
	fmt.Fprintf(w, "Folder: %s\nScan:   %s\nModel:  %s/%s\nImages: %d found, %d sent\n\n",
		result.Folder, result.ScanID, result.Provider, result.Model, result.ImageCount, result.ProcessedCount)

	if len(result.Books) == 0 {
		fmt.Fprintln(w, "No books detected")
	} else {
		rows := make([][]string, 0, len(result.Books))
		for i, b := range result.Books {
			rows = append(rows, []string{strconv.Itoa(i + 1), b.Title, b.Author, strings.Join(b.Sources, ", ")})
		}
		fmt.Fprint(w, renderTable([]string{"#", "Title", "Author", "Sources"}, rows, []columnAlignment{alignRight}))
	}

	if len(result.Skipped) > 0 {
		fmt.Fprintln(w)
		rows := make([][]string, 0, len(result.Skipped))
		for _, s := range result.Skipped {
			rows = append(rows, []string{s.Filename, s.Stage, s.Reason})
		}
		fmt.Fprint(w, renderTable([]string{"Skipped", "Stage", "Reason"}, rows, nil))
	}
}

func printDetails(w io.Writer, details []models.BookDetails) {
	rows := make([][]string, 0, len(details))
	for _, d := range details {
		if d.Error != "" {
			rows = append(rows, []string{d.Title, "", "", "", "", d.Error})
			continue
		}
		rows = append(rows, []string{d.Title, d.Authors, d.ISBN, d.Publisher, d.PublicationDate, d.Source})
	}
	fmt.Fprint(w, renderTable([]string{"Title", "Authors", "ISBN", "Publisher", "Published", "Source"}, rows, nil))
}
