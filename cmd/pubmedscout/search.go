package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/csheth/pubmedscout/internal/citation"
	"github.com/csheth/pubmedscout/internal/pubmed"
	"github.com/csheth/pubmedscout/internal/searchapi"
)

func newSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search PubMed through the API and print the ranked results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			maxResults, _ := cmd.Flags().GetInt("max-results")
			asJSON, _ := cmd.Flags().GetBool("json")
			asCSL, _ := cmd.Flags().GetBool("csl")

			client := searchapi.New(a.cfg.APIURL, searchapi.WithMaxResults(maxResults))
			papers, err := client.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(papers)
			case asCSL:
				return citation.WriteCSL(out, papers)
			default:
				return writePaperList(out, papers)
			}
		},
	}
	cmd.Flags().Int("max-results", 0, "number of results to request (server default when 0)")
	cmd.Flags().Bool("json", false, "output results as JSON")
	cmd.Flags().Bool("csl", false, "output results as CSL-YAML")
	cmd.MarkFlagsMutuallyExclusive("json", "csl")
	return cmd
}

func writePaperList(w io.Writer, papers []pubmed.Paper) error {
	if len(papers) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	for i, p := range papers {
		authors := strings.Join(p.Authors, ", ")
		if authors == "" {
			authors = "Unknown authors"
		}
		_, err := fmt.Fprintf(w, "%d. %s\n   %s\n   %s • Score: %.2f • %s\n",
			i+1, p.Title, authors, p.PublicationDate.Format("Jan 2, 2006"), p.RelevanceScore, pubmed.SourceURL(p.PMID))
		if err != nil {
			return err
		}
	}
	return nil
}
