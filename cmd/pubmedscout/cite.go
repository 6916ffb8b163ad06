package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/csheth/pubmedscout/internal/citation"
	"github.com/csheth/pubmedscout/internal/pubmed"
	"github.com/csheth/pubmedscout/internal/searchapi"
)

func newCiteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cite --pmid <id>",
		Short: "Print a citation for one PubMed article",
		Long: `cite looks the article up through the API with a "<pmid>[pmid]" query and
prints it in MLA, APA or Chicago style, or as CSL-YAML with --csl.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pmid, _ := cmd.Flags().GetString("pmid")
			styleName, _ := cmd.Flags().GetString("style")
			asCSL, _ := cmd.Flags().GetBool("csl")

			pmid = strings.TrimSpace(pmid)
			style, ok := citation.ParseStyle(styleName)
			if !ok {
				return fmt.Errorf("unknown style %q (want mla, apa or chicago)", styleName)
			}

			client := searchapi.New(a.cfg.APIURL)
			papers, err := client.Search(cmd.Context(), pmid+"[pmid]")
			if err != nil {
				return err
			}
			paper, found := findPaper(papers, pmid)
			if !found {
				return fmt.Errorf("pmid %s: %w", pmid, pubmed.ErrNotFound)
			}
			if asCSL {
				return citation.WriteCSL(cmd.OutOrStdout(), []pubmed.Paper{paper})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), citation.Format(paper, style))
			return err
		},
	}
	cmd.Flags().String("pmid", "", "PubMed id of the article")
	cmd.Flags().String("style", string(citation.MLA), "citation style: MLA, APA or Chicago")
	cmd.Flags().Bool("csl", false, "print CSL-YAML instead of a formatted citation")
	_ = cmd.MarkFlagRequired("pmid")
	return cmd
}

func findPaper(papers []pubmed.Paper, pmid string) (pubmed.Paper, bool) {
	for _, p := range papers {
		if p.PMID == pmid {
			return p, true
		}
	}
	return pubmed.Paper{}, false
}
