package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/medai-miner/internal/source"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Search paper APIs and store new candidate records",
	Long: `Harvest queries arXiv, Semantic Scholar and OpenAlex for papers matching a
query (or every query in a YAML query file), deduplicates the results by
identifier and normalized title, and inserts the records the store has not
seen before.
Existing records are left untouched.`,
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().String("query", "", "free-text search query")
	harvestCmd.Flags().String("keywords", "", "additional keywords (comma-separated)")
	harvestCmd.Flags().String("from", "", "publication date range start (YYYY-MM-DD)")
	harvestCmd.Flags().String("to", "", "publication date range end (YYYY-MM-DD)")
	harvestCmd.Flags().String("queries", "", "YAML file of queries to run")
	harvestCmd.Flags().Int("max-results", 0, "maximum results per backend and query (default 50)")
	harvestCmd.Flags().Bool("arxiv", true, "query arXiv")
	harvestCmd.Flags().Bool("semantic-scholar", true, "query Semantic Scholar")
	harvestCmd.Flags().Bool("openalex", true, "query OpenAlex")
	bindFlag(harvestCmd, "max-results", "harvest.max_results")
	bindFlag(harvestCmd, "arxiv", "harvest.enable_arxiv")
	bindFlag(harvestCmd, "semantic-scholar", "harvest.enable_semantic_scholar")
	bindFlag(harvestCmd, "openalex", "harvest.enable_openalex")

	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	queries, err := harvestQueries(cmd)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: cfg.Harvest.Timeout}
	var backends []source.Backend
	if cfg.Harvest.EnableArxiv {
		backends = append(backends, &source.ArxivBackend{Client: client})
	}
	if cfg.Harvest.EnableSemanticScholar {
		backends = append(backends, &source.SemanticScholarBackend{
			Client: client,
			APIKey: cfg.Harvest.SemanticScholarAPIKey,
		})
	}
	if cfg.Harvest.EnableOpenAlex {
		backends = append(backends, &source.OpenAlexBackend{
			Client: client,
			Email:  cfg.Harvest.OpenAlexEmail,
		})
	}
	if len(backends) == 0 {
		return eris.New("every harvest backend is disabled")
	}

	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	w := cmd.OutOrStdout()
	var total source.Summary
	failedQueries := 0
	for _, q := range queries {
		s, err := source.Harvest(ctx, st, backends, q, cfg.Harvest, w)
		total.Add(s)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			zap.L().Error("harvest: query failed", zap.String("query", q.String()), zap.Error(err))
			fmt.Fprintf(w, "failed  query %q: %v\n", q.String(), err)
			failedQueries++
		}
	}

	fmt.Fprintf(w, "\nharvest: %d found, %d duplicates, %d created, %d existing, %d failed writes\n",
		total.Found, total.Duplicates, total.Created, total.Existing, total.FailedWrites)
	if len(total.FailedBackends) > 0 {
		fmt.Fprintf(w, "backend failures: %s\n", strings.Join(total.FailedBackends, ", "))
	}
	if failedQueries == len(queries) {
		return eris.Errorf("all %d queries failed", len(queries))
	}
	return nil
}

func harvestQueries(cmd *cobra.Command) ([]source.Query, error) {
	file, _ := cmd.Flags().GetString("queries")
	if file != "" {
		return source.ReadQueryFile(file)
	}

	text, _ := cmd.Flags().GetString("query")
	kw, _ := cmd.Flags().GetString("keywords")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")

	q, err := source.QueryParams{
		FreeText: text,
		Keywords: splitList(kw),
		DateFrom: from,
		DateTo:   to,
	}.ToQuery()
	if err != nil {
		return nil, err
	}
	if q.IsEmpty() {
		return nil, eris.New("provide --query, --keywords or --queries")
	}
	return []source.Query{q}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
