package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/medai-miner/internal/extract"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Derive architecture, metrics, specialty and code links from record text",
	Long: `Enrich runs the rule-based extractors over each record's normalized title and
abstract and writes the fields it finds. Populated fields are kept unless
--reprocess is given, so rerunning enrich is safe.`,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().Bool("reprocess", false, "recompute fields that are already populated")
	addSelectionFlags(enrichCmd, "enrich")
	bindFlag(enrichCmd, "reprocess", "enrich.reprocess")

	rootCmd.AddCommand(enrichCmd)
}

// addSelectionFlags adds the --offset, --limit and --id-prefix flags shared
// by the per-record stages and binds them under section.
func addSelectionFlags(cmd *cobra.Command, section string) {
	cmd.Flags().Int("offset", 0, "skip this many matching records")
	cmd.Flags().Int("limit", 0, "process at most this many records (0 means all)")
	cmd.Flags().String("id-prefix", "", `only records whose id starts with this prefix (e.g. "arxiv:")`)
	bindFlag(cmd, "offset", section+".offset")
	bindFlag(cmd, "limit", section+".limit")
	bindFlag(cmd, "id-prefix", section+".id_prefix")
}

func runEnrich(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	w := cmd.OutOrStdout()
	summary, err := extract.EnrichAll(ctx, st, cfg.Enrich, w)
	fmt.Fprintf(w, "\nenrich: %d enriched, %d unchanged, %d failed\n",
		summary.Enriched, summary.Unchanged, summary.Failed)
	return err
}
