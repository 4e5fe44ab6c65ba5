package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/medai-miner/internal/llm"
	"github.com/pdiddy/medai-miner/internal/metadata"
	"github.com/pdiddy/medai-miner/internal/ratelimit"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Extract structured dataset, methodology, validation and results metadata",
	Long: `Metadata asks the language model for the structured metadata of each record
that is not yet enriched (every record with --reprocess), validates the JSON
reply, and stores it. Reported AUC and accuracy fill the record's metric
fields when they are empty. A record whose reply cannot be used is marked
extraction-failed and retried on the next run.`,
	RunE: runMetadata,
}

func init() {
	metadataCmd.Flags().Bool("reprocess", false, "resubmit records that are already enriched")
	metadataCmd.Flags().Duration("record-delay", 0, "minimum interval between requests (default 1s)")
	metadataCmd.Flags().String("model", "", "model identifier (default: llm.model)")
	addSelectionFlags(metadataCmd, "metadata")
	bindFlag(metadataCmd, "reprocess", "metadata.reprocess")
	bindFlag(metadataCmd, "record-delay", "metadata.record_delay")
	bindFlag(metadataCmd, "model", "metadata.model")

	rootCmd.AddCommand(metadataCmd)
}

func runMetadata(cmd *cobra.Command, args []string) error {
	client, err := llm.NewAnthropicClient(cfg.LLM)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	r := &metadata.Runner{
		Extractor: metadata.NewExtractor(client, cfg.Metadata),
		Limiter:   ratelimit.Every(cfg.Metadata.RecordDelay),
		Retries:   cfg.LLM.MaxRetries,
	}

	w := cmd.OutOrStdout()
	summary, err := r.ExtractAll(ctx, st, cfg.Metadata, w)
	fmt.Fprintf(w, "\nmetadata: %d extracted, %d skipped, %d failed\n",
		summary.Extracted, summary.Skipped, summary.Failed)
	return err
}
