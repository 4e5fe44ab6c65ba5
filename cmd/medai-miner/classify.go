package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/medai-miner/internal/classify"
	"github.com/pdiddy/medai-miner/internal/llm"
	"github.com/pdiddy/medai-miner/internal/ratelimit"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Label unclassified records keep or remove with a language model",
	Long: `Classify first applies the title filter, then sends the remaining
unclassified records to the language model in batches and records a keep or
remove decision for each record the model answers. Records the model skips
stay unclassified for the next run. A failed batch is reported and the run
moves on; an authentication failure stops the run.`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().Int("batch-size", 0, "records per request (default 50)")
	classifyCmd.Flags().Duration("batch-delay", 0, "minimum interval between requests (default 1s)")
	classifyCmd.Flags().String("model", "", "model identifier (default: llm.model)")
	addSelectionFlags(classifyCmd, "classify")
	bindFlag(classifyCmd, "batch-size", "classify.batch_size")
	bindFlag(classifyCmd, "batch-delay", "classify.batch_delay")
	bindFlag(classifyCmd, "model", "classify.model")

	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
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

	cl := classify.NewClassifier(client, ratelimit.Every(cfg.Classify.BatchDelay), cfg.Classify)
	cl.Retries = cfg.LLM.MaxRetries

	w := cmd.OutOrStdout()
	summary, err := classify.Run(ctx, st, cl, cfg.Classify, w)
	fmt.Fprintf(w, "\nclassify run %s: %d title-removed, %d keep, %d remove, %d undecided, %d stale, %d failed writes, %d failed batches\n",
		summary.RunID, summary.TitleRemoved, summary.Kept, summary.Removed, summary.Undecided,
		summary.Stale, summary.FailedWrites, summary.FailedBatches)
	return err
}
