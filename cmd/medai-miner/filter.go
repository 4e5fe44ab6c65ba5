package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/medai-miner/internal/classify"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Remove unclassified records whose titles mark them as off-topic",
	Long: `Filter applies the title-pattern filter to unclassified records: a record is
removed when its title matches an exclude pattern (tutorial, demo, template,
...) and no include pattern (clinical, imaging, disease, ...). No language
model is called. With --dry-run the records that would be removed are listed
and nothing is written.`,
	RunE: runFilter,
}

func init() {
	filterCmd.Flags().Bool("dry-run", false, "list removals without writing them")
	addSelectionFlags(filterCmd, "classify")

	rootCmd.AddCommand(filterCmd)
}

func runFilter(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	w := cmd.OutOrStdout()
	summary, err := classify.FilterTitles(ctx, st, cfg.Classify, dryRun, w)
	verb := "removed"
	if dryRun {
		verb = "would remove"
	}
	fmt.Fprintf(w, "\nfilter: %s %d, %d left for classification, %d stale, %d failed writes\n",
		verb, summary.TitleRemoved, summary.Undecided, summary.Stale, summary.FailedWrites)
	return err
}
