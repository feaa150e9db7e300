package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var recompressCmd = &cobra.Command{
	Use:   "recompress <chapter>",
	Short: "Run the milestone batch recompression for a chapter",
	Long:  "Recompresses the chapter windows behind each long-horizon tier that fires at the given chapter. This is the explicit batch operation; per-chapter processing never triggers it implicitly.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecompress,
}

func init() {
	rootCmd.AddCommand(recompressCmd)
}

func runRecompress(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid chapter index %q", args[0])
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	reports, err := eng.Recompress(n)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Println(styleDim.Render("No milestone tiers fire at chapter " + args[0]))
		return nil
	}

	failed := 0
	for _, r := range reports {
		line := fmt.Sprintf("%s chapters %d-%d [%s]",
			r.Record.Tier, r.Record.FromChapter, r.Record.ToChapter, r.Record.ID[:8])
		if r.Record.Status == "COMPLETED" {
			fmt.Println(styleSuccess.Render("completed ") + line)
			continue
		}
		failed++
		fmt.Println(styleError.Render("failed    ") + line)
		for ch, chErr := range r.Failed {
			fmt.Println(styleDim.Render(fmt.Sprintf("  chapter %d: %v", ch, chErr)))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d batches failed", failed, len(reports))
	}
	return nil
}
