package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show budget, tiers, and recent batch runs",
	RunE:  runStatus,
}

var statusBatches int

func init() {
	statusCmd.Flags().IntVar(&statusBatches, "batches", 5, "Number of recent batch runs to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	latest, err := eng.Chapters().Latest()
	if err != nil {
		return err
	}
	counts, err := eng.Summaries().CountByTier()
	if err != nil {
		return err
	}

	b := eng.Budget().Current()
	fmt.Println(styleBanner.Render("Budget"))
	fmt.Printf("  ceiling %d, safety margin %.0f%%, floor %d\n", b.Ceiling, b.SafetyMargin*100, b.MinCeiling)

	fmt.Println(styleBanner.Render("Tiers"))
	for _, p := range cfg.Tiers {
		fmt.Printf("  %-8s target %5d  every %3d chapters  %d summaries\n",
			p.ID, p.TargetTokens, p.TriggerPeriod, counts[p.ID])
	}

	fmt.Println(styleBanner.Render("Chapters"))
	if latest == 0 {
		fmt.Println(styleDim.Render("  none ingested yet"))
	} else {
		fmt.Printf("  latest %d, next due tiers %v\n", latest, eng.DueTiers(latest+1))
		if plan := eng.BatchPlan(latest + 1); len(plan) > 0 {
			for _, batch := range plan {
				fmt.Println(styleWarn.Render(fmt.Sprintf(
					"  milestone at %d: %s over %d-%d", latest+1, batch.Tier, batch.From, batch.To)))
			}
		}
	}

	batches, err := eng.Summaries().ListBatches(statusBatches)
	if err != nil {
		return err
	}
	if len(batches) > 0 {
		fmt.Println(styleBanner.Render("Recent batches"))
		for _, r := range batches {
			style := styleSuccess
			if r.Status != "COMPLETED" {
				style = styleError
			}
			fmt.Printf("  %s %s %d-%d %s\n",
				style.Render(r.Status), r.Tier, r.FromChapter, r.ToChapter, styleDim.Render(r.StartedAt))
		}
	}
	return nil
}
