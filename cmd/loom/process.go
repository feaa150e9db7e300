package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process <chapter>",
	Short: "Run the compression cycle for a chapter",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid chapter index %q", args[0])
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	report, err := eng.ProcessChapter(n)
	if err != nil {
		return err
	}

	for _, id := range report.Compressed {
		fmt.Println(styleSuccess.Render("compressed ") + id)
	}
	for id, tierErr := range report.Failed {
		fmt.Println(styleError.Render("failed     ") + id + ": " + tierErr.Error())
	}
	if len(report.Due) == 0 {
		fmt.Println(styleDim.Render("No tiers due for chapter " + args[0]))
	}

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d due tiers failed", len(report.Failed), len(report.Due))
	}
	return nil
}
