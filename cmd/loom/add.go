package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Ingest the next chapter from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
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
	next := latest + 1
	if err := eng.Chapters().Write(next, string(data)); err != nil {
		return err
	}

	fmt.Println(styleSuccess.Render(fmt.Sprintf("Added chapter %d", next)))
	due := eng.DueTiers(next)
	fmt.Println(styleDim.Render(fmt.Sprintf("Due tiers: %v (run: loom process %d)", due, next)))
	return nil
}
