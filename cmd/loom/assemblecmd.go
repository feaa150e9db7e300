package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/lyndonlyu/loom/internal/assemble"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble <chapter>",
	Short: "Assemble the generation context for a chapter",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssemble,
}

var (
	assembleCeiling int
	assemblePreview bool
)

func init() {
	assembleCmd.Flags().IntVar(&assembleCeiling, "ceiling", 0, "Override the token ceiling for this call")
	assembleCmd.Flags().BoolVar(&assemblePreview, "preview", false, "Render the context for terminal display")
	rootCmd.AddCommand(assembleCmd)
}

func runAssemble(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid chapter index %q", args[0])
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.Assemble(n, assembleCeiling)
	if err != nil {
		var unsat *assemble.UnsatisfiableError
		if errors.As(err, &unsat) {
			fmt.Fprintln(os.Stderr, styleError.Render("Budget unsatisfiable:"))
			for _, c := range unsat.Retained {
				fmt.Fprintln(os.Stderr, "  "+c.Describe())
			}
		}
		return err
	}

	text := result.Markdown()
	if assemblePreview {
		text = renderMarkdown(text)
	}
	fmt.Println(text)

	fmt.Fprintln(os.Stderr, styleDim.Render(fmt.Sprintf(
		"%d components, %d tokens", len(result.Components), result.TotalTokens)))
	if len(result.Dropped) > 0 {
		fmt.Fprintln(os.Stderr, styleWarn.Render(fmt.Sprintf("Dropped %d over budget:", len(result.Dropped))))
		for _, c := range result.Dropped {
			fmt.Fprintln(os.Stderr, "  "+c.Describe())
		}
	}
	return nil
}

// renderMarkdown renders markdown text for terminal display.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out)
}
