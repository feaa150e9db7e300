package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lyndonlyu/loom/internal/config"
	"github.com/lyndonlyu/loom/internal/engine"
	"github.com/lyndonlyu/loom/internal/extract"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Loom - tiered context budgeting for long-form writing",
	Long:  "Loom compresses chapter history into retention tiers and assembles generation context for the next chapter under a hard token budget.",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("loom v0.1.0")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.loom/config.yaml)")
	rootCmd.AddCommand(versionCmd)
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".loom", "config.yaml")
}

func loadConfig() (*config.Config, error) {
	return config.Load(resolvedConfigPath())
}

func openEngine() (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	return engine.New(cfg, extract.New())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
