package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lyndonlyu/loom/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the project directories and a default config file",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := resolvedConfigPath()
	cfg := config.Default()
	cfg.BaseDir = filepath.Dir(path)

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Println(styleDim.Render("Config already exists: " + path))
		return nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	fmt.Println(styleSuccess.Render("Initialized " + cfg.BaseDir))
	return nil
}
