package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lyndonlyu/loom/internal/config"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process chapters as they land and hot-reload config changes",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchChapterRe = regexp.MustCompile(`^chapter-(\d{4})\.md$`)

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	// Config reloads are funneled onto this goroutine; the engine is
	// synchronous and must not be touched from the watcher's.
	reloads := make(chan *config.Config, 1)
	cw, err := config.NewWatcher(resolvedConfigPath(), cfg)
	if err != nil {
		return err
	}
	cw.OnChange(func(prev, next *config.Config) {
		select {
		case reloads <- next:
		default:
		}
	})
	cw.Start()
	defer cw.Stop()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(cfg.ChaptersDir()); err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	fmt.Println(styleBanner.Render("Watching " + cfg.ChaptersDir()))

	for {
		select {
		case <-sigs:
			return nil
		case next := <-reloads:
			if err := eng.Reload(next); err != nil {
				fmt.Println(styleError.Render("Config reload rejected: " + err.Error()))
				continue
			}
			fmt.Println(styleSuccess.Render("Config reloaded"))
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			m := watchChapterRe.FindStringSubmatch(filepath.Base(ev.Name))
			if m == nil {
				continue
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			report, err := eng.ProcessChapter(n)
			if err != nil {
				fmt.Println(styleError.Render(fmt.Sprintf("chapter %d: %v", n, err)))
				continue
			}
			fmt.Printf("chapter %d: compressed %v", n, report.Compressed)
			if len(report.Failed) > 0 {
				fmt.Print(styleError.Render(fmt.Sprintf(" (%d failed)", len(report.Failed))))
			}
			fmt.Println()
		case _, ok := <-fw.Errors:
			if !ok {
				return nil
			}
		}
	}
}
