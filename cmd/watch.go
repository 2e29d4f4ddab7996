package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/pthm-cable/reuron/sim"
)

var watchCmd = &cobra.Command{
	Use:   "watch <scene>",
	Short: "Re-run a scene every time it is saved",
	Long: `Runs the scene once, then watches it and runs it again after each write.
Build errors are reported and the watch continues. Runs are plotted unless
--plot=false.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("plot", true, "print probe traces after each run")
	watchCmd.Flags().Duration("debounce", 200*time.Millisecond, "quiet period before re-running")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	plot, _ := cmd.Flags().GetBool("plot")
	debounce, _ := cmd.Flags().GetDuration("debounce")

	ctx, cancel := signalContext()
	defer cancel()

	rerun := func() {
		if err := runOnce(ctx, cmd.OutOrStdout(), path, plot); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "✗ %v\n", err)
		}
	}
	rerun()
	return watchFile(ctx, path, debounce, rerun)
}

// runOnce reloads config and scene so edits to either take effect.
func runOnce(ctx context.Context, w io.Writer, path string, plot bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	model, err := buildScene(path, cfg)
	if err != nil {
		return err
	}
	return simulate(ctx, w, cfg, model, sim.Options{}, nil, plot)
}

// watchFile calls fn once writes to path have been quiet for debounce. The
// parent directory is watched because editors often replace the file.
func watchFile(ctx context.Context, path string, debounce time.Duration, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch: %s: %w", path, err)
	}
	slog.Info("watching", "scene", path)

	ticker := time.NewTicker(debounce)
	defer ticker.Stop()
	var pending time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				pending = time.Now()
			}

		case <-ticker.C:
			if !pending.IsZero() && time.Since(pending) >= debounce {
				pending = time.Time{}
				slog.Info("scene changed", "scene", path)
				fn()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)
		}
	}
}
