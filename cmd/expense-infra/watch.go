package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/expense-tracker/expense-infra-go/internal/config"
)

// newWatchCmd creates the "watch" subcommand for re-synthesizing on
// configuration changes.
func newWatchCmd(root *rootOptions) *cobra.Command {
	var (
		debounce time.Duration
		opts     synthOptions
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-synthesize when the configuration file changes",
		Long: `Watch synthesizes once, then monitors the configuration file and
re-synthesizes the cloud assembly after each change. Rapid saves are debounced.

Examples:
    expense-infra watch
    expense-infra watch --config staging.yaml --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), root, opts, debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Assembly directory (default: app.output)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "Template format: json or yaml")
	cmd.Flags().StringVar(&opts.stackName, "stack", "", "Synthesize a single stack")

	return cmd
}

func runWatch(ctx context.Context, w io.Writer, root *rootOptions, opts synthOptions, debounce time.Duration) error {
	path := root.configFile
	if path == "" {
		path = config.DefaultFile
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	fmt.Fprintf(w, "Watching: %s\n", abs)

	resynth(ctx, w, root, opts)

	var debounceTimer *time.Timer
	rebuild := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isConfigChange(event, abs) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})

		case <-rebuild:
			fmt.Fprintf(w, "\n[%s] Configuration changed, synthesizing...\n", time.Now().Format("15:04:05"))
			resynth(ctx, w, root, opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			root.log().WithError(err).Warn("watch error")
		}
	}
}

// isConfigChange reports whether event wrote or replaced the file at path.
func isConfigChange(event fsnotify.Event, path string) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// resynth reports errors instead of returning them so watching continues.
func resynth(ctx context.Context, w io.Writer, root *rootOptions, opts synthOptions) {
	if err := synthOnce(ctx, w, root, opts); err != nil {
		root.log().WithError(err).Error("synth failed")
	}
}

func synthOnce(ctx context.Context, w io.Writer, root *rootOptions, opts synthOptions) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	stacks, err := root.synthesize(ctx, cfg, opts.stackName)
	if err != nil {
		return err
	}
	return writeSynth(w, cfg, stacks, opts)
}
