package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/jward/astlens"
	"github.com/spf13/cobra"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Redraw the tree whenever the file changes",
	Long: "Watches a source file and reloads its tree on every save. The selected " +
		"line (--line) is re-applied after each reload. Stops on Ctrl-C.",
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 200*time.Millisecond, "quiet period before reloading")
	watchCmd.Flags().IntVar(&flagLine, "line", 0, "1-based line to keep selected across reloads")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	file, err := filepath.Abs(args[0])
	if err != nil {
		return outputError("watch", err)
	}
	w := newFileWatcher(file, flagDebounce, logger)
	v, holder, err := newViewer(ctx, file)
	if err != nil {
		return outputError("watch", err)
	}
	redraw := func() {
		if flagLine != 0 {
			v.SelectByLine(flagLine)
		}
		if err := printFrame(os.Stdout, file, holder.last); err != nil {
			logger.Error("printing frame", slog.Any("error", err))
		}
	}
	redraw()

	src, err := os.ReadFile(file)
	if err != nil {
		return outputError("watch", err)
	}
	w.seen(src)

	return w.run(ctx, func(ctx context.Context) {
		err := v.Load(ctx, astlens.ProviderFunc(func(ctx context.Context) (*astlens.Snapshot, error) {
			return loadSnapshot(ctx, file)
		}))
		switch {
		case errors.Is(err, astlens.ErrSuperseded), errors.Is(err, context.Canceled):
			return
		case err != nil:
			logger.Error("reloading", slog.String("file", file), slog.Any("error", err))
			return
		}
		redraw()
	})
}

// printFrame writes one frame in the selected format, separated from the
// previous one.
func printFrame(w io.Writer, file string, f astlens.Frame) error {
	result := CLIResult{Command: "watch", File: file, Results: toCLITree(f)}
	if flagFormat == "text" {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("── %s  %s", filepath.Base(file), time.Now().Format(time.TimeOnly))))
		return outputResultText(w, result)
	}
	return outputResult(result)
}

// fileWatcher reports content changes to one file. The parent directory is
// watched so editors that save by rename keep being tracked.
type fileWatcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	last  uint64
	timer *time.Timer
}

func newFileWatcher(path string, debounce time.Duration, logger *slog.Logger) *fileWatcher {
	return &fileWatcher{path: path, debounce: debounce, logger: logger}
}

// seen records src as the current content. It reports whether src differs
// from the previously recorded content.
func (w *fileWatcher) seen(src []byte) bool {
	h := xxhash.Sum64(src)
	w.mu.Lock()
	defer w.mu.Unlock()
	if h == w.last {
		return false
	}
	w.last = h
	return true
}

// run blocks until ctx is done, calling onChange after each debounced
// write whose content differs from the last one seen. Calls to onChange are
// serialized.
func (w *fileWatcher) run(ctx context.Context, onChange func(context.Context)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.schedule(fire)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", slog.Any("error", err))

		case <-fire:
			src, err := os.ReadFile(w.path)
			if err != nil {
				// Mid-rename; the Create that follows schedules another read.
				w.logger.Debug("reading watched file", slog.Any("error", err))
				continue
			}
			if !w.seen(src) {
				w.logger.Debug("content unchanged, skipping reload", slog.String("file", w.path))
				continue
			}
			onChange(ctx)
		}
	}
}

// schedule (re)starts the debounce timer.
func (w *fileWatcher) schedule(fire chan<- struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}
