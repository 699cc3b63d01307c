package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jward/astlens"
	"github.com/jward/astlens/internal/config"
	"github.com/jward/astlens/scripts"
	"github.com/spf13/cobra"
)

var (
	flagFormat      string
	flagLanguage    string
	flagAST         string
	flagLabelScript string
	flagConfig      string
	flagVerbose     bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// cfg and logger are set up by the root command before any subcommand runs.
var (
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "astlens",
	Short:         "Navigate a syntax tree alongside its source",
	Long:          "astlens parses a source file, indexes which tree nodes cover each line, and lets you select, search and export the tree by line or by path.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return setup()
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagLanguage, "language", "", "parser language (default: from file extension or config)")
	rootCmd.PersistentFlags().StringVar(&flagAST, "ast", "", "read the tree from an ESTree JSON file instead of parsing")
	rootCmd.PersistentFlags().StringVar(&flagLabelScript, "label-script", "", "Risor label script path, or builtin:<name> for a bundled one")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .astlens.toml in the repo root)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging on stderr")

	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(linesCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(watchCmd)
}

// setup loads the config file and builds the logger. Flags override config
// values.
func setup() error {
	var err error
	if flagConfig != "" {
		cfg, err = config.Load(flagConfig)
	} else {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			return fmt.Errorf("getting cwd: %w", cwdErr)
		}
		cfg, err = config.Find(findRepoRoot(cwd))
	}
	if err != nil {
		return err
	}

	level := cfg.SlogLevel()
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// language returns the --language flag, else the configured language.
func language() string {
	if flagLanguage != "" {
		return flagLanguage
	}
	return cfg.Language
}

// loadSnapshot reads file and turns it into a snapshot, either by parsing
// it or by decoding the --ast tree produced for it.
func loadSnapshot(ctx context.Context, file string) (*astlens.Snapshot, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	if flagAST != "" {
		f, err := os.Open(flagAST)
		if err != nil {
			return nil, fmt.Errorf("opening tree %s: %w", flagAST, err)
		}
		defer f.Close()
		return astlens.DecodeSnapshot(file, string(src), f)
	}
	snap := astlens.ParseSnapshot(ctx, file, src, language())
	if snap.Fallback {
		logger.Warn("no grammar parsed the file, showing one node per line",
			slog.String("file", file), slog.String("language", snap.Language))
	}
	return snap, nil
}

// labeler builds the labeler from --label-script or the config.
func labeler() (astlens.Labeler, error) {
	path := flagLabelScript
	if path == "" {
		path = cfg.ScriptPath()
	}
	if path == "" {
		return astlens.DefaultLabeler{}, nil
	}
	if name, ok := strings.CutPrefix(path, "builtin:"); ok {
		if !strings.HasSuffix(name, ".risor") {
			name += ".risor"
		}
		return astlens.LoadScriptLabelerFS(scripts.Labels(), name, logger)
	}
	return astlens.LoadScriptLabeler(path, logger)
}

// newViewer creates a Viewer drawing into the returned frame holder and
// installs file's snapshot.
func newViewer(ctx context.Context, file string, opts ...astlens.Option) (*astlens.Viewer, *frameHolder, error) {
	snap, err := loadSnapshot(ctx, file)
	if err != nil {
		return nil, nil, err
	}
	l, err := labeler()
	if err != nil {
		return nil, nil, err
	}
	holder := &frameHolder{}
	opts = append([]astlens.Option{astlens.WithLabeler(l), astlens.WithLogger(logger)}, opts...)
	v, err := astlens.NewViewer(holder, opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := v.Replace(ctx, snap); err != nil {
		return nil, nil, err
	}
	return v, holder, nil
}

// frameHolder is a Surface that keeps the last frame drawn.
type frameHolder struct {
	last  astlens.Frame
	draws int
}

func (h *frameHolder) Draw(f astlens.Frame) error {
	h.last = f
	h.draws++
	return nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}
