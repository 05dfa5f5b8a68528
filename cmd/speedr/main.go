// Package main provides the CLI entrypoint for speedr.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/speedr/internal/config"
	"github.com/verte-zerg/speedr/internal/model"
	"github.com/verte-zerg/speedr/internal/plain"
	"github.com/verte-zerg/speedr/internal/pump"
	"github.com/verte-zerg/speedr/internal/reader"
	"github.com/verte-zerg/speedr/internal/session"
	"github.com/verte-zerg/speedr/internal/source"
	"github.com/verte-zerg/speedr/internal/stats"
	"github.com/verte-zerg/speedr/internal/statsui"
	"github.com/verte-zerg/speedr/internal/store"
	"github.com/verte-zerg/speedr/internal/tui"
)

const (
	defaultRate         = 750
	defaultMin          = 250
	defaultMax          = 3000
	defaultCountdown    = 3
	defaultCountdownMs  = 750
	defaultCurveWindow  = 10
	defaultLogLevel     = "info"
	defaultAckTimeoutMs = int(pump.DefaultAckTimeout / time.Millisecond)
)

var (
	readRate         int
	readMin          int
	readMax          int
	readAvgLen       float64
	readWindow       int
	readCountdown    int
	readCountdownMs  int
	readAckTimeoutMs int
	readPlain        bool

	logLevel string
	logFile  string

	historySince       string
	historyLast        int
	historyCurveWindow int
	historyPrint       bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "speedr [file|dir|-]...",
		Short:         "Terminal speed reader",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runReadCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.IntVar(&readRate, "rate", defaultRate, "base display time of an average word in ms")
	flags.IntVar(&readMin, "min", defaultMin, "minimum display time per word in ms (0 = none)")
	flags.IntVar(&readMax, "max", defaultMax, "maximum display time per word in ms (0 = none)")
	flags.Float64Var(&readAvgLen, "avg-len", 0, "average word length for scaling (0 = measure per source)")
	flags.IntVar(&readWindow, "window", pump.DefaultWindowSize, "words shown on each side when paused")
	flags.IntVar(&readCountdown, "countdown", defaultCountdown, "countdown steps before reading (0 = off)")
	flags.IntVar(&readCountdownMs, "countdown-ms", defaultCountdownMs, "countdown step interval in ms")
	flags.IntVar(&readAckTimeoutMs, "ack-timeout-ms", defaultAckTimeoutMs, "how long a pause waits for the reader in ms")
	flags.StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&logFile, "log-file", "", "log file for the interactive reader")
	rootCmd.Flags().BoolVar(&readPlain, "plain", false, "line mode without the full-screen interface")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newTokenizeCmd())

	return rootCmd
}

// loadReaderConfig merges the config file under the command line flags.
func loadReaderConfig(cmd *cobra.Command) (model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "rate", &readRate, fileCfg.Reader.Rate)
	applyIntConfig(cmd, "min", &readMin, fileCfg.Reader.Min)
	applyIntConfig(cmd, "max", &readMax, fileCfg.Reader.Max)
	applyFloatConfig(cmd, "avg-len", &readAvgLen, fileCfg.Reader.AvgLen)
	applyIntConfig(cmd, "window", &readWindow, fileCfg.Reader.Window)
	applyIntConfig(cmd, "countdown", &readCountdown, fileCfg.Reader.Countdown)
	applyIntConfig(cmd, "countdown-ms", &readCountdownMs, fileCfg.Reader.CountdownMs)
	applyIntConfig(cmd, "ack-timeout-ms", &readAckTimeoutMs, fileCfg.Reader.AckTimeoutMs)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)

	cfg := model.Config{
		BaseMillis:      readRate,
		MinMillis:       readMin,
		MaxMillis:       readMax,
		AverageLength:   readAvgLen,
		WindowSize:      readWindow,
		Countdown:       readCountdown,
		CountdownMillis: readCountdownMs,
		AckTimeoutMs:    readAckTimeoutMs,
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func runReadCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadReaderConfig(cmd)
	if err != nil {
		return err
	}
	interactive := !readPlain && term.IsTerminal(int(os.Stdout.Fd()))

	var logOut io.Writer = os.Stderr
	if interactive {
		path := logFile
		if path == "" {
			path = config.DefaultLogPath()
		}
		f, err := openLogFile(path)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				logErrf("failed to close log file: %v\n", cerr)
			}
		}()
		logOut = f
	}
	if err := setupLogging(logOut, logLevel); err != nil {
		return err
	}

	sources, usesStdin, err := resolveSources(args)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			slog.Error("failed to close db", "err", cerr)
		}
	}()

	if !interactive {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err := plain.New(cmd.OutOrStdout(), cfg, st, slog.Default()).Run(ctx, sources)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if usesStdin {
		opts = append(opts, tea.WithInputTTY())
	}
	program := tea.NewProgram(tui.NewModel(cfg, sources, st, slog.Default()), opts...)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// resolveSources maps arguments to sources. Without arguments a piped stdin is
// read.
func resolveSources(args []string) ([]source.Source, bool, error) {
	if len(args) == 0 {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, false, fmt.Errorf("nothing to read: pass files, directories or pipe text into stdin")
		}
		args = []string{source.StdinArg}
	}
	sources, err := source.Load(args)
	if err != nil {
		return nil, false, err
	}
	usesStdin := false
	for _, arg := range args {
		if arg == source.StdinArg {
			usesStdin = true
		}
	}
	return sources, usesStdin, nil
}

func newTokenizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokenize [file|dir|-]...",
		Short: "Print words and their display times",
		RunE:  runTokenizeCmd,
	}
}

func runTokenizeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadReaderConfig(cmd)
	if err != nil {
		return err
	}
	if err := setupLogging(os.Stderr, logLevel); err != nil {
		return err
	}
	sources, _, err := resolveSources(args)
	if err != nil {
		return err
	}
	pacing := session.Pacing(cfg)
	out := cmd.OutOrStdout()
	for _, src := range sources {
		content, err := src.Content()
		if err != nil {
			return fmt.Errorf("failed to load %q: %w", src.Title(), err)
		}
		stream := reader.NewStream(reader.Tokenize(content, pacing))
		if _, err := fmt.Fprintf(out, "# %s: %d words, %s\n", src.Title(), stream.Len(), stream.Remaining().Round(time.Second)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		for _, w := range stream.Words() {
			if _, err := fmt.Fprintf(out, "%6d  %s\n", w.DurationMillis(), w.Text()); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show reading history",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&historyCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&historyPrint, "print", false, "print a text report instead of the interactive browser")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if err := setupLogging(os.Stderr, logLevel); err != nil {
		return err
	}
	cfg, err := historyConfig(historySince, historyLast, historyCurveWindow)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			slog.Error("failed to close db", "err", cerr)
		}
	}()

	if !historyPrint && term.IsTerminal(int(os.Stdout.Fd())) {
		program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run history TUI: %w", err)
		}
		return nil
	}

	report, err := stats.BuildReport(cmd.Context(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(report.Sessions) == 0 {
		logErrln("No reading sessions recorded yet.")
		return nil
	}
	return report.Render(cmd.OutOrStdout())
}

func historyConfig(since string, last, curveWindow int) (model.StatsConfig, error) {
	var sinceTime *time.Time
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if last < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if curveWindow <= 0 {
		return model.StatsConfig{}, fmt.Errorf("--curve-window must be > 0")
	}
	return model.StatsConfig{Since: sinceTime, Last: last, CurveWindow: curveWindow}, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# speedr configuration
# Uncomment a value to enable it. CLI flags override config values.

[reader]
# rate = %d              # Base display time of an average word in ms
# min = %d               # Minimum display time per word in ms (0 = none)
# max = %d              # Maximum display time per word in ms (0 = none)
# avg-len = 0.0           # Average word length for scaling (0 = measure per source)
# window = %d             # Words shown on each side when paused
# countdown = %d           # Countdown steps before reading (0 = off)
# countdown-ms = %d      # Countdown step interval in ms
# ack-timeout-ms = %d   # How long a pause waits for the reader in ms

[log]
# level = %q          # debug, info, warn or error
# file = ""               # Log file for the interactive reader
`,
		defaultRate,
		defaultMin,
		defaultMax,
		pump.DefaultWindowSize,
		defaultCountdown,
		defaultCountdownMs,
		defaultAckTimeoutMs,
		defaultLogLevel,
	)
}

func validateConfig(cfg model.Config) error {
	if err := session.Pacing(cfg).Validate(); err != nil {
		return fmt.Errorf("invalid --rate/--min/--max: %w", err)
	}
	if cfg.AverageLength < 0 {
		return fmt.Errorf("--avg-len must be >= 0")
	}
	if cfg.WindowSize < 0 {
		return fmt.Errorf("--window must be >= 0")
	}
	if cfg.Countdown < 0 {
		return fmt.Errorf("--countdown must be >= 0")
	}
	if cfg.Countdown > 0 && cfg.CountdownMillis <= 0 {
		return fmt.Errorf("--countdown-ms must be > 0")
	}
	if cfg.AckTimeoutMs <= 0 {
		return fmt.Errorf("--ack-timeout-ms must be > 0")
	}
	return nil
}

func parseLogLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return level, fmt.Errorf("invalid --log-level %q: %w", value, err)
	}
	return level, nil
}

func setupLogging(w io.Writer, level string) error {
	lvl, err := parseLogLevel(level)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
