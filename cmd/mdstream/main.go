package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"golang.org/x/term"
	"pkt.systems/version"

	"pkt.systems/mdstream"
	"pkt.systems/mdstream/internal/metrics"
	"pkt.systems/mdstream/internal/preview"
)

const (
	defaultThemeName = "default"
	defaultWidth     = 80
	defaultChunkSize = 3
	defaultDelay     = 20 * time.Millisecond
)

func init() {
	version.SetDefaultModule("pkt.systems/mdstream")
}

type cliOptions struct {
	format       string
	themeName    string
	width        int
	osc8         string
	colors       string
	listThemes   bool
	outPath      string
	boring       bool
	simulate     bool
	simChunkSize int
	simDelay     time.Duration
	serve        string
	metrics      bool
	debug        bool
	normalize    bool
	strict       bool
	showVersion  bool
}

func main() {
	var opts cliOptions
	flags := pflag.NewFlagSet("mdstream", pflag.ExitOnError)
	flags.StringVarP(&opts.format, "format", "f", "ansi", "Output format: ansi|html|log")
	flags.StringVarP(&opts.themeName, "theme", "t", defaultThemeName, "Theme name")
	flags.IntVarP(&opts.width, "width", "w", 0, "Output width override (0 uses terminal width if available)")
	flags.StringVarP(&opts.osc8, "osc8", "8", "auto", "OSC8 hyperlinks: auto|on|off")
	flags.StringVar(&opts.colors, "colors", "auto", "Color depth: auto|none|16|256|truecolor")
	flags.BoolVar(&opts.listThemes, "list-themes", false, "List available themes")
	flags.StringVarP(&opts.outPath, "output", "o", "", "Output file instead of stdout")
	flags.BoolVarP(&opts.boring, "boring", "b", false, "Generate output without ANSI styling")
	flags.BoolVar(&opts.simulate, "simulate", false, "Stream simulator (use default delay and chunk size)")
	flags.IntVar(&opts.simChunkSize, "simulate-chunk", defaultChunkSize, "Max bytes per stream chunk")
	flags.DurationVar(&opts.simDelay, "simulate-delay", defaultDelay, "Delay per stream chunk")
	flags.StringVar(&opts.serve, "serve", "", "Serve a live HTML preview of the input file on this address")
	flags.BoolVar(&opts.metrics, "metrics", false, "Expose Prometheus metrics at /metrics when serving")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&opts.normalize, "normalize", false, "Apply Unicode NFC normalization to input")
	flags.BoolVar(&opts.strict, "strict", false, "Fail on invalid UTF-8 or binary input instead of skipping it")
	flags.BoolVarP(&opts.showVersion, "version", "v", false, "Print version and exit")

	flags.SetInterspersed(true)
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, version.Module(), version.Current())
		fmt.Fprintf(os.Stderr, "Usage: mdstream [flags] [inputs...]\n")
		fmt.Fprintln(os.Stderr, "\nIf no input is provided, Markdown is read from stdin.")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	logger := newLogger(os.Stderr, opts.debug)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, flags.Args(), os.Stdout, logger); err != nil {
		var uerr usageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// usageError marks errors caused by bad flags or arguments.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func run(ctx context.Context, opts cliOptions, args []string, stdout io.Writer, logger *slog.Logger) error {
	if opts.showVersion {
		fmt.Fprintln(stdout, version.Module(), version.Current())
		return nil
	}
	if opts.listThemes {
		printThemes(stdout)
		return nil
	}
	format, err := mdstream.ParseFormat(opts.format)
	if err != nil {
		return usagef("invalid --format: %v", err)
	}
	parseOpts := []mdstream.Option{
		mdstream.WithNormalize(opts.normalize),
		mdstream.WithStrictInput(opts.strict),
		mdstream.WithFrontMatter(func(fm mdstream.FrontMatter) {
			logFrontMatter(logger, fm)
		}),
	}
	if opts.debug {
		parseOpts = append(parseOpts, mdstream.WithLogger(logger))
	}

	if opts.serve != "" {
		return servePreview(ctx, opts, args, parseOpts, logger)
	}

	reader, err := openInputs(ctx, args)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = reader.Close() }()

	writer, closeOut, err := createOutput(opts.outPath, stdout)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer func() { _ = closeOut() }()

	theme, ok := mdstream.ThemeByName(opts.themeName)
	if !ok {
		var b strings.Builder
		printThemes(&b)
		return usagef("unknown theme %q\n\navailable themes:\n%s", opts.themeName, b.String())
	}
	level, err := resolveColors(opts.colors, opts.boring)
	if err != nil {
		return usagef("invalid --colors %q: %v", opts.colors, err)
	}
	theme = mdstream.ThemeAtLevel(theme, level)

	osc8, err := resolveOSC8(opts.osc8)
	if err != nil {
		return usagef("invalid --osc8 %q: %v", opts.osc8, err)
	}
	parseOpts = append(parseOpts,
		mdstream.WithOSC8(osc8 && !opts.boring),
		mdstream.WithColor(format == mdstream.FormatLog && !opts.boring && isTerminal(writer)),
	)
	width := resolveWidth(opts.width)

	start := time.Now()
	var stats mdstream.Stats
	if opts.simulate {
		err = mdstream.StreamSimulate(ctx, mdstream.StreamSimulateRequest{
			Reader:    reader,
			Writer:    writer,
			Format:    format,
			Width:     width,
			Theme:     theme,
			ChunkSize: opts.simChunkSize,
			Delay:     opts.simDelay,
			Options:   parseOpts,
		})
	} else {
		err = mdstream.Render(mdstream.RenderRequest{
			Reader:  reader,
			Writer:  writer,
			Format:  format,
			Width:   width,
			Theme:   theme,
			Options: parseOpts,
			Stats:   &stats,
		})
	}
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	logger.Debug("render complete",
		"format", format.String(),
		"bytes", stats.Bytes,
		"chunks", stats.Chunks,
		"tokens", stats.Tokens,
		"front_matter", stats.FrontMatter,
		"elapsed", time.Since(start))
	return nil
}

func servePreview(ctx context.Context, opts cliOptions, args []string, parseOpts []mdstream.Option, logger *slog.Logger) error {
	if len(args) != 1 {
		return usagef("--serve needs exactly one input file")
	}
	cfg := preview.Config{
		Path:    expandPath(args[0]),
		Addr:    opts.serve,
		Options: parseOpts,
		Logger:  logger,
	}
	if opts.metrics {
		reg := prom.NewRegistry()
		cfg.Registry = reg
		cfg.Recorder = metrics.NewPrometheusRecorder(reg)
	}
	srv, err := preview.New(cfg)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func logFrontMatter(logger *slog.Logger, fm mdstream.FrontMatter) {
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	fields, err := fm.Fields()
	if err != nil {
		logger.Debug("front matter skipped", "delimiter", fm.Delimiter, "bytes", len(fm.Raw), "error", err)
		return
	}
	logger.Debug("front matter skipped", "delimiter", fm.Delimiter, "fields", fields)
}

func printThemes(w io.Writer) {
	for _, name := range mdstream.AvailableThemes() {
		fmt.Fprintln(w, name)
	}
}

func resolveWidth(width int) int {
	if width > 0 {
		return width
	}
	return terminalWidth(defaultWidth)
}

func terminalWidth(fallback int) int {
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			return w
		}
	}
	if value := os.Getenv("COLUMNS"); value != "" {
		if w, err := strconv.Atoi(value); err == nil && w > 0 {
			return w
		}
	}
	return fallback
}

func resolveOSC8(mode string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return detectOSC8(), nil
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("expected auto|on|off")
	}
}

// resolveColors picks the color depth. auto honours NO_COLOR, COLORTERM and
// TERM, and otherwise assumes a truecolor terminal.
// osc8Terminals lists TERM_PROGRAM values of terminals that render OSC 8
// hyperlinks.
var osc8Terminals = map[string]bool{
	"iTerm.app": true,
	"WezTerm":   true,
	"vscode":    true,
	"ghostty":   true,
}

// detectOSC8 guesses hyperlink support from the environment. OSC8=0 turns
// it off.
func detectOSC8() bool {
	if os.Getenv("OSC8") == "0" {
		return false
	}
	if os.Getenv("DOMTERM") != "" || os.Getenv("WT_SESSION") != "" {
		return true
	}
	if osc8Terminals[os.Getenv("TERM_PROGRAM")] {
		return true
	}
	if strings.Contains(strings.ToLower(os.Getenv("TERM")), "kitty") {
		return true
	}
	vte, err := strconv.Atoi(os.Getenv("VTE_VERSION"))
	return err == nil && vte >= 5000
}

func resolveColors(mode string, boring bool) (mdstream.ColorLevel, error) {
	if boring {
		return mdstream.ColorNone, nil
	}
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != "" && mode != "auto" {
		level, ok := mdstream.ParseColorLevel(mode)
		if !ok {
			return mdstream.ColorNone, fmt.Errorf("expected auto|none|16|256|truecolor")
		}
		return level, nil
	}
	if os.Getenv("NO_COLOR") != "" {
		return mdstream.ColorNone, nil
	}
	switch strings.ToLower(os.Getenv("COLORTERM")) {
	case "truecolor", "24bit":
		return mdstream.ColorTrueColor, nil
	}
	termName := strings.ToLower(os.Getenv("TERM"))
	switch {
	case termName == "dumb":
		return mdstream.ColorNone, nil
	case strings.Contains(termName, "256color"):
		return mdstream.Color256, nil
	}
	return mdstream.ColorTrueColor, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
