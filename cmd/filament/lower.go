package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"filament/internal/core"
	"filament/internal/diag"
	"filament/internal/diagfmt"
	"filament/internal/driver"
	"filament/internal/ir"
	"filament/internal/project"
	"filament/internal/source"
	"filament/internal/trace"
	"filament/internal/ui"
)

var (
	lowerOutput string
	lowerFormat string
)

func init() {
	lowerCmd.Flags().StringVarP(&lowerOutput, "output", "o", "-", "where to write the lowered program")
	lowerCmd.Flags().StringVar(&lowerFormat, "format", "text", "output format (text|msgpack)")
}

var lowerCmd = &cobra.Command{
	Use:   "lower <program.mp>",
	Short: "Eliminate signature bundles from a program",
	Long:  "Reads a msgpack-encoded program (- for stdin) and writes it with every signature bundle split into scalar ports.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if lowerFormat != "text" && lowerFormat != "msgpack" {
			return fmt.Errorf("unsupported format %q (must be text or msgpack)", lowerFormat)
		}
		res, err := runLower(cmd, args[0], false)
		if err != nil {
			return err
		}
		return writeOutput(lowerOutput, func(w io.Writer) error {
			if lowerFormat == "msgpack" {
				return core.Encode(w, res.Program)
			}
			return core.Print(w, res.Program)
		})
	},
}

var irCmd = &cobra.Command{
	Use:   "ir <program.mp>",
	Short: "Lower a program and print its arena IR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runLower(cmd, args[0], true)
		if err != nil {
			return err
		}
		return writeOutput("-", func(w io.Writer) error { return ir.Dump(w, res.IR) })
	},
}

// runLower loads the manifest, sets up tracing and runs the driver. On
// failure the diagnostics are printed before the error is returned.
func runLower(cmd *cobra.Command, input string, buildIR bool) (*driver.Result, error) {
	m, err := loadManifest(input)
	if err != nil {
		return nil, err
	}
	cleanup, err := setupTracing(cmd, m)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	opts, err := driverOptions(cmd, m)
	if err != nil {
		return nil, err
	}
	opts.BuildIR = buildIR

	data, err := readInput(input)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"input": input, "bytes": len(data)}).Debug("loaded program")

	stopProgress, err := startProgress(cmd, input)
	if err != nil {
		return nil, err
	}
	res, lowerErr := driver.Lower(cmd.Context(), data, opts)
	if err := stopProgress(); err != nil {
		log.WithError(err).Warn("progress display failed")
	}
	if res != nil {
		log.WithFields(log.Fields{"key": res.Key.String()[:12], "cached": res.Cached}).Debug("lowered")
		if timings, _ := cmd.Flags().GetBool("timings"); timings {
			printTimings(cmd.ErrOrStderr(), res)
		}
		if res.Diags.Len() > 0 {
			if err := printDiagnostics(cmd, res.Diags, opts.Files); err != nil {
				return nil, err
			}
		}
	}
	if lowerErr != nil {
		return nil, lowerErr
	}
	return res, nil
}

func printDiagnostics(cmd *cobra.Command, bag *diag.Bag, fs *source.FileSet) error {
	format, _ := cmd.Flags().GetString("diag-format")
	mode, _ := cmd.Flags().GetString("path-mode")
	pathMode, err := parsePathMode(mode)
	if err != nil {
		return err
	}
	base, _ := os.Getwd()
	w := cmd.ErrOrStderr()
	switch format {
	case "pretty":
		colored, err := useColor(cmd)
		if err != nil {
			return err
		}
		diagfmt.Pretty(w, bag, fs, diagfmt.PrettyOpts{
			Color:     colored,
			Context:   1,
			PathMode:  pathMode,
			BaseDir:   base,
			ShowNotes: true,
		})
	case "short":
		diagfmt.Short(w, bag, fs, true)
	case "json":
		return diagfmt.JSON(w, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			BaseDir:          base,
			IncludeNotes:     true,
		})
	default:
		return fmt.Errorf("invalid --diag-format %q (expected pretty|short|json)", format)
	}
	return nil
}

func parsePathMode(mode string) (diagfmt.PathMode, error) {
	switch mode {
	case "auto":
		return diagfmt.PathModeAuto, nil
	case "absolute":
		return diagfmt.PathModeAbsolute, nil
	case "relative":
		return diagfmt.PathModeRelative, nil
	case "basename":
		return diagfmt.PathModeBasename, nil
	default:
		return 0, fmt.Errorf("invalid --path-mode %q (expected auto|absolute|relative|basename)", mode)
	}
}

// startProgress shows live per-component progress on stderr when
// --progress asks for it. The returned function stops the display.
func startProgress(cmd *cobra.Command, input string) (func() error, error) {
	mode, err := cmd.Flags().GetString("progress")
	if err != nil {
		return nil, err
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}
	on, err := triState("progress", mode, isTerminal(os.Stderr) && !verbose)
	if err != nil || !on {
		return func() error { return nil }, err
	}

	events := make(chan ui.Event, 64)
	inner := trace.FromContext(cmd.Context())
	tracer := trace.NewMultiTracer(max(inner.Level(), trace.LevelDetail), inner, ui.NewTracer(events))
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	wait := ui.Run("lower "+filepath.Base(input), events, tea.WithOutput(cmd.ErrOrStderr()), tea.WithInput(nil))
	return func() error {
		close(events)
		return wait()
	}, nil
}

func loadManifest(input string) (project.Manifest, error) {
	dir := "."
	if input != "-" {
		dir = filepath.Dir(input)
	}
	m, err := project.Discover(dir)
	if err != nil {
		return project.Manifest{}, err
	}
	if m.Root != "" {
		log.WithField("root", m.Root).Debug("using " + project.ManifestName)
	}
	return m, nil
}

// driverOptions merges the manifest with the command-line flags.
func driverOptions(cmd *cobra.Command, m project.Manifest) (driver.Options, error) {
	flags := cmd.Flags()
	opts := driver.Options{
		Jobs:      m.Compile.Jobs,
		Validate:  m.Compile.Validate,
		Files:     source.NewFileSet(),
		CrashDump: cmd.ErrOrStderr(),
	}
	jobs, err := flags.GetInt("jobs")
	if err != nil {
		return opts, err
	}
	if jobs >= 0 {
		opts.Jobs = jobs
	}
	if opts.MaxDiagnostics, err = flags.GetInt("max-diagnostics"); err != nil {
		return opts, err
	}

	srcs, err := flags.GetStringSlice("src")
	if err != nil {
		return opts, err
	}
	for _, path := range srcs {
		if _, err := opts.Files.Load(path); err != nil {
			return opts, err
		}
		log.WithField("path", path).Debug("loaded source")
	}

	noCache, err := flags.GetBool("no-cache")
	if err != nil {
		return opts, err
	}
	if !noCache && m.Compile.Cache != "" {
		cache, err := driver.OpenDiskCache(m.Compile.Cache)
		if err != nil {
			log.WithError(err).Warn("lowering cache disabled")
		} else {
			opts.Cache = cache
		}
	}
	return opts, nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, write func(io.Writer) error) (err error) {
	if path == "-" {
		w := bufio.NewWriter(os.Stdout)
		if err := write(w); err != nil {
			return err
		}
		return w.Flush()
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	log.WithField("path", path).Debug("writing output")
	return write(f)
}

func printTimings(w io.Writer, res *driver.Result) {
	if len(res.Timings.Phases) > 0 {
		fmt.Fprint(w, res.Timings.String())
	}
}

// useColor resolves --color against the terminal on stderr.
func useColor(cmd *cobra.Command) (bool, error) {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return false, err
	}
	return triState("color", mode, isTerminal(os.Stderr) && os.Getenv("NO_COLOR") == "")
}

// triState resolves an auto|on|off flag; auto takes the given default.
func triState(flag, mode string, auto bool) (bool, error) {
	switch mode {
	case "auto":
		return auto, nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --%s %q (expected auto|on|off)", flag, mode)
	}
}
