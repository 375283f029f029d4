// Command filament lowers front-end programs: it eliminates signature
// bundles and optionally prints the arena IR handed to the checker.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"filament/internal/prof"
	"filament/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "filament",
	Short:         "Filament compiler middle-end",
	Long:          `filament lowers a parsed Filament program: bundle elimination, validation and IR construction`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return err
		}
		log.SetOutput(cmd.ErrOrStderr())
		if verbose {
			log.SetLevel(log.DebugLevel)
		} else {
			log.SetLevel(log.WarnLevel)
		}
		return startProfiling(cmd)
	},
}

// profiling is stopped by main so the profiles are written even when the
// command fails.
var profiling *prof.Session

func startProfiling(cmd *cobra.Command) error {
	flags := cmd.Flags()
	cpu, _ := flags.GetString("cpuprofile")
	mem, _ := flags.GetString("memprofile")
	exec, _ := flags.GetString("exectrace")
	s, err := prof.Start(cpu, mem, exec)
	if err != nil {
		return err
	}
	if s.Active() {
		log.WithFields(log.Fields{"cpu": cpu, "mem": mem, "trace": exec}).Debug("profiling")
	}
	profiling = s
	return nil
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(lowerCmd)
	rootCmd.AddCommand(irCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("verbose", false, "log what is loaded and written")
	flags.Bool("timings", false, "print phase timings to stderr")
	flags.String("progress", "off", "show per-component progress (auto|on|off)")
	flags.Int("jobs", -1, "components lowered in parallel (0 = all cores, -1 = from filament.toml)")
	flags.Bool("no-cache", false, "do not read or write the lowering cache")
	flags.Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	flags.String("diag-format", "pretty", "diagnostic format (pretty|short|json)")
	flags.String("path-mode", "auto", "file paths in diagnostics (auto|absolute|relative|basename)")
	flags.StringSlice("src", nil, "source files in the order the front end numbered them")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	flags.Int("trace-ring-size", -1, "events kept for crash dumps (-1 = from filament.toml)")
	flags.String("cpuprofile", "", "write a CPU profile to this file")
	flags.String("memprofile", "", "write a heap profile to this file on exit")
	flags.String("exectrace", "", "write a runtime execution trace to this file")
}

func main() {
	err := rootCmd.Execute()
	if perr := profiling.Stop(); perr != nil {
		log.Warn(perr)
	}
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
