package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jh125486/procsched/internal/input"
	"github.com/jh125486/procsched/internal/report"
	"github.com/jh125486/procsched/internal/sched"
)

var (
	logLevel string // Log verbosity level
	outPath  string // Trace destination; empty means next to the input, "-" means stdout
	summary  bool   // Also print the Gantt chart and statistics table
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:           "procsched",
	Short:         "Discrete-time single processor scheduling simulator",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		logrus.SetLevel(level)
		logrus.SetOutput(cmd.ErrOrStderr())
		return nil
	},
}

// runCmd simulates one input file and writes its trace
var runCmd = &cobra.Command{
	Use:   "run <input.in|input.yaml>",
	Short: "Run the scheduling simulation described by an input file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimulation(cmd.OutOrStdout(), args[0], outPath, summary)
	},
}

// checkCmd only parses and validates an input file
var checkCmd = &cobra.Command{
	Use:   "check <input.in|input.yaml>",
	Short: "Validate an input file without simulating it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := input.Load(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(w, "%d processes, runfor %d, use %s", len(cfg.Processes), cfg.RunFor, cfg.Use)
		if cfg.Quantum > 0 {
			_, _ = fmt.Fprintf(w, ", quantum %d", cfg.Quantum)
		}
		_, _ = fmt.Fprintln(w)
		return nil
	},
}

func runSimulation(stdout io.Writer, in, out string, withSummary bool) error {
	cfg, err := input.Load(in)
	if err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	logrus.Infof("simulating %d processes for %d ticks using %s", len(cfg.Processes), cfg.RunFor, policy.Algorithm())
	res := sched.Simulate(cfg.Processes, cfg.RunFor, policy)

	if out == "" {
		out = input.OutputPath(in)
	}
	if err := writeTrace(stdout, out, report.Lines(res)); err != nil {
		return err
	}
	if withSummary {
		report.Gantt(stdout, res.Gantt, res.RunFor)
		report.Summary(stdout, policy.Algorithm().DisplayName(), res)
	}

	return nil
}

func writeTrace(stdout io.Writer, path string, lines []string) (err error) {
	if path == "-" {
		return report.Write(stdout, lines)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing output file: %w", cerr)
		}
	}()
	if err := report.Write(f, lines); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	logrus.Infof("wrote %d lines to %s", len(lines), path)

	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().StringVarP(&outPath, "out", "o", "", `Trace output path ("-" for stdout, default: input with .out extension)`)
	runCmd.Flags().BoolVar(&summary, "summary", false, "Print a Gantt chart and statistics table after the run")

	rootCmd.AddCommand(runCmd, checkCmd)
}
