package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"filament/internal/project"
	"filament/internal/trace"
)

// setupTracing builds the tracer from the flags, falling back to the
// manifest, and attaches it to the command context.
func setupTracing(cmd *cobra.Command, m project.Manifest) (func(), error) {
	flags := cmd.Root().PersistentFlags()

	output, err := flags.GetString("trace")
	if err != nil {
		return nil, err
	}
	if output == "" {
		output = m.Trace.Output
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return nil, err
	}
	if levelStr == "" {
		levelStr = m.Trace.Level
	}
	formatStr, err := flags.GetString("trace-format")
	if err != nil {
		return nil, err
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, err
	}
	if ringSize < 0 {
		ringSize = m.Trace.Ring
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}
	// The ring is useful even with tracing off: it feeds crash dumps.
	if level == trace.LevelOff && ringSize > 0 {
		level = trace.LevelError
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Format:     format,
		OutputPath: output,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	cleanup := func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}
