package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/me/priosim/internal/engine"
	"github.com/me/priosim/internal/registry"
	"github.com/me/priosim/internal/report"
	"github.com/me/priosim/internal/workload"
	"github.com/me/priosim/pkg/model"
	"github.com/spf13/cobra"
)

type runOptions struct {
	sample       bool
	interactive  bool
	quiet        bool
	export       string
	output       string
	maxProcesses int
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [workload-file]",
		Short: "Simulate a workload locally",
		Long: `Loads a workload (YAML, JSON or CSV) and simulates it step by step,
printing every scheduling decision, the Gantt chart and the results table.

With --interactive each step waits for Enter; type q to stop early.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.export != "" {
				if err := report.CheckFormat(opts.export); err != nil {
					return err
				}
			}
			var doc *workload.Document
			switch {
			case opts.sample && len(args) > 0:
				return fmt.Errorf("use either a workload file or --sample")
			case opts.sample:
				doc = workload.Sample()
			case len(args) == 1:
				var err error
				if doc, err = workload.LoadFile(args[0]); err != nil {
					return err
				}
			default:
				return fmt.Errorf("provide a workload file or --sample")
			}
			return runLocal(cmd.InOrStdin(), cmd.OutOrStdout(), doc, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.sample, "sample", false, "Use the built-in seven-process sample workload")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Wait for Enter before every step")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Only print the results")
	cmd.Flags().StringVar(&opts.export, "export", "", "Export metrics as csv, json or yaml")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Export destination file (default stdout)")
	cmd.Flags().IntVar(&opts.maxProcesses, "max-processes", registry.DefaultMaxProcesses, "Largest accepted process set")

	return cmd
}

func runLocal(in io.Reader, out io.Writer, doc *workload.Document, opts runOptions) error {
	reg, err := registry.New(doc.Processes, opts.maxProcesses)
	if err != nil {
		return describeError(err)
	}
	eng := engine.New(reg, logger)
	if err := eng.Start(); err != nil {
		return err
	}

	if !opts.quiet {
		fmt.Fprintf(out, "Workload %s: %d processes\n", doc.Name, reg.Len())
	}

	prompt := bufio.NewScanner(in)
	for eng.State() != model.EngineStateCompleted {
		if opts.interactive {
			report.WriteReadyQueue(out, eng.ReadyQueue())
			fmt.Fprintf(out, "[t=%d] press Enter to step, q to quit: ", eng.Time())
			if !prompt.Scan() || strings.EqualFold(strings.TrimSpace(prompt.Text()), "q") {
				fmt.Fprintln(out, "\nstopped before completion")
				return nil
			}
		}
		ev, err := eng.Step()
		if err != nil {
			return err
		}
		if !opts.quiet {
			report.WriteEvent(out, ev)
		}
	}

	m, err := eng.ComputeMetrics()
	if err != nil {
		return err
	}
	if !opts.quiet {
		fmt.Fprintln(out)
		report.WriteGantt(out, eng.Timeline())
		fmt.Fprintln(out)
	}
	report.WriteResults(out, m)

	if opts.export != "" {
		return exportMetrics(out, opts.export, opts.output, m)
	}
	return nil
}

func exportMetrics(out io.Writer, format, path string, m *model.RunMetrics) error {
	if path == "" {
		fmt.Fprintln(out)
		return report.Export(out, format, m)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := report.Export(f, format, m); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	fmt.Fprintf(out, "Metrics written to %s\n", path)
	return nil
}

// describeError expands validation details into a multi-line error.
func describeError(err error) error {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Details) == 0 {
		return err
	}
	var b strings.Builder
	b.WriteString(apiErr.Message)
	for _, d := range apiErr.Details {
		fmt.Fprintf(&b, "\n  %s: %s", d.Field, d.Message)
	}
	return fmt.Errorf("%s", b.String())
}
