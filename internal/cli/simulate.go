package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/me/priosim/internal/report"
	"github.com/me/priosim/internal/workload"
	"github.com/me/priosim/pkg/model"
	"github.com/spf13/cobra"
)

type stepResult struct {
	Event    model.Event    `json:"event"`
	Snapshot model.Snapshot `json:"snapshot"`
}

func newSimulateCmd() *cobra.Command {
	var quiet, keep bool
	var export, output string

	cmd := &cobra.Command{
		Use:   "simulate <workload-id | workload-file>",
		Short: "Simulate a workload on the priosim server",
		Long: `Creates a session on the server from a stored workload id (wl_...) or a local
workload file, steps it to completion and prints the results.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if export != "" {
				if err := report.CheckFormat(export); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()

			body := map[string]any{}
			if _, statErr := os.Stat(args[0]); statErr != nil && strings.HasPrefix(args[0], "wl_") {
				body["workload_id"] = args[0]
			} else {
				doc, err := workload.LoadFile(args[0])
				if err != nil {
					return err
				}
				body["processes"] = doc.Processes
			}

			var info model.SessionInfo
			if _, err := client.decode("POST", "/api/v1/sessions/", body, &info); err != nil {
				return fmt.Errorf("create session: %w", describeError(err))
			}
			base := "/api/v1/sessions/" + info.ID
			if !keep {
				defer client.Delete(base)
			}
			if !quiet {
				fmt.Fprintf(out, "Session %s: %d processes\n", info.ID, info.Total)
			}

			if _, err := client.Post(base+"/start", nil); err != nil {
				return fmt.Errorf("start session: %w", err)
			}

			var last stepResult
			for last.Snapshot.State != model.EngineStateCompleted {
				if _, err := client.decode("POST", base+"/step", nil, &last); err != nil {
					return fmt.Errorf("step: %w", err)
				}
				if !quiet {
					report.WriteEvent(out, last.Event)
				}
			}

			var m model.RunMetrics
			if _, err := client.decode("GET", base+"/metrics", nil, &m); err != nil {
				return fmt.Errorf("get metrics: %w", err)
			}
			if !quiet {
				fmt.Fprintln(out)
				report.WriteGantt(out, last.Snapshot.Timeline)
				fmt.Fprintln(out)
			}
			report.WriteResults(out, &m)

			if export != "" {
				return exportMetrics(out, export, output, &m)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the results")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep the session on the server afterwards")
	cmd.Flags().StringVar(&export, "export", "", "Export metrics as csv, json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Export destination file (default stdout)")

	return cmd
}
