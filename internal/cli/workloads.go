package cli

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/me/priosim/internal/workload"
	"github.com/me/priosim/pkg/model"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newWorkloadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workloads",
		Aliases: []string{"wl"},
		Short:   "Manage workloads stored on the priosim server",
	}
	cmd.AddCommand(
		newWorkloadsListCmd(),
		newWorkloadsAddCmd(),
		newWorkloadsShowCmd(),
		newWorkloadsDeleteCmd(),
	)
	return cmd
}

func newWorkloadsListCmd() *cobra.Command {
	var name string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored workloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))
			if name != "" {
				q.Set("name", name)
			}

			var workloads []model.Workload
			resp, err := client.decode("GET", "/api/v1/workloads/?"+q.Encode(), nil, &workloads)
			if err != nil {
				return fmt.Errorf("list workloads: %w", err)
			}
			if len(workloads) == 0 {
				fmt.Fprintln(out, "No workloads found.")
				return nil
			}

			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"ID", "Name", "Processes", "Created"})
			for _, wl := range workloads {
				table.Append([]string{wl.ID, wl.Name, strconv.Itoa(len(wl.Processes)), wl.CreatedAt.Format("2006-01-02 15:04:05")})
			}
			table.Render()

			if resp.Pagination != nil && resp.Pagination.HasMore {
				fmt.Fprintf(out, "\n(%d of %d shown)\n", len(workloads), resp.Pagination.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Only show workloads whose name contains this text")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of workloads to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of workloads to skip")
	return cmd
}

func newWorkloadsAddCmd() *cobra.Command {
	var name, description string
	var labels []string

	cmd := &cobra.Command{
		Use:   "add <workload-file>",
		Short: "Store a workload file on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := workload.LoadFile(args[0])
			if err != nil {
				return err
			}
			if name != "" {
				doc.Name = name
			}
			if description != "" {
				doc.Description = description
			}

			labelMap := map[string]string{}
			for _, l := range labels {
				k, v, ok := strings.Cut(l, "=")
				if !ok || k == "" {
					return fmt.Errorf("invalid label %q (want key=value)", l)
				}
				labelMap[k] = v
			}

			var wl model.Workload
			_, err = client.decode("POST", "/api/v1/workloads/", map[string]any{
				"name":        doc.Name,
				"description": doc.Description,
				"labels":      labelMap,
				"processes":   doc.Processes,
			}, &wl)
			if err != nil {
				return fmt.Errorf("add workload: %w", describeError(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Workload created: %s (%s, %d processes)\n", wl.ID, wl.Name, len(wl.Processes))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Workload name (default: name in file or file name)")
	cmd.Flags().StringVar(&description, "description", "", "Workload description")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "Label as key=value (repeatable)")
	return cmd
}

func newWorkloadsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <workload-id>",
		Short: "Show a stored workload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var wl model.Workload
			if _, err := client.decode("GET", "/api/v1/workloads/"+args[0], nil, &wl); err != nil {
				return fmt.Errorf("get workload: %w", err)
			}

			fmt.Fprintf(out, "Workload: %s\n", wl.ID)
			fmt.Fprintf(out, "  Name:    %s\n", wl.Name)
			if wl.Description != "" {
				fmt.Fprintf(out, "  About:   %s\n", wl.Description)
			}
			for k, v := range wl.Labels {
				fmt.Fprintf(out, "  Label:   %s=%s\n", k, v)
			}
			fmt.Fprintf(out, "  Created: %s\n", wl.CreatedAt.Format("2006-01-02 15:04:05"))

			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Process", "Arrival", "Burst", "Priority"})
			for i, p := range wl.Processes {
				table.Append([]string{
					"P" + strconv.Itoa(i+1),
					strconv.Itoa(p.Arrival),
					strconv.Itoa(p.Burst),
					strconv.Itoa(p.Priority),
				})
			}
			table.Render()
			return nil
		},
	}
}

func newWorkloadsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <workload-id>",
		Short: "Delete a stored workload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := client.Delete("/api/v1/workloads/" + args[0]); err != nil {
				return fmt.Errorf("delete workload: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Workload %s deleted.\n", args[0])
			return nil
		},
	}
}
