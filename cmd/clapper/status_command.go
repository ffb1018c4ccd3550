package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clapper/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running worker's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload api.StatusResponse
			if err := ctx.apiGet(cmd.Context(), "/api/status", &payload); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			state := "stopped"
			if payload.Worker.Running {
				state = "running"
			}
			fmt.Fprintf(out, "Worker %s (%s) is %s\n", payload.Worker.WorkerName, payload.Worker.JobType, state)
			if payload.Worker.StartedAt != nil {
				fmt.Fprintf(out, "Started: %s\n", payload.Worker.StartedAt.Format("2006-01-02 15:04:05 MST"))
			}
			if payload.Worker.CurrentJobID != "" {
				fmt.Fprintf(out, "Current job: %s\n", payload.Worker.CurrentJobID)
			}
			fmt.Fprintf(out, "Processed: %d  Failed: %d\n", payload.Worker.Processed, payload.Worker.Failed)
			if payload.Worker.LastError != "" {
				fmt.Fprintf(out, "Last error: %s\n", payload.Worker.LastError)
			}

			for _, dep := range payload.Dependencies {
				mark := "ok"
				if !dep.Available {
					mark = "missing"
					if dep.Detail != "" {
						mark = dep.Detail
					}
				}
				fmt.Fprintf(out, "Dependency %s: %s\n", dep.Name, mark)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Summarize queue health from the shared store",
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload api.HealthResponse
			if err := ctx.apiGet(cmd.Context(), "/healthz", &payload); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, payload)
			}

			rows := [][]string{
				{"queued", fmt.Sprintf("%d", payload.Queued)},
				{"processing", fmt.Sprintf("%d", payload.Processing)},
				{"complete", fmt.Sprintf("%d", payload.Complete)},
				{"failed", fmt.Sprintf("%d", payload.Failed)},
				{"total", fmt.Sprintf("%d", payload.Total)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(cmd.OutOrStdout(), []string{"Status", "Jobs"}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}
