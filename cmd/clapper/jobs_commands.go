package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clapper/internal/api"
	"clapper/internal/queue"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect queue jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload api.JobsResponse
			path := "/api/jobs"
			if limit > 0 {
				path = fmt.Sprintf("/api/jobs?limit=%d", limit)
			}
			if err := ctx.apiGet(cmd.Context(), path, &payload); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, payload)
			}

			if len(payload.Jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
				return nil
			}
			rows := make([][]string, 0, len(payload.Jobs))
			for _, job := range payload.Jobs {
				rows = append(rows, []string{
					job.ID,
					job.MediaFileID,
					job.Type,
					job.Status,
					fmt.Sprintf("%d%%", job.Progress),
					job.ClaimedBy,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(cmd.OutOrStdout(),
				[]string{"ID", "Media File", "Type", "Status", "Progress", "Claimed By"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of jobs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			var view api.JobView
			if err := ctx.apiGet(cmd.Context(), "/api/jobs/"+id, &view); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %s\n", view.ID)
			fmt.Fprintf(out, "  Media file: %s\n", view.MediaFileID)
			fmt.Fprintf(out, "  Type:       %s\n", view.Type)
			fmt.Fprintf(out, "  Status:     %s (%d%%)\n", view.Status, view.Progress)
			if view.ClaimedBy != "" {
				fmt.Fprintf(out, "  Claimed by: %s\n", view.ClaimedBy)
			}
			if view.LastHeartbeat != nil {
				fmt.Fprintf(out, "  Heartbeat:  %s\n", view.LastHeartbeat.Format("2006-01-02 15:04:05 MST"))
			}
			if view.ErrorMessage != "" {
				fmt.Fprintf(out, "  Error:      %s\n", view.ErrorMessage)
			}
			fmt.Fprintf(out, "  Created:    %s\n", view.CreatedAt.Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintf(out, "  Updated:    %s\n", view.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var jobType string

	cmd := &cobra.Command{
		Use:   "enqueue <media-file-id>",
		Short: "Queue a duration-extraction job for a media record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mediaFileID := strings.TrimSpace(args[0])
			if mediaFileID == "" {
				return fmt.Errorf("media file id is required")
			}
			return ctx.withStore(cmd.Context(), func(store *queue.Store) error {
				job, err := store.Enqueue(cmd.Context(), mediaFileID, jobType)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued job %s for media file %s\n", job.ID, job.MediaFileID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&jobType, "type", "duration", "Job type to enqueue")
	return cmd
}
