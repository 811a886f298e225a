package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/api"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "ingest FILE",
		Short: "Upload a CSV or XLSX session sheet to the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Upload(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Added %d, updated %d, queued %d, skipped %d\n",
					resp.Added, resp.Updated, resp.Queued, len(resp.Skipped))
				for _, row := range resp.Skipped {
					fmt.Fprintf(out, "  line %d: %s\n", row.Line, row.Reason)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the response as JSON")
	return cmd
}

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var jsonOut bool
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"ls"},
		Short:   "List sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *api.Client) error {
				items, err := client.Sessions(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sessions")
					return nil
				}
				printTable(cmd.OutOrStdout(), sessionHeaders, sessionRows(items), sessionAligns)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by lifecycle status (repeatable or comma separated)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print sessions as JSON")
	return cmd
}

var (
	sessionHeaders = []string{"ID", "Tutor", "Date", "Status", "Progress", "Audit", "Error"}
	sessionAligns  = []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
)

func sessionRows(items []api.Session) [][]string {
	rows := make([][]string, 0, len(items))
	for _, s := range items {
		tutor := s.TutorID
		if s.TutorName != "" {
			tutor = fmt.Sprintf("%s (%s)", s.TutorName, s.TutorID)
		}
		audit := s.Audit.Status
		if s.Audit.Approved {
			audit = strings.TrimSpace("approved " + audit)
		}
		rows = append(rows, []string{
			s.ID,
			tutor,
			s.SessionDate,
			s.Status,
			strconv.Itoa(s.Progress) + "%",
			audit,
			truncate(s.Error, 60),
		})
	}
	return rows
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				s, err := client.Session(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, s)
				}
				printSession(cmd, s)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the session as JSON")
	return cmd
}

func printSession(cmd *cobra.Command, s *api.Session) {
	out := cmd.OutOrStdout()
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(out, "%-14s %s\n", label+":", value)
		}
	}
	field("ID", s.ID)
	field("Tutor", strings.TrimSpace(s.TutorName+" "+s.TutorID))
	field("Subject", s.Subject)
	field("Date", strings.TrimSpace(s.SessionDate+" "+s.TimeSlot))
	field("Status", s.Status)
	field("Acquisition", fmt.Sprintf("%s (%d%%)", s.Acquisition, s.Progress))
	field("Analysis", s.Analysis)
	field("Source link", s.SourceLink)
	field("Folder link", s.FolderLink)
	field("Video", s.VideoRef)
	field("Transcript", s.TranscriptRef)
	field("Report", s.ReportRef)
	if s.AnalysisSeconds > 0 {
		field("Analysis time", fmt.Sprintf("%.1fs", s.AnalysisSeconds))
	}
	field("Error", s.Error)
	field("Reviewed", s.Audit.AuditedAt)
	if s.Audit.AuditedAt != "" {
		field("Approved", yesNo(s.Audit.Approved))
	}
	field("Review status", s.Audit.Status)
	field("Comments", s.Audit.Comments)
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry ID...",
		Short: "Resubmit failed sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				return forEachID(cmd.Context(), args, func(id string) (string, error) {
					s, err := client.Retry(cmd.Context(), id)
					if err != nil {
						return "", err
					}
					return fmt.Sprintf("Session %s resubmitted (%s)", id, s.Status), nil
				}, cmd)
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove ID...",
		Aliases: []string{"rm"},
		Short:   "Delete session records",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				return forEachID(cmd.Context(), args, func(id string) (string, error) {
					if _, err := client.Remove(cmd.Context(), id); err != nil {
						return "", err
					}
					return "Session " + id + " removed", nil
				}, cmd)
			})
		},
	}
}

// forEachID runs fn per id, reporting each outcome and failing if any did.
func forEachID(ctx context.Context, ids []string, fn func(string) (string, error), cmd *cobra.Command) error {
	var failed []string
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := fn(id)
		if err != nil {
			var statusErr *api.StatusError
			if errors.As(err, &statusErr) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", id, statusErr.Message)
				failed = append(failed, id)
				continue
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d sessions failed: %s", len(failed), len(ids), strings.Join(failed, ", "))
	}
	return nil
}

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var req api.AuditRequest
	cmd := &cobra.Command{
		Use:   "audit ID",
		Short: "Record human review of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				s, err := client.Audit(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %s reviewed at %s (approved: %s)\n",
					s.ID, s.Audit.AuditedAt, yesNo(s.Audit.Approved))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&req.Comments, "comments", "m", "", "Review comments")
	cmd.Flags().BoolVar(&req.Approved, "approve", false, "Mark the report as approved")
	cmd.Flags().StringVar(&req.Status, "status", "", "Free-form review status")
	return cmd
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop all queued and running pipeline work",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Reset(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), titleCase(resp.Message))
				return nil
			})
		},
	}
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
