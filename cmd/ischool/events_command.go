package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/api"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var since uint64
	var follow bool
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print buffered pipeline events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			emit := func(evt api.Event) error {
				if jsonOut {
					return writeJSON(cmd, evt)
				}
				fmt.Fprintln(out, formatEvent(evt))
				return nil
			}
			return ctx.withClient(func(client *api.Client) error {
				if follow {
					return client.Follow(cmd.Context(), since, emit)
				}
				resp, err := client.Poll(cmd.Context(), since, false)
				if err != nil {
					return err
				}
				for _, evt := range resp.Events {
					if err := emit(evt); err != nil {
						return err
					}
				}
				if !jsonOut {
					writeCursor(out, resp.Next)
				}
				return nil
			})
		},
	}
	cmd.Flags().Uint64Var(&since, "since", 0, "Only show events after this sequence number")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream new events until interrupted")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print one JSON object per event")
	return cmd
}

func formatEvent(evt api.Event) string {
	prefix := fmt.Sprintf("#%d %s %-7s", evt.Sequence, evt.Timestamp, evt.Type)
	switch {
	case evt.Session != nil:
		s := evt.Session
		detail := fmt.Sprintf("%s %s", s.ID, s.Status)
		if s.Lifecycle == "downloading" {
			detail += fmt.Sprintf(" %d%%", s.Progress)
		}
		if s.Error != "" {
			detail += ": " + truncate(s.Error, 80)
		}
		return prefix + " " + detail
	case evt.Queue != nil:
		q := evt.Queue
		detail := fmt.Sprintf("%s queued=%d active=%d/%d", q.Pipeline, q.Queued, q.Active, q.WorkerBudget)
		if q.Paused {
			detail += " paused"
		}
		return prefix + " " + detail
	case len(evt.Counts) > 0:
		return fmt.Sprintf("%s added=%d updated=%d skipped=%d queued=%d", prefix,
			evt.Counts["added"], evt.Counts["updated"], evt.Counts["skipped"], evt.Counts["queued"])
	default:
		return prefix + " " + evt.Message
	}
}

func writeCursor(out io.Writer, next uint64) {
	fmt.Fprintf(out, "next: %d\n", next)
}
