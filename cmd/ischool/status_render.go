package main

import (
	"fmt"
	"strings"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/api"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := "[" + statusKindLabel(kind) + "]"
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func queueLine(q api.QueueStatus, colorize bool) string {
	kind := statusOK
	message := fmt.Sprintf("%d queued, %d/%d active, %d done, %d failed",
		q.Queued, q.Active, q.WorkerBudget, q.Completed, q.Failed)
	if q.Paused {
		kind = statusWarn
		message += ", paused"
		if q.PausedUntil != "" {
			message += " until " + q.PausedUntil
		}
	}
	return renderStatusLine(titleCase(q.Pipeline), kind, message, colorize)
}

func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps))
	for _, dep := range deps {
		kind := statusOK
		message := "ready"
		if !dep.Passed {
			kind = statusError
			message = "unavailable"
		}
		if dep.Detail != "" {
			message += " (" + dep.Detail + ")"
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, message, colorize))
	}
	return lines
}

func statusLines(status *api.DaemonStatus, colorize bool) []string {
	lines := renderSectionHeader("Daemon", colorize)
	lines = append(lines,
		renderStatusLine("Running", boolKind(status.Running), yesNo(status.Running), colorize),
		renderStatusLine("PID", statusInfo, fmt.Sprint(status.PID), colorize),
		renderStatusLine("Database", statusInfo, status.DatabasePath, colorize),
	)

	wf := status.Workflow
	lines = append(lines, renderSectionHeader("Pipelines", colorize)...)
	for _, q := range wf.Queues {
		lines = append(lines, queueLine(q, colorize))
	}
	if wf.LastError != "" {
		lines = append(lines, renderStatusLine("Last failure", statusWarn,
			fmt.Sprintf("%s: %s", wf.LastFailedSession, wf.LastError), colorize))
	}
	if n := len(wf.Recovered.Stranded); n > 0 {
		lines = append(lines, renderStatusLine("Stranded", statusWarn,
			fmt.Sprintf("%d ready sessions lost their video: %s", n, strings.Join(wf.Recovered.Stranded, ", ")), colorize))
	}

	lines = append(lines, renderSectionHeader("Sessions", colorize)...)
	lines = append(lines, renderStatusLine("Total", statusInfo,
		fmt.Sprintf("%d (%d ready for analysis)", wf.Sessions.Total, wf.Sessions.Ready), colorize))
	for _, lifecycle := range []string{"pending", "downloading", "analyzing", "completed", "failed"} {
		if n := wf.Sessions.ByLifecycle[lifecycle]; n > 0 {
			lines = append(lines, renderStatusLine(titleCase(lifecycle), statusInfo, fmt.Sprint(n), colorize))
		}
	}
	if d := wf.AnalysisDurations; d.Samples > 0 {
		lines = append(lines, renderStatusLine("Analysis time", statusInfo,
			fmt.Sprintf("mean %.0fs, median %.0fs, p90 %.0fs over %d runs", d.MeanSeconds, d.MedianSeconds, d.P90Seconds, d.Samples), colorize))
	}

	if len(status.Dependencies) > 0 {
		lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
		lines = append(lines, dependencyLines(status.Dependencies, colorize)...)
	}
	return lines
}

func boolKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}

func titleCase(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
