package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/api"
)

func TestPrintTableFallsBackToTSV(t *testing.T) {
	var buf bytes.Buffer
	printTable(&buf, []string{"ID", "Error"}, [][]string{{"s1", "bad\tvalue"}, {"s2"}}, nil)
	want := "ID\tError\ns1\tbad value\ns2\t\n"
	if buf.String() != want {
		t.Fatalf("unexpected TSV:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestRenderTableBoxed(t *testing.T) {
	out := renderTable([]string{"ID", "Progress"}, [][]string{{"s1", "40%"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "╭") || !strings.Contains(out, "40%") {
		t.Fatalf("expected rounded table, got:\n%s", out)
	}
}

func TestIsTerminalNonFile(t *testing.T) {
	if isTerminal(io.Discard) {
		t.Fatal("expected non-file writer to disable terminal output")
	}
}

func TestRenderStatusLine(t *testing.T) {
	got := renderStatusLine("Analysis", statusWarn, "paused", false)
	if got != "  Analysis:            [WARN] paused" {
		t.Fatalf("unexpected line %q", got)
	}
	colored := renderStatusLine("Analysis", statusOK, "", true)
	if !strings.HasPrefix(colored, ansiGreen) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected colored line, got %q", colored)
	}
}

func TestFormatEvent(t *testing.T) {
	progress := formatEvent(api.Event{Sequence: 3, Type: "session", Session: &api.Session{ID: "s1", Status: "downloading", Lifecycle: "downloading", Progress: 40}})
	if !strings.HasSuffix(progress, "s1 downloading 40%") {
		t.Fatalf("unexpected session event line %q", progress)
	}
	ingest := formatEvent(api.Event{Sequence: 4, Type: "ingest", Counts: map[string]int{"added": 2, "queued": 2}})
	if !strings.Contains(ingest, "added=2") || !strings.Contains(ingest, "queued=2") {
		t.Fatalf("unexpected ingest event line %q", ingest)
	}
	paused := formatEvent(api.Event{Sequence: 5, Type: "queue", Queue: &api.QueueStatus{Pipeline: "analysis", Paused: true}})
	if !strings.HasSuffix(paused, "paused") {
		t.Fatalf("unexpected queue event line %q", paused)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("a  b\nc", 10); got != "a b c" {
		t.Fatalf("expected whitespace collapse, got %q", got)
	}
	if got := truncate("abcdefgh", 4); got != "abc…" {
		t.Fatalf("unexpected truncation %q", got)
	}
}
