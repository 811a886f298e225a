package sessions

import (
	"path/filepath"
	"testing"
	"time"
)

func TestProtectedFieldSet(t *testing.T) {
	protected := []Field{
		FieldID, FieldVideoRef, FieldTranscriptRef, FieldReportRef, FieldWorkDir,
		FieldLifecycle, FieldAcquisitionStatus, FieldAnalysisStatus,
		FieldProgress, FieldError, FieldAuditComments, FieldAuditApproved,
		FieldAuditedAt, FieldAuditStatus,
	}
	for _, f := range protected {
		if !f.Protected() {
			t.Errorf("%s should be protected", f)
		}
	}
	for _, f := range DescriptiveFields() {
		if f.Protected() {
			t.Errorf("%s listed as descriptive but protected", f)
		}
	}
	if len(DescriptiveFields())+len(protected) != int(fieldCount) {
		t.Fatalf("field partition incomplete")
	}
	if !Field(99).Protected() {
		t.Fatal("unknown fields must be treated as protected")
	}
}

func TestSetDescriptiveRejectsProtected(t *testing.T) {
	s := New("S1")
	if s.SetDescriptive(FieldLifecycle, "completed") {
		t.Fatal("expected protected field to be rejected")
	}
	if !s.SetDescriptive(FieldFolderLink, "https://drive.google.com/drive/folders/x") {
		t.Fatal("expected descriptive field to be accepted")
	}
	if s.Descriptive(FieldFolderLink) == "" {
		t.Fatal("expected folder link to round through Descriptive")
	}
}

func TestLifecycleTransitions(t *testing.T) {
	s := New("S1")
	s.MarkDownloading("")
	if s.Lifecycle != LifecycleDownloading || s.Progress != 0 {
		t.Fatalf("unexpected downloading state: %+v", s)
	}
	s.Error = "old failure"
	s.MarkAcquired("/v.mp4", "/t.vtt")
	if !s.Ready() || s.Progress != 100 || s.Error != "" {
		t.Fatalf("unexpected ready state: %+v", s)
	}
	if s.StatusLabel() != "pending(ready)" {
		t.Fatalf("unexpected label %q", s.StatusLabel())
	}
	start := time.Now()
	s.MarkAnalyzing(start)
	s.MarkAnalyzed("/r.txt", start.Add(time.Minute))
	if s.Lifecycle != LifecycleCompleted || s.ReportRef != "/r.txt" {
		t.Fatalf("unexpected completed state: %+v", s)
	}
	if d, ok := s.AnalysisDuration(); !ok || d != time.Minute {
		t.Fatalf("unexpected duration %s", d)
	}

	f := New("S2")
	f.MarkAcquisitionFailed("")
	if f.Error != "unknown failure" || f.Acquisition != AcquisitionFailed {
		t.Fatalf("unexpected failed state: %+v", f)
	}
}

func TestArtifactPaths(t *testing.T) {
	s := New("T1_20250105_10am")
	s.TutorID = "T/1"
	dir := ArtifactDir("/data", s)
	if dir != filepath.Join("/data", "T_1", "T1_20250105_10am") {
		t.Fatalf("unexpected dir %q", dir)
	}
	if got := ReportPath(dir, s, "_Quality_Report_RAG.txt"); got != filepath.Join(dir, "T1_20250105_10am_Quality_Report_RAG.txt") {
		t.Fatalf("unexpected report path %q", got)
	}
	s.TutorID = ""
	if filepath.Base(filepath.Dir(ArtifactDir("/data", s))) != unassignedTutor {
		t.Fatal("expected unassigned tutor directory")
	}
	s.MarkDownloading(ArtifactDir("/data", s))
	s.TutorID = "T1"
	if got := ArtifactDir("/data", s); got != filepath.Join("/data", unassignedTutor, "T1_20250105_10am") {
		t.Fatalf("pinned dir should survive a tutor change, got %q", got)
	}
	if _, ok := ParseLifecycle(" Completed "); !ok {
		t.Fatal("expected lifecycle to parse")
	}
}
