package acquisition

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/services"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/testsupport"
)

func TestSelectArtifactsPrefersLargestVideo(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "small.mp4"), 200_000)
	testsupport.WriteFile(t, filepath.Join(dir, "nested", "big.mkv"), 300_000)

	arts, err := SelectArtifacts(dir, 100_000)
	if err != nil {
		t.Fatalf("SelectArtifacts: %v", err)
	}
	if filepath.Base(arts.Video) != "big.mkv" {
		t.Fatalf("video = %s, want big.mkv", arts.Video)
	}
}

func TestSelectArtifactsRejectsMarkupVideo(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteBytes(t, filepath.Join(dir, "video.mp4"), []byte("<!DOCTYPE html><html><title>Google Drive - Quota exceeded</title>"))

	_, err := SelectArtifacts(dir, 100_000)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := services.FailureMessage(err); got != "video file not found" {
		t.Fatalf("message = %q", got)
	}
}

func TestSelectArtifactsKeepsSmallRealVideo(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "clip.webm"), 500)

	arts, err := SelectArtifacts(dir, 100_000)
	if err != nil {
		t.Fatalf("SelectArtifacts: %v", err)
	}
	if filepath.Base(arts.Video) != "clip.webm" {
		t.Fatalf("video = %s", arts.Video)
	}
}

func TestSelectArtifactsRanksTranscripts(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "video.mp4"), 1000)
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), 5000)
	testsupport.WriteFile(t, filepath.Join(dir, "captions.srt"), 5000)
	testsupport.WriteFile(t, filepath.Join(dir, "captions.vtt"), 10)
	testsupport.WriteFile(t, filepath.Join(dir, "S1_Quality_Report_RAG.txt"), 9000)

	arts, err := SelectArtifacts(dir, 0)
	if err != nil {
		t.Fatalf("SelectArtifacts: %v", err)
	}
	if filepath.Base(arts.Transcript) != "captions.vtt" {
		t.Fatalf("transcript = %s, want captions.vtt", arts.Transcript)
	}
}

func TestFindTranscriptSkipsReports(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "final_report.vtt"), 10)
	if got := FindTranscript(dir); got != "" {
		t.Fatalf("report file chosen as transcript: %s", got)
	}
	testsupport.WriteFile(t, filepath.Join(dir, "session.txt"), 10)
	if got := FindTranscript(dir); filepath.Base(got) != "session.txt" {
		t.Fatalf("transcript = %s", got)
	}
}

func TestSelectArtifactsMissingDirectory(t *testing.T) {
	_, err := SelectArtifacts(filepath.Join(t.TempDir(), "missing"), 0)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHasMarkupIsCaseInsensitive(t *testing.T) {
	for _, head := range []string{"<HTML>", "  <!doctype html>", "Sign in - Google Drive"} {
		if !hasMarkup([]byte(head)) {
			t.Errorf("expected markup for %q", head)
		}
	}
	if hasMarkup([]byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p'}) {
		t.Error("mp4 header misdetected as markup")
	}
}
