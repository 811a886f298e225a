package acquisition

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/fileutil"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/services"
)

const sniffBytes = 200

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".mov":  {},
	".webm": {},
	".avi":  {},
	".m4v":  {},
}

// transcriptRank orders transcript formats; higher wins.
var transcriptRank = map[string]int{
	".vtt": 3,
	".txt": 2,
	".srt": 1,
}

var markupSignatures = [][]byte{
	[]byte("<!doctype"),
	[]byte("<html"),
	[]byte("google drive"),
}

// Artifacts are the files chosen from an acquired directory.
type Artifacts struct {
	Video      string
	Transcript string
}

// IsVideo reports whether path carries a recognized video extension.
func IsVideo(path string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// SelectArtifacts scans root for the best video and transcript. Videos
// smaller than threshold bytes are sniffed and skipped when they hold markup.
func SelectArtifacts(root string, threshold int64) (Artifacts, error) {
	videos, transcripts, err := scan(root, threshold)
	if err != nil {
		return Artifacts{}, err
	}
	if len(videos) == 0 {
		return Artifacts{}, services.Wrap(services.ErrNotFound, "acquisition", "select artifacts", "video file not found", nil)
	}
	return Artifacts{Video: videos[0].path, Transcript: bestTranscript(transcripts)}, nil
}

// FindTranscript returns the best transcript under root, or "".
func FindTranscript(root string) string {
	_, transcripts, err := scan(root, 0)
	if err != nil {
		return ""
	}
	return bestTranscript(transcripts)
}

type candidate struct {
	path string
	size int64
	rank int
}

// scan returns usable videos sorted largest first and all transcript
// candidates.
func scan(root string, threshold int64) ([]candidate, []candidate, error) {
	var videos, transcripts []candidate
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, fileutil.PartSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := videoExtensions[ext]; ok {
			if info.Size() < threshold && looksLikeMarkup(path) {
				return nil
			}
			videos = append(videos, candidate{path: path, size: info.Size()})
			return nil
		}
		if rank, ok := transcriptRank[ext]; ok && !isReport(d.Name()) {
			transcripts = append(transcripts, candidate{path: path, size: info.Size(), rank: rank})
		}
		return nil
	})
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "acquisition", "scan artifacts", "Failed to scan session directory", err)
	}
	sort.SliceStable(videos, func(i, j int) bool {
		if videos[i].size != videos[j].size {
			return videos[i].size > videos[j].size
		}
		return videos[i].path < videos[j].path
	})
	return videos, transcripts, nil
}

func bestTranscript(transcripts []candidate) string {
	if len(transcripts) == 0 {
		return ""
	}
	best := transcripts[0]
	for _, c := range transcripts[1:] {
		if c.rank > best.rank || (c.rank == best.rank && c.size > best.size) {
			best = c
		}
	}
	return best.path
}

func isReport(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "quality_report") || strings.Contains(lower, "report")
}

// looksLikeMarkup reads the first bytes of path and reports whether they hold
// an HTML page rather than media. Unreadable files count as markup.
func looksLikeMarkup(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()
	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return true
	}
	return hasMarkup(head[:n])
}

func hasMarkup(head []byte) bool {
	lower := bytes.ToLower(head)
	for _, sig := range markupSignatures {
		if bytes.Contains(lower, sig) {
			return true
		}
	}
	return false
}
