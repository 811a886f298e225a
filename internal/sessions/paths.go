package sessions

import (
	"path/filepath"
	"strings"
	"unicode"
)

const unassignedTutor = "unassigned"

// ArtifactDir returns the per-session directory. Once acquisition has pinned
// WorkDir that value wins; otherwise it is <root>/<tutor>/<id>.
func ArtifactDir(root string, s *Session) string {
	if s.WorkDir != "" {
		return s.WorkDir
	}
	tutor := sanitizeSegment(s.TutorID)
	if tutor == "" {
		tutor = unassignedTutor
	}
	return filepath.Join(root, tutor, sanitizeSegment(s.ID))
}

// ReportPath returns the expected analysis report location inside dir.
func ReportPath(dir string, s *Session, suffix string) string {
	return filepath.Join(dir, sanitizeSegment(s.ID)+suffix)
}

func sanitizeSegment(value string) string {
	value = strings.TrimSpace(value)
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), ".")
}
