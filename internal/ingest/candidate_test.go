package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateResolvesHeaderAliases(t *testing.T) {
	row := Row{Line: 2, Fields: map[string]string{
		"Tutor ID":       " T-42 ",
		"Session Data":   "2024-03-05",
		"Time Slot":      "10:00 AM",
		"Instructor":     "  mona   ALI ",
		"Course":         "Python",
		"Recording Link": "https://example.com/video.mp4",
	}}

	s, err := Candidate(row)
	require.NoError(t, err)
	assert.Equal(t, "T-42_20240305_1000am", s.ID)
	assert.Equal(t, "T-42", s.TutorID)
	assert.Equal(t, "Mona Ali", s.TutorName)
	assert.Equal(t, "Python", s.Subject)
	assert.Equal(t, "https://example.com/video.mp4", s.SourceLink)
	assert.Empty(t, s.FolderLink)
	assert.Equal(t, "pending", string(s.Lifecycle))
}

func TestCandidatePrefersExplicitID(t *testing.T) {
	s, err := Candidate(Row{Fields: map[string]string{"Session ID": "S-1"}})
	require.NoError(t, err)
	assert.Equal(t, "S-1", s.ID)
}

func TestCandidateRoutesFolderURLFromGenericLink(t *testing.T) {
	s, err := Candidate(Row{Fields: map[string]string{
		"tutor": "T1",
		"date":  "2024-01-01",
		"link":  "https://drive.google.com/drive/folders/abc123",
	}})
	require.NoError(t, err)
	assert.Equal(t, "https://drive.google.com/drive/folders/abc123", s.FolderLink)
	assert.Empty(t, s.SourceLink)
}

func TestCandidateRejectsMissingKey(t *testing.T) {
	_, err := Candidate(Row{Fields: map[string]string{"date": "2024-01-01"}})
	assert.ErrorIs(t, err, errMissingTutor)

	_, err = Candidate(Row{Fields: map[string]string{"tutor": "T1"}})
	assert.ErrorIs(t, err, errMissingDate)
}

func TestDeriveIDIsStableAcrossSpellings(t *testing.T) {
	a, err := DeriveID("T1", "2024-03-05", "10:00")
	require.NoError(t, err)
	b, err := DeriveID(" T1 ", "03/05/2024", "10-00")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "T1_20240305_1000", a)

	noSlot, err := DeriveID("T1", "2024-03-05", "")
	require.NoError(t, err)
	assert.Equal(t, "T1_20240305", noSlot)
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2024-03-05":    "20240305",
		"2024/03/05":    "20240305",
		"3/5/2024":      "20240305",
		"Mar 5, 2024":   "20240305",
		"5 Mar 2024":    "20240305",
		"45356":         "20240305",
		"next Tuesday!": "nexttuesday",
		"":              "",
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeDate(input), "input %q", input)
	}
}

func TestNormalizeSlotFoldsAccents(t *testing.T) {
	assert.Equal(t, "matinee", NormalizeSlot("Matinée"))
	assert.Equal(t, "1400", NormalizeSlot(" 14:00 "))
}
