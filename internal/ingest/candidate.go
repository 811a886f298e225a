package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sourcelink"
)

type column int

const (
	colUnknown column = iota
	colSessionID
	colTutorID
	colTutorName
	colSubject
	colDate
	colSlot
	colLink
	colFolder
)

// headerAliases maps normalized header spellings (lowercase alphanumerics) to
// logical columns.
var headerAliases = map[string]column{
	"sessionid":       colSessionID,
	"id":              colSessionID,
	"sessioncode":     colSessionID,
	"tutorid":         colTutorID,
	"tutor":           colTutorID,
	"tutorcode":       colTutorID,
	"teacherid":       colTutorID,
	"instructorid":    colTutorID,
	"tutorname":       colTutorName,
	"instructor":      colTutorName,
	"instructorname":  colTutorName,
	"teacher":         colTutorName,
	"teachername":     colTutorName,
	"subject":         colSubject,
	"course":          colSubject,
	"topic":           colSubject,
	"sessiondate":     colDate,
	"sessiondata":     colDate,
	"date":            colDate,
	"day":             colDate,
	"timeslot":        colSlot,
	"slot":            colSlot,
	"time":            colSlot,
	"sessiontime":     colSlot,
	"sessionlink":     colLink,
	"link":            colLink,
	"recordinglink":   colLink,
	"recording":       colLink,
	"videolink":       colLink,
	"videourl":        colLink,
	"url":             colLink,
	"folderlink":      colFolder,
	"folder":          colFolder,
	"drivefolder":     colFolder,
	"drivelink":       colFolder,
	"recordingfolder": colFolder,
}

var (
	errMissingTutor = errors.New("missing tutor identifier")
	errMissingDate  = errors.New("missing session date")
)

var titleCaser = cases.Title(language.Und)

// Candidate builds a pending session from a row. The identifier is the
// explicit session id when present, else tutor_date_slot with normalized parts.
func Candidate(row Row) (*sessions.Session, error) {
	values := resolveColumns(row.Fields)

	tutor := normalizeTutor(values[colTutorID])
	date := strings.TrimSpace(values[colDate])
	slot := strings.TrimSpace(values[colSlot])

	id := strings.TrimSpace(values[colSessionID])
	if id == "" {
		var err error
		if id, err = DeriveID(tutor, date, slot); err != nil {
			return nil, err
		}
	}

	s := sessions.New(id)
	s.TutorID = tutor
	s.TutorName = normalizeName(values[colTutorName])
	s.Subject = strings.TrimSpace(values[colSubject])
	s.SessionDate = date
	s.TimeSlot = slot

	link := strings.TrimSpace(values[colLink])
	folder := strings.TrimSpace(values[colFolder])
	if folder == "" && sourcelink.IsFolder(link) {
		folder, link = link, ""
	}
	s.SourceLink = link
	s.FolderLink = folder
	return s, nil
}

// DeriveID synthesizes a session identifier from its natural key.
func DeriveID(tutor, date, slot string) (string, error) {
	tutor = normalizeTutor(tutor)
	if tutor == "" {
		return "", errMissingTutor
	}
	datePart := NormalizeDate(date)
	if datePart == "" {
		return "", errMissingDate
	}
	parts := []string{tutor, datePart}
	if slotPart := NormalizeSlot(slot); slotPart != "" {
		parts = append(parts, slotPart)
	}
	return strings.Join(parts, "_"), nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Monday, January 2, 2006",
}

// NormalizeDate converts a date cell to YYYYMMDD. Spreadsheet serial numbers
// are accepted. Unparseable values fall back to their lowercase alphanumerics.
func NormalizeDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 20000 && serial < 80000 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format("20060102")
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("20060102")
		}
	}
	return alnumLower(value)
}

// NormalizeSlot reduces a time-slot cell to lowercase alphanumerics.
func NormalizeSlot(value string) string {
	return alnumLower(value)
}

func resolveColumns(fields map[string]string) map[column]string {
	out := make(map[column]string, len(fields))
	for header, value := range fields {
		col, ok := headerAliases[alnumLower(header)]
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, seen := out[col]; !seen {
			out[col] = value
		}
	}
	return out
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func fold(value string) string {
	out, _, err := transform.String(foldAccents, value)
	if err != nil {
		return value
	}
	return out
}

func alnumLower(value string) string {
	value = strings.ToLower(fold(strings.TrimSpace(value)))
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeTutor(value string) string {
	return strings.Join(strings.Fields(fold(value)), "-")
}

func normalizeName(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return ""
	}
	return titleCaser.String(strings.ToLower(value))
}

// RowError records a skipped row.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
}
