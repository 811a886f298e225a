package sessions

// Field enumerates the session attributes addressable by ingestion merge.
type Field int

const (
	FieldID Field = iota
	FieldTutorID
	FieldTutorName
	FieldSubject
	FieldSessionDate
	FieldTimeSlot
	FieldSourceLink
	FieldFolderLink
	FieldVideoRef
	FieldTranscriptRef
	FieldReportRef
	FieldWorkDir
	FieldLifecycle
	FieldAcquisitionStatus
	FieldAnalysisStatus
	FieldProgress
	FieldError
	FieldAuditComments
	FieldAuditApproved
	FieldAuditedAt
	FieldAuditStatus

	fieldCount
)

var protectedFields = [fieldCount]bool{
	FieldID:                true,
	FieldVideoRef:          true,
	FieldTranscriptRef:     true,
	FieldReportRef:         true,
	FieldWorkDir:           true,
	FieldLifecycle:         true,
	FieldAcquisitionStatus: true,
	FieldAnalysisStatus:    true,
	FieldProgress:          true,
	FieldError:             true,
	FieldAuditComments:     true,
	FieldAuditApproved:     true,
	FieldAuditedAt:         true,
	FieldAuditStatus:       true,
}

var fieldNames = [fieldCount]string{
	FieldID:                "id",
	FieldTutorID:           "tutor_id",
	FieldTutorName:         "tutor_name",
	FieldSubject:           "subject",
	FieldSessionDate:       "session_date",
	FieldTimeSlot:          "time_slot",
	FieldSourceLink:        "source_link",
	FieldFolderLink:        "folder_link",
	FieldVideoRef:          "video_ref",
	FieldTranscriptRef:     "transcript_ref",
	FieldReportRef:         "report_ref",
	FieldWorkDir:           "work_dir",
	FieldLifecycle:         "lifecycle_status",
	FieldAcquisitionStatus: "acquisition_status",
	FieldAnalysisStatus:    "analysis_status",
	FieldProgress:          "progress",
	FieldError:             "error",
	FieldAuditComments:     "audit_comments",
	FieldAuditApproved:     "audit_approved",
	FieldAuditedAt:         "audited_at",
	FieldAuditStatus:       "audit_status",
}

// Protected reports whether ingestion merge must leave the field untouched.
func (f Field) Protected() bool {
	if f < 0 || f >= fieldCount {
		return true
	}
	return protectedFields[f]
}

func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return "unknown"
	}
	return fieldNames[f]
}

// DescriptiveFields lists the fields ingestion may fill, in merge order.
func DescriptiveFields() []Field {
	out := make([]Field, 0, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		if !f.Protected() {
			out = append(out, f)
		}
	}
	return out
}

// Descriptive returns the value of a non-protected field.
func (s *Session) Descriptive(f Field) string {
	switch f {
	case FieldTutorID:
		return s.TutorID
	case FieldTutorName:
		return s.TutorName
	case FieldSubject:
		return s.Subject
	case FieldSessionDate:
		return s.SessionDate
	case FieldTimeSlot:
		return s.TimeSlot
	case FieldSourceLink:
		return s.SourceLink
	case FieldFolderLink:
		return s.FolderLink
	default:
		return ""
	}
}

// SetDescriptive assigns a non-protected field. It reports false and leaves
// the session unchanged for protected fields.
func (s *Session) SetDescriptive(f Field, value string) bool {
	if f.Protected() {
		return false
	}
	switch f {
	case FieldTutorID:
		s.TutorID = value
	case FieldTutorName:
		s.TutorName = value
	case FieldSubject:
		s.Subject = value
	case FieldSessionDate:
		s.SessionDate = value
	case FieldTimeSlot:
		s.TimeSlot = value
	case FieldSourceLink:
		s.SourceLink = value
	case FieldFolderLink:
		s.FolderLink = value
	default:
		return false
	}
	return true
}
