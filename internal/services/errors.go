package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrTransfer      = errors.New("transfer error")
	// ErrQuota marks a rate-limit signal from the analysis tool. It is a
	// sub-kind of ErrExternalTool: errors.Is matches both.
	ErrQuota = fmt.Errorf("%w: quota exceeded", ErrExternalTool)
)

// Error is the classified error produced by Wrap.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.Marker, detail, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Marker, detail)
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Cause}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// ErrorDetails is the structured view of an error used in failure logs.
type ErrorDetails struct {
	Kind      string
	Stage     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Details extracts classification fields from err. Errors not built by Wrap
// report their text as the message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: Kind(err), Hint: Hint(err)}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		details.Stage = svcErr.Stage
		details.Operation = svcErr.Operation
		details.Message = svcErr.Message
		details.Cause = svcErr.Cause
		return details
	}
	details.Message = err.Error()
	return details
}

// FailureMessage renders err for the persisted, user-visible session error:
// the wrap message followed by the underlying cause when there is one.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	d := Details(err)
	msg := d.Message
	if d.Cause != nil {
		cause := strings.TrimSpace(d.Cause.Error())
		switch {
		case msg == "":
			msg = cause
		case cause != "":
			msg = msg + ": " + cause
		}
	}
	if msg == "" {
		msg = err.Error()
	}
	return msg
}

// Kind returns a short stable label for the marker carried by err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQuota):
		return "quota"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTransfer):
		return "transfer"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "transient"
	}
}

// Hint returns an operator-facing next step for the marker carried by err.
func Hint(err error) string {
	switch Kind(err) {
	case "quota":
		return "analysis paused; it resumes automatically after the backoff window"
	case "timeout":
		return "raise analysis.timeout_seconds or inspect analysis.log in the session directory"
	case "not_found":
		return "check the session links and the sessions directory"
	case "transfer":
		return "check network access to the recording link and retry"
	case "external_tool":
		return "inspect the tool output log in the session directory"
	case "configuration":
		return "check the ischool config file"
	default:
		return "check logs for details"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
