package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
)

// SessionReader abstracts the session lookups needed for API queries.
type SessionReader interface {
	List(ctx context.Context, lifecycles ...sessions.Lifecycle) ([]*sessions.Session, error)
	Get(ctx context.Context, id string) (*sessions.Session, error)
}

// SessionService exposes read-only session operations returning API DTOs.
type SessionService struct {
	reader SessionReader
}

// NewSessionService constructs a SessionService around the provided reader.
func NewSessionService(reader SessionReader) *SessionService {
	if reader == nil {
		return nil
	}
	return &SessionService{reader: reader}
}

// List returns sessions filtered by lifecycle.
func (s *SessionService) List(ctx context.Context, lifecycles ...sessions.Lifecycle) ([]Session, error) {
	if s == nil || s.reader == nil {
		return nil, nil
	}
	items, err := s.reader.List(ctx, lifecycles...)
	if err != nil {
		return nil, err
	}
	return FromSessions(items), nil
}

// Describe fetches a single session. It returns nil when the id is unknown.
func (s *SessionService) Describe(ctx context.Context, id string) (*Session, error) {
	if s == nil || s.reader == nil {
		return nil, nil
	}
	item, err := s.reader.Get(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	dto := FromSession(item)
	return &dto, nil
}

// ParseLifecycles converts comma-separated or repeated status filters.
func ParseLifecycles(values []string) ([]sessions.Lifecycle, error) {
	var out []sessions.Lifecycle
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			l, ok := sessions.ParseLifecycle(part)
			if !ok {
				return nil, fmt.Errorf("unknown status %q", part)
			}
			out = append(out, l)
		}
	}
	return out, nil
}
