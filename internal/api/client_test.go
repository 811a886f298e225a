package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBaseURL(t *testing.T) {
	cases := map[string]string{
		"0.0.0.0:7490":   "http://127.0.0.1:7490",
		":7490":          "http://127.0.0.1:7490",
		"[::]:7490":      "http://127.0.0.1:7490",
		"10.0.0.5:8080":  "http://10.0.0.5:8080",
		" localhost:80 ": "http://localhost:80",
	}
	for bind, want := range cases {
		if got := BaseURL(bind); got != want {
			t.Errorf("BaseURL(%q) = %q, want %q", bind, got, want)
		}
	}
}

func TestClientDecodesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "session x not found"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL+"/").Session(context.Background(), "x")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Message != "session x not found" || !IsNotFound(err) {
		t.Fatalf("unexpected error: %+v", statusErr)
	}
}

func TestClientPollQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(EventsResponse{Events: []Event{{Sequence: 6, Type: "reset"}}, Next: 6})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Poll(context.Background(), 5, true)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if gotQuery != "since=5&wait=1" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if resp.Next != 6 || len(resp.Events) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
