package workflow

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/acquisition"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/analysis"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/config"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/events"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/ingest"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/logging"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/workqueue"
)

const (
	PipelineAcquisition = "acquisition"
	PipelineAnalysis    = "analysis"
)

// Manager coordinates ingestion and both processing pipelines.
type Manager struct {
	cfg    *config.Config
	store  *sessions.Store
	hub    *events.Hub
	logger *slog.Logger

	ingester *ingest.Ingester
	acquirer *acquisition.Acquirer
	analyzer *analysis.Analyzer

	acquisition *workqueue.Queue[string]
	analysis    *workqueue.Queue[string]

	retryMu sync.Mutex

	mu         sync.RWMutex
	running    bool
	cancel     context.CancelFunc
	lastErr    error
	lastFailed string
	recovered  RecoveryReport
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	fetcher    acquisition.FolderFetcher
	httpClient *http.Client
	runner     analysis.Runner
}

// WithFolderFetcher replaces the external folder helper (used in tests).
func WithFolderFetcher(f acquisition.FolderFetcher) ManagerOption {
	return func(o *managerOptions) { o.fetcher = f }
}

// WithHTTPClient replaces the client used for direct links.
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(o *managerOptions) { o.httpClient = client }
}

// WithRunner replaces the analysis tool runner (used in tests).
func WithRunner(r analysis.Runner) ManagerOption {
	return func(o *managerOptions) { o.runner = r }
}

// NewManager constructs a workflow manager. Call Start to run recovery and
// begin dispatching.
func NewManager(cfg *config.Config, store *sessions.Store, hub *events.Hub, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	var acqOpts []acquisition.Option
	if options.fetcher != nil {
		acqOpts = append(acqOpts, acquisition.WithFolderFetcher(options.fetcher))
	}
	if options.httpClient != nil {
		acqOpts = append(acqOpts, acquisition.WithHTTPClient(options.httpClient))
	}

	m := &Manager{
		cfg:      cfg,
		store:    store,
		hub:      hub,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		ingester: ingest.New(store, logger),
		acquirer: acquisition.NewAcquirer(cfg, store, hub, logger, acqOpts...),
		analyzer: analysis.NewAnalyzer(cfg, store, hub, options.runner, logger),
	}

	var err error
	m.acquisition, err = workqueue.New(workqueue.Options[string]{
		Name:     PipelineAcquisition,
		Workers:  cfg.Acquisition.Workers,
		Key:      sessionKey,
		Handler:  m.runAcquisition,
		Logger:   logger,
		OnStatus: hub.PublishQueue,
	})
	if err != nil {
		return nil, err
	}
	m.analysis, err = workqueue.New(workqueue.Options[string]{
		Name:     PipelineAnalysis,
		Workers:  cfg.Analysis.Workers,
		Key:      sessionKey,
		Handler:  m.runAnalysis,
		Logger:   logger,
		OnStatus: hub.PublishQueue,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func sessionKey(id string) string { return id }

// Events exposes the hub observers read from.
func (m *Manager) Events() *events.Hub { return m.hub }

// Get returns a session or nil when absent.
func (m *Manager) Get(ctx context.Context, id string) (*sessions.Session, error) {
	return m.store.Get(ctx, id)
}

// List returns sessions, optionally filtered by lifecycle.
func (m *Manager) List(ctx context.Context, lifecycles ...sessions.Lifecycle) ([]*sessions.Session, error) {
	return m.store.List(ctx, lifecycles...)
}

// SubmitAcquisition queues a session for acquisition. It reports whether the
// session was accepted; one already queued or running is ignored.
func (m *Manager) SubmitAcquisition(id string) (bool, error) {
	return m.acquisition.Submit(id)
}

// SubmitAnalysis queues a session for analysis with the same idempotency
// rule as SubmitAcquisition.
func (m *Manager) SubmitAnalysis(id string) (bool, error) {
	return m.analysis.Submit(id)
}
