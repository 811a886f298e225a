package acquisition

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/config"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/events"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/logging"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/services"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sourcelink"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/workqueue"
)

// Outcome is the result of a successful acquisition.
type Outcome struct {
	Session *sessions.Session
	// Transferred is false when the artifacts were already local.
	Transferred bool
	Source      sourcelink.Kind
}

// Option customizes an Acquirer.
type Option func(*Acquirer)

// WithFolderFetcher replaces the external folder helper.
func WithFolderFetcher(f FolderFetcher) Option {
	return func(a *Acquirer) {
		if f != nil {
			a.folder = f
		}
	}
}

// WithHTTPClient replaces the HTTP client used for direct links.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Acquirer) {
		a.http = NewHTTPResolver(client, a.userAgent, a.threshold)
	}
}

// Acquirer runs the per-session acquisition steps.
type Acquirer struct {
	store     *sessions.Store
	hub       *events.Hub
	logger    *slog.Logger
	root      string
	threshold int64
	step      int
	userAgent string
	folder    FolderFetcher
	http      *HTTPResolver
}

// NewAcquirer constructs an Acquirer from configuration.
func NewAcquirer(cfg *config.Config, store *sessions.Store, hub *events.Hub, logger *slog.Logger, opts ...Option) *Acquirer {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "acquisition")
	a := &Acquirer{
		store:     store,
		hub:       hub,
		logger:    logger,
		root:      cfg.Paths.SessionsDir,
		threshold: cfg.Acquisition.SuspiciousSizeBytes,
		step:      cfg.Acquisition.ProgressStep,
		userAgent: cfg.Acquisition.UserAgent,
		folder:    NewExecFolderFetcher(cfg.Acquisition.FolderHelper, logger),
	}
	a.http = NewHTTPResolver(nil, a.userAgent, a.threshold)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire moves the session identified by id through
// downloading -> {ready | failed}. Failures are recorded on the session and
// returned; a superseded job returns workqueue.ErrStale without writing.
func (a *Acquirer) Acquire(ctx context.Context, job *workqueue.Job, id string) (Outcome, error) {
	session, err := a.store.Get(ctx, id)
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrTransient, "acquisition", "load session", "Failed to load session", err)
	}
	if session == nil {
		return Outcome{}, services.Wrap(services.ErrNotFound, "acquisition", "load session", "session "+id+" no longer exists", nil)
	}
	logger := logging.WithContext(ctx, a.logger)
	start := time.Now()

	if err := job.Guard(func() error {
		session.MarkDownloading(sessions.ArtifactDir(a.root, session))
		return a.persist(ctx, session)
	}); err != nil {
		return Outcome{}, err
	}
	logger.Info("acquisition started",
		logging.String(logging.FieldEventType, "acquisition_start"),
		logging.String("tutor_id", session.TutorID),
		logging.String("folder_link", session.FolderLink),
		logging.String("source_link", session.SourceLink),
	)

	outcome, err := a.resolve(ctx, job, session, logger)
	if err != nil {
		if !job.Valid() || (errors.Is(err, context.Canceled) && ctx.Err() != nil) {
			return Outcome{}, workqueue.ErrStale
		}
		return Outcome{}, a.fail(ctx, job, session, logger, err)
	}

	if err := job.Guard(func() error {
		session.MarkAcquired(outcome.video, outcome.transcript)
		return a.persist(ctx, session)
	}); err != nil {
		return Outcome{}, err
	}
	logger.Info("acquisition completed",
		logging.String(logging.FieldEventType, "acquisition_complete"),
		logging.String("source", outcome.kind.String()),
		logging.String("video", session.VideoRef),
		logging.String("transcript", session.TranscriptRef),
		logging.Duration("duration", time.Since(start)),
	)
	return Outcome{Session: session, Transferred: outcome.transferred, Source: outcome.kind}, nil
}

type resolved struct {
	video       string
	transcript  string
	kind        sourcelink.Kind
	transferred bool
}

func (a *Acquirer) resolve(ctx context.Context, job *workqueue.Job, session *sessions.Session, logger *slog.Logger) (resolved, error) {
	dir := sessions.ArtifactDir(a.root, session)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return resolved{}, services.Wrap(services.ErrTransient, "acquisition", "prepare directory", "Failed to create session directory", err)
	}

	if sourcelink.IsFolder(session.FolderLink) {
		res, err := a.resolveFolder(ctx, session.FolderLink, dir)
		if err == nil {
			return res, nil
		}
		direct := sourcelink.Classify(session.SourceLink)
		if !direct.Remote() || direct == sourcelink.KindFolder || ctx.Err() != nil {
			return resolved{}, err
		}
		logging.WarnWithContext(logger, "folder acquisition failed; trying direct link", "acquisition_fallback",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the folder link sharing settings"),
			logging.String(logging.FieldImpact, "using the direct recording link instead"),
		)
	}

	switch kind := sourcelink.Classify(session.SourceLink); kind {
	case sourcelink.KindFolder:
		return a.resolveFolder(ctx, session.SourceLink, dir)
	case sourcelink.KindDriveFile, sourcelink.KindHTTP:
		return a.resolveHTTP(ctx, job, session, logger, dir, kind)
	case sourcelink.KindLocal:
		return a.resolveLocal(session.SourceLink, dir)
	default:
		// Already local: take whatever the session directory holds.
		res := resolved{kind: sourcelink.KindNone}
		if arts, err := SelectArtifacts(dir, a.threshold); err == nil {
			res.video, res.transcript = arts.Video, arts.Transcript
		}
		return res, nil
	}
}

func (a *Acquirer) resolveFolder(ctx context.Context, link, dir string) (resolved, error) {
	if err := a.folder.Fetch(ctx, link, dir); err != nil {
		return resolved{}, err
	}
	arts, err := SelectArtifacts(dir, a.threshold)
	if err != nil {
		return resolved{}, err
	}
	return resolved{video: arts.Video, transcript: arts.Transcript, kind: sourcelink.KindFolder, transferred: true}, nil
}

func (a *Acquirer) resolveHTTP(ctx context.Context, job *workqueue.Job, session *sessions.Session, logger *slog.Logger, dir string, kind sourcelink.Kind) (resolved, error) {
	sampler := logging.NewProgressSampler(a.step)
	progress := func(percent int) {
		percent = min(max(percent, 0), 99)
		if !sampler.Observe(percent) {
			return
		}
		err := job.Guard(func() error {
			session.Progress = percent
			return a.persist(ctx, session)
		})
		if err != nil && !errors.Is(err, workqueue.ErrStale) && ctx.Err() == nil {
			logging.WarnWithContext(logger, "failed to record download progress", "acquisition_progress",
				logging.Error(err),
				logging.Int("progress", percent),
				logging.String(logging.FieldImpact, "progress display may lag until the next update"),
			)
		}
	}
	video, err := a.http.Download(ctx, session.SourceLink, dir, "video", progress)
	if err != nil {
		return resolved{}, err
	}
	return resolved{video: video, transcript: FindTranscript(dir), kind: kind, transferred: true}, nil
}

func (a *Acquirer) resolveLocal(link, dir string) (resolved, error) {
	path, ok := sourcelink.LocalPath(link)
	if !ok {
		return resolved{}, services.Wrap(services.ErrValidation, "acquisition", "local link", "invalid local link", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return resolved{}, services.Wrap(services.ErrNotFound, "acquisition", "local link", "video file not found", err)
	}
	if info.IsDir() {
		arts, err := SelectArtifacts(path, a.threshold)
		if err != nil {
			return resolved{}, err
		}
		return resolved{video: arts.Video, transcript: arts.Transcript, kind: sourcelink.KindLocal}, nil
	}
	transcript := FindTranscript(dir)
	if transcript == "" {
		transcript = siblingTranscript(path)
	}
	return resolved{video: path, transcript: transcript, kind: sourcelink.KindLocal}, nil
}

// siblingTranscript looks for <name>.vtt/.txt/.srt next to a local video.
func siblingTranscript(video string) string {
	base := video[:len(video)-len(filepath.Ext(video))]
	for _, ext := range []string{".vtt", ".txt", ".srt"} {
		if info, err := os.Stat(base + ext); err == nil && info.Mode().IsRegular() {
			return base + ext
		}
	}
	return ""
}

func (a *Acquirer) fail(ctx context.Context, job *workqueue.Job, session *sessions.Session, logger *slog.Logger, cause error) error {
	guardErr := job.Guard(func() error {
		session.MarkAcquisitionFailed(services.FailureMessage(cause))
		return a.persist(context.WithoutCancel(ctx), session)
	})
	if errors.Is(guardErr, workqueue.ErrStale) {
		return guardErr
	}
	attrs := append(logging.ErrorAttrs(cause),
		logging.String(logging.FieldEventType, "acquisition_failed"),
		logging.String(logging.FieldImpact, "session marked failed; use retry after fixing the cause"),
	)
	logger.Error("acquisition failed", logging.Args(attrs...)...)
	if guardErr != nil {
		logger.Error("failed to persist acquisition failure", logging.Error(guardErr))
	}
	return cause
}

func (a *Acquirer) persist(ctx context.Context, session *sessions.Session) error {
	if err := a.store.UpdatePipeline(ctx, session); err != nil {
		return services.Wrap(services.ErrTransient, "acquisition", "persist", "Failed to persist session state", err)
	}
	a.hub.PublishSession(session)
	return nil
}
