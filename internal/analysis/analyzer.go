package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/config"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/events"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/fileutil"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/logging"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/services"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/workqueue"
)

// ToolLogName is the tool output log written into the session directory.
const ToolLogName = "analysis.log"

// ErrDeferred reports that a quota signal sent the session back to ready.
// The caller should pause the analysis queue and requeue the session.
var ErrDeferred = fmt.Errorf("%w: analysis deferred", services.ErrQuota)

// Analyzer runs the per-session analysis steps.
type Analyzer struct {
	store      *sessions.Store
	hub        *events.Hub
	runner     Runner
	logger     *slog.Logger
	root       string
	suffix     string
	timeout    time.Duration
	quotaExit  int
	maxRetries int
	now        func() time.Time
}

// NewAnalyzer constructs an Analyzer. A nil runner uses ExecRunner with the
// configured command.
func NewAnalyzer(cfg *config.Config, store *sessions.Store, hub *events.Hub, runner Runner, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "analysis")
	if runner == nil {
		runner = NewExecRunner(cfg.Analysis.Command, logger)
	}
	return &Analyzer{
		store:      store,
		hub:        hub,
		runner:     runner,
		logger:     logger,
		root:       cfg.Paths.SessionsDir,
		suffix:     cfg.Analysis.ReportSuffix,
		timeout:    cfg.AnalysisTimeout(),
		quotaExit:  cfg.Analysis.QuotaExitCode,
		maxRetries: cfg.Analysis.QuotaMaxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Analyze moves the session identified by id through
// ready -> analyzing -> {completed | failed}. A quota signal within the retry
// budget returns ErrDeferred with the session back in ready.
func (a *Analyzer) Analyze(ctx context.Context, job *workqueue.Job, id string) error {
	session, err := a.store.Get(ctx, id)
	if err != nil {
		return services.Wrap(services.ErrTransient, "analysis", "load session", "Failed to load session", err)
	}
	if session == nil {
		return services.Wrap(services.ErrNotFound, "analysis", "load session", "session "+id+" no longer exists", nil)
	}
	logger := logging.WithContext(ctx, a.logger)

	dir := sessions.ArtifactDir(a.root, session)
	if err := checkArtifacts(dir, session); err != nil {
		return a.fail(ctx, job, session, logger, err)
	}

	if err := job.Guard(func() error {
		session.MarkAnalyzing(a.now())
		return a.persist(ctx, session)
	}); err != nil {
		return err
	}

	report := sessions.ReportPath(dir, session, a.suffix)
	if err := os.Remove(report); err != nil && !errors.Is(err, os.ErrNotExist) {
		return a.fail(ctx, job, session, logger,
			services.Wrap(services.ErrTransient, "analysis", "prepare", "Failed to remove previous report", err))
	}

	logger.Info("analysis started",
		logging.String(logging.FieldEventType, "analysis_start"),
		logging.String("video", session.VideoRef),
		logging.String("transcript", session.TranscriptRef),
		logging.Duration("timeout", a.timeout),
	)
	res, runErr := a.runner.Run(ctx, Request{
		Video:      session.VideoRef,
		Transcript: session.TranscriptRef,
		Output:     report,
		Timeout:    a.timeout,
		LogPath:    filepath.Join(dir, ToolLogName),
	})
	if !job.Valid() || (runErr != nil && errors.Is(runErr, context.Canceled) && ctx.Err() != nil) {
		return workqueue.ErrStale
	}

	if runErr == nil && a.quotaExit > 0 && res.ExitCode == a.quotaExit {
		return a.deferForQuota(ctx, job, session, logger, res)
	}
	if runErr == nil {
		runErr = outcomeError(res, report)
	}
	if runErr != nil {
		return a.fail(ctx, job, session, logger, runErr)
	}

	if err := job.Guard(func() error {
		session.MarkAnalyzed(report, a.now())
		session.QuotaAttempts = 0
		return a.persist(ctx, session)
	}); err != nil {
		return err
	}
	logger.Info("analysis completed",
		logging.String(logging.FieldEventType, "analysis_complete"),
		logging.String("report", report),
		logging.Duration("duration", res.Duration),
	)
	return nil
}

// checkArtifacts fails fast when the inputs are missing, before the tool is
// ever started.
func checkArtifacts(dir string, session *sessions.Session) error {
	if !fileutil.Exists(dir) {
		return services.Wrap(services.ErrNotFound, "analysis", "check artifacts", "session directory not found: "+dir, nil)
	}
	if strings.TrimSpace(session.VideoRef) == "" || !fileutil.IsRegular(session.VideoRef) {
		return services.Wrap(services.ErrNotFound, "analysis", "check artifacts", "video file not found", nil)
	}
	return nil
}

// outcomeError requires both a zero exit status and the report on disk.
func outcomeError(res Result, report string) error {
	if res.ExitCode != 0 {
		msg := fmt.Sprintf("analysis tool exited with status %d", res.ExitCode)
		if line := lastLine(res.OutputTail); line != "" {
			msg += ": " + line
		}
		return services.Wrap(services.ErrExternalTool, "analysis", "run", msg, nil)
	}
	if !fileutil.IsRegular(report) {
		return services.Wrap(services.ErrExternalTool, "analysis", "run", "analysis tool exited without producing a report", nil)
	}
	return nil
}

func (a *Analyzer) deferForQuota(ctx context.Context, job *workqueue.Job, session *sessions.Session, logger *slog.Logger, res Result) error {
	session.QuotaAttempts++
	if session.QuotaAttempts > a.maxRetries {
		err := services.Wrap(services.ErrQuota, "analysis", "run",
			fmt.Sprintf("analysis quota exceeded after %d attempts", session.QuotaAttempts), nil)
		return a.fail(ctx, job, session, logger, err)
	}
	reason := fmt.Sprintf("analysis quota exceeded; retry %d of %d scheduled", session.QuotaAttempts, a.maxRetries)
	if err := job.Guard(func() error {
		session.MarkDeferred(reason)
		return a.persist(ctx, session)
	}); err != nil {
		return err
	}
	logging.WarnWithContext(logger, "analysis deferred by quota", "analysis_deferred",
		logging.Int("attempt", session.QuotaAttempts),
		logging.Int("max_retries", a.maxRetries),
		logging.Int("exit_code", res.ExitCode),
		logging.String(logging.FieldErrorHint, services.Hint(services.ErrQuota)),
		logging.String(logging.FieldImpact, "analysis queue paused"),
	)
	return ErrDeferred
}

func (a *Analyzer) fail(ctx context.Context, job *workqueue.Job, session *sessions.Session, logger *slog.Logger, cause error) error {
	guardErr := job.Guard(func() error {
		session.MarkAnalysisFailed(services.FailureMessage(cause), a.now())
		return a.persist(context.WithoutCancel(ctx), session)
	})
	if errors.Is(guardErr, workqueue.ErrStale) {
		return guardErr
	}
	attrs := append(logging.ErrorAttrs(cause),
		logging.String(logging.FieldEventType, "analysis_failed"),
		logging.String("log_file", filepath.Join(sessions.ArtifactDir(a.root, session), ToolLogName)),
		logging.String(logging.FieldImpact, "session marked failed; use retry after fixing the cause"),
	)
	logger.Error("analysis failed", logging.Args(attrs...)...)
	if guardErr != nil {
		logger.Error("failed to persist analysis failure", logging.Error(guardErr))
	}
	return cause
}

func (a *Analyzer) persist(ctx context.Context, session *sessions.Session) error {
	if err := a.store.UpdatePipeline(ctx, session); err != nil {
		return services.Wrap(services.ErrTransient, "analysis", "persist", "Failed to persist session state", err)
	}
	a.hub.PublishSession(session)
	return nil
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
