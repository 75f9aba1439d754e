// Package pipeline runs one translation job end to end: fetch the source
// transcript, parse it, detect its language, translate it into every
// resolved target and store one artifact per target.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/kdeps/kxlate/pkg/artifact"
	kerrors "github.com/kdeps/kxlate/pkg/errors"
	"github.com/kdeps/kxlate/pkg/history"
	"github.com/kdeps/kxlate/pkg/intake"
	"github.com/kdeps/kxlate/pkg/language"
	"github.com/kdeps/kxlate/pkg/ktx"
	"github.com/kdeps/kxlate/pkg/logging"
	"github.com/kdeps/kxlate/pkg/metrics"
	"github.com/kdeps/kxlate/pkg/storage"
	"github.com/kdeps/kxlate/pkg/transcript"
	"github.com/kdeps/kxlate/pkg/translate"
)

// Detector picks the source language of a transcript.
type Detector interface {
	Detect(segments []transcript.Segment) string
}

// Recorder keeps the outcome of finished jobs.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Deps are the process-wide collaborators shared by every job. They are
// built once at startup and only read afterwards.
type Deps struct {
	Store      storage.Store
	Detector   Detector
	Strategies map[translate.Mode]translate.Strategy
	// Fs and ScratchDir hold the downloaded source while a job runs.
	Fs                  afero.Fs
	ScratchDir          string
	DefaultOutputBucket string
	History             Recorder
	Metrics             *metrics.JobMetrics
	Logger              *logging.Logger
}

// Result describes a finished job.
type Result struct {
	JobID          string   `json:"jobId"`
	Mode           string   `json:"mode"`
	SourceLanguage string   `json:"sourceLanguage"`
	Targets        []string `json:"targets"`
	OutputFiles    []string `json:"outputFiles"`
	Segments       int      `json:"segments"`
	FailedSegments int      `json:"failedSegments"`
	State          State    `json:"state"`
}

// Orchestrator runs jobs against a fixed set of Deps.
type Orchestrator struct {
	deps Deps
}

// New validates deps and fills in defaults.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if len(deps.Strategies) == 0 {
		return nil, errors.New("pipeline: at least one translation strategy is required")
	}
	if deps.Detector == nil {
		deps.Detector = language.NewDetector(nil)
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.ScratchDir == "" {
		deps.ScratchDir = afero.GetTempDir(deps.Fs, "kxlate")
	}
	if deps.DefaultOutputBucket == "" {
		deps.DefaultOutputBucket = intake.DefaultOutputBucket
	}
	if deps.Logger == nil {
		deps.Logger = logging.GetLogger()
	}
	return &Orchestrator{deps: deps}, nil
}

// Supports reports whether a strategy is configured for mode.
func (o *Orchestrator) Supports(mode translate.Mode) bool {
	_, ok := o.deps.Strategies[mode]
	return ok
}

// job carries the mutable state of a single Run.
type job struct {
	intake.Job
	id     string
	mode   translate.Mode
	state  State
	logger *logging.Logger
}

func (j *job) transition(s State, keyvals ...interface{}) {
	j.state = s
	j.logger.Debug("job state", append([]interface{}{"state", s}, keyvals...)...)
}

func (j *job) fail(stage State, err error) error {
	je, ok := kerrors.IsJobError(err)
	if !ok {
		je = kerrors.WrapError(err, kerrors.ErrUnexpected, "job failed")
	}
	if je.JobID == "" {
		je.WithJobID(j.id)
	}
	if je.Stage == "" {
		je.WithStage(stage.String())
	}
	j.state = StateFailed
	j.logger.Error("job failed", "stage", stage, "code", je.Code, "error", err)
	return je
}

// Run processes req with the strategy registered for mode. On failure the
// returned Result has State StateFailed and the error is a *errors.JobError.
func (o *Orchestrator) Run(ctx context.Context, req intake.Job, mode translate.Mode) (res Result, err error) {
	j := &job{Job: req, id: uuid.New().String(), mode: mode, state: StateReceived}
	j.logger = o.deps.Logger.With("jobID", j.id, "mode", mode, "bucket", req.SourceBucket, "object", req.SourceObject)
	if kv := ktx.LogFields(ctx); len(kv) > 0 {
		j.logger = j.logger.With(kv...)
	}
	res = Result{JobID: j.id, Mode: mode.String(), Targets: []string{}, OutputFiles: []string{}, State: StateReceived}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = j.fail(j.state, fmt.Errorf("panic: %v", r))
		}
		if err != nil && !j.state.Terminal() {
			j.state = StateFailed
		}
		res.State = j.state
		if o.deps.Metrics != nil {
			o.deps.Metrics.RecordJob(mode.String(), time.Since(start), err == nil, len(res.OutputFiles), res.FailedSegments)
		}
		o.record(ctx, j, res, err)
	}()

	err = j.logger.TimeOperation("translation job", func() error {
		return o.run(ctx, j, &res)
	})
	return res, err
}

func (o *Orchestrator) run(ctx context.Context, j *job, res *Result) error {
	strategy, ok := o.deps.Strategies[j.mode]
	if !ok {
		return j.fail(StateReceived, kerrors.NewInvalidJobFormatError(fmt.Sprintf("unsupported mode %q", j.mode)))
	}
	if j.SourceBucket == "" || j.SourceObject == "" {
		return j.fail(StateReceived, kerrors.NewInvalidJobFormatError("bucket and name are required"))
	}
	if j.OutputBucket == "" {
		j.OutputBucket = o.deps.DefaultOutputBucket
	}

	raw, err := o.fetch(ctx, j)
	if err != nil {
		return j.fail(StateReceived, err)
	}
	j.transition(StateFetched, "size", humanize.Bytes(uint64(len(raw))))

	segments := transcript.Parse(raw)
	res.Segments = len(segments)
	j.transition(StateParsed, "segments", len(segments))

	source := o.deps.Detector.Detect(segments)
	res.SourceLanguage = source
	j.transition(StateDetected, "language", source)

	targets := language.Resolve(source)
	res.Targets = targets
	j.transition(StateTargetsResolved, "targets", strings.Join(targets, ","))
	if !language.Supported(source) {
		j.logger.Info("no target languages for source language, nothing to translate", "language", source)
	}

	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			return j.fail(j.state, err)
		}
		j.transition(StateTranslating, "target", target, "index", i+1, "of", len(targets))
		records := strategy.Translate(ctx, segments, target)
		res.FailedSegments += countFailed(segments, records)

		a := artifact.New(j.SourceObject, target, records)
		data, err := a.Encode()
		if err != nil {
			return j.fail(StateTranslating, err)
		}
		j.transition(StateAssembled, "target", target, "key", a.DestinationName)

		if err := o.deps.Store.Put(ctx, j.OutputBucket, a.DestinationName, data, artifact.ContentType); err != nil {
			return j.fail(StateAssembled, kerrors.NewStoreError(j.OutputBucket, a.DestinationName, err))
		}
		res.OutputFiles = append(res.OutputFiles, a.DestinationName)
		j.logger.Info("artifact stored", "target", target, "bucket", j.OutputBucket, "key", a.DestinationName, "size", humanize.Bytes(uint64(len(data))))
	}

	j.transition(StateStored, "artifacts", len(res.OutputFiles))
	j.transition(StateDone)
	j.logger.Info("job completed", "language", source, "targets", len(targets), "segments", len(segments))
	return nil
}

// fetch downloads the source into the scratch area and reads it back.
func (o *Orchestrator) fetch(ctx context.Context, j *job) (string, error) {
	data, err := o.deps.Store.Fetch(ctx, j.SourceBucket, j.SourceObject)
	if err != nil {
		return "", kerrors.NewFetchError(j.SourceBucket, j.SourceObject, err)
	}

	dir := filepath.Join(o.deps.ScratchDir, j.id)
	if err := o.deps.Fs.MkdirAll(dir, 0o755); err != nil {
		return "", kerrors.NewFetchError(j.SourceBucket, j.SourceObject, fmt.Errorf("create scratch dir: %w", err))
	}
	defer func() {
		if rmErr := o.deps.Fs.RemoveAll(dir); rmErr != nil {
			j.logger.Warn("failed to clean scratch dir", "dir", dir, "error", rmErr)
		}
	}()

	scratch := filepath.Join(dir, "source.txt")
	if err := afero.WriteFile(o.deps.Fs, scratch, data, 0o600); err != nil {
		return "", kerrors.NewFetchError(j.SourceBucket, j.SourceObject, fmt.Errorf("write scratch copy: %w", err))
	}
	raw, err := afero.ReadFile(o.deps.Fs, scratch)
	if err != nil {
		return "", kerrors.NewFetchError(j.SourceBucket, j.SourceObject, fmt.Errorf("read scratch copy: %w", err))
	}

	if len(raw) > 0 {
		if mt := mimetype.Detect(raw); !strings.HasPrefix(mt.String(), "text/") {
			j.logger.Warn("source does not look like plain text", "mimetype", mt.String())
		}
	}
	return string(raw), nil
}

func (o *Orchestrator) record(ctx context.Context, j *job, res Result, runErr error) {
	if o.deps.History == nil {
		return
	}
	e := history.Entry{
		JobID:          j.id,
		SourceBucket:   j.SourceBucket,
		SourceObject:   j.SourceObject,
		OutputBucket:   j.OutputBucket,
		SourceLanguage: res.SourceLanguage,
		State:          res.State.String(),
		OutputFiles:    res.OutputFiles,
	}
	if runErr != nil {
		e.Error = runErr.Error()
	}
	if err := o.deps.History.Record(context.WithoutCancel(ctx), e); err != nil {
		j.logger.Warn("failed to record job history", "error", err)
	}
}

// countFailed counts sentinel records whose source text was not blank.
func countFailed(segments []transcript.Segment, records []translate.TranslatedSegment) int {
	n := 0
	for i, r := range records {
		if r.Text == "" && i < len(segments) && strings.TrimSpace(segments[i].Text) != "" {
			n++
		}
	}
	return n
}
