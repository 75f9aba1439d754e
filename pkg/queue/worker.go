package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	kerrors "github.com/kdeps/kxlate/pkg/errors"
	"github.com/kdeps/kxlate/pkg/intake"
	"github.com/kdeps/kxlate/pkg/ktx"
	"github.com/kdeps/kxlate/pkg/logging"
	"github.com/kdeps/kxlate/pkg/pipeline"
	"github.com/kdeps/kxlate/pkg/translate"
)

// ModeHeader lets a message override the worker's default mode.
const ModeHeader = "x-kxlate-mode"

const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
	StatusError   = "ERROR"
)

// Runner executes one job.
type Runner interface {
	Run(ctx context.Context, job intake.Job, mode translate.Mode) (pipeline.Result, error)
}

// JobResult is published to the result queue for every consumed message.
type JobResult struct {
	JobID          string   `json:"jobId,omitempty"`
	MessageID      string   `json:"messageId,omitempty"`
	Status         string   `json:"status"`
	Bucket         string   `json:"bucket,omitempty"`
	Object         string   `json:"name,omitempty"`
	SourceLanguage string   `json:"sourceLanguage,omitempty"`
	OutputFiles    []string `json:"outputFiles"`
	Code           string   `json:"code,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Worker turns deliveries into pipeline runs.
type Worker struct {
	Runner              Runner
	Publisher           Publisher
	ResultQueue         string
	Mode                translate.Mode
	DefaultOutputBucket string
	Logger              *logging.Logger
}

// Run handles deliveries until ctx is done or the channel closes. Every
// delivery is acknowledged exactly once whatever its outcome.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	if w.Logger == nil {
		w.Logger = logging.GetLogger()
	}
	w.Logger.Info("worker started", "mode", w.Mode, "results", w.ResultQueue)

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("worker stopping", "reason", ctx.Err())
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			w.Handle(ctx, d)
		}
	}
}

// Handle processes one delivery and publishes its JobResult.
func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) JobResult {
	logger := w.Logger.With("messageID", d.MessageId, "size", len(d.Body))
	logger.Info("job received")
	ctx = ktx.WithSource(ktx.WithCorrelationID(ctx, d.MessageId), "queue")

	result := w.process(ctx, d, logger)

	if w.Publisher != nil && w.ResultQueue != "" {
		body, err := json.Marshal(result)
		if err == nil {
			err = w.Publisher.Publish(ctx, w.ResultQueue, amqp.Publishing{
				ContentType:   "application/json",
				CorrelationId: correlationID(d),
				Timestamp:     time.Now(),
				Body:          body,
			})
		}
		if err != nil {
			logger.Error("failed to publish job result", "error", err)
		}
	}

	if err := d.Ack(false); err != nil {
		logger.Error("failed to ack delivery", "error", err)
	}
	return result
}

func (w *Worker) process(ctx context.Context, d amqp.Delivery, logger *logging.Logger) JobResult {
	result := JobResult{MessageID: d.MessageId, OutputFiles: []string{}}

	job, err := intake.Decode(d.Body, w.DefaultOutputBucket)
	if err != nil {
		logger.Warn("rejected job envelope", "error", err)
		return withError(result, StatusError, err)
	}
	result.Bucket, result.Object = job.SourceBucket, job.SourceObject

	mode := w.Mode
	if raw, ok := d.Headers[ModeHeader].(string); ok {
		if mode, err = translate.ParseMode(raw); err != nil {
			return withError(result, StatusError, kerrors.NewInvalidJobFormatError(err.Error()))
		}
	}

	res, err := w.Runner.Run(ctx, job, mode)
	result.JobID = res.JobID
	result.SourceLanguage = res.SourceLanguage
	if res.OutputFiles != nil {
		result.OutputFiles = res.OutputFiles
	}
	if err != nil {
		return withError(result, StatusFailed, err)
	}

	result.Status = StatusSuccess
	logger.Info("job finished", "jobID", res.JobID, "artifacts", len(res.OutputFiles))
	return result
}

func withError(r JobResult, status string, err error) JobResult {
	r.Status = status
	r.Error = err.Error()
	if je, ok := kerrors.IsJobError(err); ok {
		r.Code = string(je.Code)
	}
	return r
}

func correlationID(d amqp.Delivery) string {
	if d.CorrelationId != "" {
		return d.CorrelationId
	}
	return d.MessageId
}
