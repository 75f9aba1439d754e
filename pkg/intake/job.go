// Package intake decodes inbound job triggers into a normalized Job.
//
// Two transports are accepted: a direct object-finalized notification
// carrying bucket and name, and a pub/sub style envelope whose data field is
// base64 encoded JSON with the same fields plus an optional output bucket.
package intake

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	kerrors "github.com/kdeps/kxlate/pkg/errors"
)

// DefaultOutputBucket is used when a trigger does not name one.
const DefaultOutputBucket = "vertex-translation-output"

// EventTypeFinalize is the event type set on forwarded envelopes.
const EventTypeFinalize = "OBJECT_FINALIZE"

// Job is one normalized translation request.
type Job struct {
	SourceBucket string `json:"bucket"`
	SourceObject string `json:"name"`
	OutputBucket string `json:"output_bucket,omitempty"`
}

// Envelope is the wrapped message transport.
type Envelope struct {
	Message Message `json:"message"`
}

// Message carries the attributes and the base64 encoded job payload.
type Message struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Data       string            `json:"data"`
	MessageID  string            `json:"messageId,omitempty"`
}

// notification is the union of both transports as seen on the wire.
type notification struct {
	Message      *Message `json:"message"`
	Bucket       string   `json:"bucket"`
	Name         string   `json:"name"`
	OutputBucket string   `json:"output_bucket"`
}

// Decode normalizes a raw trigger body. defaultOutput replaces a missing
// output bucket; when it is empty DefaultOutputBucket is used.
func Decode(body []byte, defaultOutput string) (Job, error) {
	if defaultOutput == "" {
		defaultOutput = DefaultOutputBucket
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return Job{}, kerrors.NewInvalidJobFormatError("empty body")
	}

	var n notification
	if err := json.Unmarshal(body, &n); err != nil {
		return Job{}, kerrors.NewInvalidJobFormatError("body is not JSON").WithCause(err)
	}

	var job Job
	switch {
	case n.Message != nil:
		decoded, err := decodeData(n.Message.Data)
		if err != nil {
			return Job{}, err
		}
		job = decoded
	case n.Bucket != "" || n.Name != "":
		job = Job{SourceBucket: n.Bucket, SourceObject: n.Name, OutputBucket: n.OutputBucket}
	default:
		return Job{}, kerrors.NewInvalidJobFormatError("neither message nor bucket/name present")
	}

	if job.SourceBucket == "" || job.SourceObject == "" {
		return Job{}, kerrors.NewInvalidJobFormatError("bucket and name are required")
	}
	if job.OutputBucket == "" {
		job.OutputBucket = defaultOutput
	}
	return job, nil
}

func decodeData(data string) (Job, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return Job{}, kerrors.NewInvalidJobFormatError("message.data is empty")
	}

	var raw []byte
	var err error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if raw, err = enc.DecodeString(data); err == nil {
			break
		}
	}
	if err != nil {
		return Job{}, kerrors.NewInvalidJobFormatError("message.data is not base64").WithCause(err)
	}

	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return Job{}, kerrors.NewInvalidJobFormatError("message.data is not a JSON job").WithCause(err)
	}
	return job, nil
}

// EncodeEnvelope wraps job the way the storage trigger forwards it.
func EncodeEnvelope(job Job) ([]byte, error) {
	if job.SourceBucket == "" || job.SourceObject == "" {
		return nil, fmt.Errorf("bucket and object are required")
	}
	if job.OutputBucket == "" {
		job.OutputBucket = DefaultOutputBucket
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}

	env := Envelope{Message: Message{
		Attributes: map[string]string{
			"bucketId":  job.SourceBucket,
			"objectId":  job.SourceObject,
			"eventType": EventTypeFinalize,
		},
		Data: base64.StdEncoding.EncodeToString(payload),
	}}
	return json.Marshal(env)
}
