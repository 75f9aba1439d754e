package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/kdeps/kxlate/pkg/environment"
	"github.com/kdeps/kxlate/pkg/llm"
	"github.com/kdeps/kxlate/pkg/logging"
	"github.com/kdeps/kxlate/pkg/queue"
	"github.com/kdeps/kxlate/pkg/translate"
)

func testEnv() *environment.Environment {
	return &environment.Environment{
		Host:               "127.0.0.1",
		Port:               0,
		Mode:               environment.ModeAccuracy,
		StorageBackend:     environment.StorageLocal,
		StorageRoot:        "/buckets",
		ScratchDir:         "/scratch",
		OutputBucket:       "out",
		LLMBackend:         environment.LLMOllama,
		LLMModel:           "test",
		LLMMaxTokens:       1024,
		LLMTimeoutSec:      5,
		SegmentConcurrency: 1,
		JobQueue:           "jobs",
		ResultQueue:        "results",
	}
}

func withModel(t *testing.T, model llms.Model) {
	t.Helper()
	orig := NewModelFn
	NewModelFn = func(llm.Config) (llms.Model, error) { return model, nil }
	t.Cleanup(func() { NewModelFn = orig })
}

func capturePrintln(t *testing.T) *strings.Builder {
	t.Helper()
	var out strings.Builder
	orig := PrintlnFn
	PrintlnFn = func(a ...any) (int, error) {
		for _, v := range a {
			out.WriteString(v.(string))
		}
		return 0, nil
	}
	t.Cleanup(func() { PrintlnFn = orig })
	return &out
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand(context.Background(), afero.NewMemMapFs(), testEnv(), logging.NewTestLogger())
	require.NotNil(t, cmd)
	assert.Equal(t, "kxlate", cmd.Use)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Equal(t, []string{"serve", "run", "worker", "forward"}, names)
}

func TestRunCommand(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/buckets/in/call_42.txt", []byte("[00:01] A: Bonjour tout le monde, comment allez-vous aujourd'hui ?\n"), 0o644))
	model := &llm.MockLLM{Response: "Hello everyone"}
	withModel(t, model)
	out := capturePrintln(t)

	cmd := NewRootCommand(context.Background(), fs, testEnv(), logging.NewTestLogger())
	cmd.SetArgs([]string{"run", "--bucket", "in", "--object", "call_42.txt"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Translation complete")
	assert.Contains(t, out.String(), "call_42.txt")

	files, err := afero.ReadDir(fs, "/buckets/out/translations_accuracy_mode")
	require.NoError(t, err)
	assert.NotEmpty(t, files)
}

func TestRunCommandErrors(t *testing.T) {
	withModel(t, &llm.MockLLM{})
	logger := logging.NewTestLogger()

	cmd := NewRootCommand(context.Background(), afero.NewMemMapFs(), testEnv(), logger)
	cmd.SetArgs([]string{"run", "--bucket", "in", "--object", "missing.txt"})
	assert.Error(t, cmd.Execute())

	cmd = NewRootCommand(context.Background(), afero.NewMemMapFs(), testEnv(), logger)
	cmd.SetArgs([]string{"run", "--bucket", "in", "--object", "a.txt", "--mode", "fast"})
	assert.Error(t, cmd.Execute())

	cmd = NewRootCommand(context.Background(), afero.NewMemMapFs(), testEnv(), logger)
	cmd.SetArgs([]string{"run", "--object", "a.txt"})
	assert.Error(t, cmd.Execute())
}

func TestNewApp(t *testing.T) {
	withModel(t, &llm.MockLLM{})
	env := testEnv()
	env.HistoryDB = ":memory:"
	env.Mode = environment.ModeRealignment

	app, err := NewApp(context.Background(), afero.NewMemMapFs(), env, logging.NewTestLogger())
	require.NoError(t, err)
	assert.NotNil(t, app.History)
	assert.Equal(t, translate.ModeRealignment, app.Mode())
	assert.True(t, app.Orchestrator.Supports(translate.ModeAccuracy))
	assert.NoError(t, app.Close())
}

func TestNewAppBackendError(t *testing.T) {
	orig := NewModelFn
	NewModelFn = func(llm.Config) (llms.Model, error) { return nil, errors.New("no key") }
	t.Cleanup(func() { NewModelFn = orig })

	_, err := NewApp(context.Background(), afero.NewMemMapFs(), testEnv(), logging.NewTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no key")

	env := testEnv()
	env.StorageBackend = "s3"
	_, err = NewApp(context.Background(), afero.NewMemMapFs(), env, logging.NewTestLogger())
	assert.Error(t, err)
}

func TestForwardCommand(t *testing.T) {
	var gotPath, gotAgent string
	var gotBody map[string]map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.UserAgent()
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()
	out := capturePrintln(t)

	cmd := NewRootCommand(context.Background(), afero.NewMemMapFs(), testEnv(), logging.NewTestLogger())
	cmd.SetArgs([]string{"forward", "--url", srv.URL + "/", "--bucket", "in", "--object", "call.txt", "--mode", "realignment"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "/translate_realignment", gotPath)
	assert.True(t, strings.HasPrefix(gotAgent, "kxlate/"))
	attrs := gotBody["message"]["attributes"].(map[string]any)
	assert.Equal(t, "OBJECT_FINALIZE", attrs["eventType"])
	assert.Equal(t, "in", attrs["bucketId"])

	raw, err := base64.StdEncoding.DecodeString(gotBody["message"]["data"].(string))
	require.NoError(t, err)
	assert.JSONEq(t, `{"bucket":"in","name":"call.txt","output_bucket":"out"}`, string(raw))
	assert.Contains(t, out.String(), "success")
}

func TestForwardCommandNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"Invalid event format"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	cmd := NewRootCommand(context.Background(), afero.NewMemMapFs(), testEnv(), logging.NewTestLogger())
	cmd.SetArgs([]string{"forward", "--url", srv.URL, "--bucket", "in", "--object", "call.txt"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestEndpointFor(t *testing.T) {
	assert.Equal(t, "/translate", EndpointFor(translate.ModeAccuracy))
	assert.Equal(t, "/translate_realignment", EndpointFor(translate.ModeRealignment))
}

func TestWorkerCommandConnectError(t *testing.T) {
	withModel(t, &llm.MockLLM{})
	orig := NewConsumerFn
	NewConsumerFn = func(string, string, *logging.Logger) (*queue.Consumer, error) {
		return nil, errors.New("connection refused")
	}
	t.Cleanup(func() { NewConsumerFn = orig })

	cmd := NewRootCommand(context.Background(), afero.NewMemMapFs(), testEnv(), logging.NewTestLogger())
	cmd.SetArgs([]string{"worker"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
