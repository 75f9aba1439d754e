package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kdeps/kxlate/pkg/environment"
	"github.com/kdeps/kxlate/pkg/intake"
	"github.com/kdeps/kxlate/pkg/logging"
	"github.com/kdeps/kxlate/pkg/translate"
	"github.com/kdeps/kxlate/pkg/version"
)

// NewForwardCommand creates the 'forward' command, which wraps an object
// finalized event into an envelope and posts it to a running service.
func NewForwardCommand(ctx context.Context, env *environment.Environment, logger *logging.Logger) *cobra.Command {
	var job intake.Job
	var baseURL, modeFlag string

	cmd := &cobra.Command{
		Use:     "forward",
		Aliases: []string{"f"},
		Example: "$ kxlate forward --url https://translator.example.com --bucket transcripts --object call_42.txt",
		Short:   "Forward a storage event to a translation service",
		RunE: func(_ *cobra.Command, _ []string) error {
			mode, err := translate.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			if job.OutputBucket == "" {
				job.OutputBucket = env.OutputBucket
			}

			body, err := intake.EncodeEnvelope(job)
			if err != nil {
				return err
			}

			target := strings.TrimRight(baseURL, "/") + EndpointFor(mode)
			logger.Info("forwarding event", "url", target, "bucket", job.SourceBucket, "object", job.SourceObject)

			resp, err := forward(ctx, target, body)
			if err != nil {
				return err
			}
			PrintlnFn(resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "base URL of the translation service")
	cmd.Flags().StringVar(&job.SourceBucket, "bucket", "", "bucket of the finalized object")
	cmd.Flags().StringVar(&job.SourceObject, "object", "", "name of the finalized object")
	cmd.Flags().StringVar(&job.OutputBucket, "output-bucket", "", "destination bucket (default OUTPUT_BUCKET)")
	cmd.Flags().StringVar(&modeFlag, "mode", "accuracy", "accuracy or realignment")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("object")
	return cmd
}

// EndpointFor returns the service path handling mode.
func EndpointFor(mode translate.Mode) string {
	if mode == translate.ModeRealignment {
		return "/translate_realignment"
	}
	return "/translate"
}

func forward(ctx context.Context, url string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("forward event: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to forward event: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return string(respBody), nil
}
