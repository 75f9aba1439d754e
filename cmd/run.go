package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kdeps/kxlate/pkg/environment"
	"github.com/kdeps/kxlate/pkg/intake"
	"github.com/kdeps/kxlate/pkg/ktx"
	"github.com/kdeps/kxlate/pkg/logging"
	"github.com/kdeps/kxlate/pkg/pipeline"
	"github.com/kdeps/kxlate/pkg/translate"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
)

// NewRunCommand creates the 'run' command, which processes one job in-process.
func NewRunCommand(ctx context.Context, fs afero.Fs, env *environment.Environment, logger *logging.Logger) *cobra.Command {
	var job intake.Job
	var modeFlag string

	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"r"},
		Example: "$ kxlate run --bucket transcripts --object call_42.txt",
		Short:   "Translate a single transcript and print a summary",
		RunE: func(_ *cobra.Command, _ []string) error {
			mode, err := translate.ParseMode(modeFlag)
			if err != nil {
				return err
			}

			app, err := NewApp(ctx, fs, env, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if modeFlag == "" {
				mode = app.Mode()
			}

			res, err := app.Orchestrator.Run(ktx.WithSource(ctx, "cli"), job, mode)
			if err != nil {
				return err
			}

			PrintlnFn(renderSummary(job, res))
			return nil
		},
	}
	cmd.Flags().StringVar(&job.SourceBucket, "bucket", "", "source bucket")
	cmd.Flags().StringVar(&job.SourceObject, "object", "", "source transcript object name")
	cmd.Flags().StringVar(&job.OutputBucket, "output-bucket", "", "destination bucket (default OUTPUT_BUCKET)")
	cmd.Flags().StringVar(&modeFlag, "mode", "", "accuracy or realignment (default KXLATE_MODE)")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("object")
	return cmd
}

func renderSummary(job intake.Job, res pipeline.Result) string {
	row := func(label, value string) string {
		return labelStyle.Render(label) + value
	}

	outputs := "none"
	if len(res.OutputFiles) > 0 {
		lines := make([]string, len(res.OutputFiles))
		for i, f := range res.OutputFiles {
			lines[i] = okStyle.Render("✓ ") + f
		}
		outputs = strings.Join(lines, "\n"+strings.Repeat(" ", 12))
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Translation complete"),
		row("job", res.JobID),
		row("source", fmt.Sprintf("%s/%s", job.SourceBucket, job.SourceObject)),
		row("mode", res.Mode),
		row("language", res.SourceLanguage),
		row("segments", fmt.Sprint(res.Segments)),
		row("artifacts", outputs),
	)
	return boxStyle.Render(body)
}
