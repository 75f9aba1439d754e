package cmd

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kdeps/kxlate/pkg/environment"
	"github.com/kdeps/kxlate/pkg/logging"
	"github.com/kdeps/kxlate/pkg/version"
)

// NewRootCommand returns the root command with all subcommands attached
func NewRootCommand(ctx context.Context, fs afero.Fs, env *environment.Environment, logger *logging.Logger) *cobra.Command {
	cobra.EnableCommandSorting = false
	rootCmd := &cobra.Command{
		Use:   "kxlate",
		Short: "Transcript translation service.",
		Long: `Kxlate turns speaker-attributed transcripts into per-language JSON translations.
It detects the source language, resolves the target languages and translates each
segment with an LLM backend, storing one artifact per target language.`,
		Version:      version.String(),
		SilenceUsage: true,
	}
	rootCmd.AddCommand(NewServeCommand(ctx, fs, env, logger))
	rootCmd.AddCommand(NewRunCommand(ctx, fs, env, logger))
	rootCmd.AddCommand(NewWorkerCommand(ctx, fs, env, logger))
	rootCmd.AddCommand(NewForwardCommand(ctx, env, logger))

	return rootCmd
}
