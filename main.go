package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/afero"

	"github.com/kdeps/kxlate/pkg/environment"
	"github.com/kdeps/kxlate/pkg/logging"
)

func main() {
	OsExitFn(run(os.Args[1:]))
}

// run executes the CLI and returns the process exit code.
func run(args []string) int {
	fs := afero.NewOsFs()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := logging.GetLogger()

	env, err := setupEnvironment(fs)
	if err != nil {
		logger.Error("Failed to set up environment", "error", err)
		return 1
	}

	setupSignalHandler(cancel, logger)

	rootCmd := NewRootCommandFn(ctx, fs, env, logger)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		return 1
	}
	return 0
}

// setupEnvironment loads the environment using the filesystem.
func setupEnvironment(fs afero.Fs) (*environment.Environment, error) {
	environ, err := NewEnvironmentFn(fs, nil)
	if err != nil {
		return nil, err
	}
	return environ, nil
}

// setupSignalHandler cancels the root context on SIGINT or SIGTERM so servers
// and workers can drain.
func setupSignalHandler(cancelFunc context.CancelFunc, logger *logging.Logger) {
	sigs := make(chan os.Signal, 1)
	SignalNotifyFn(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigs
		logger.Debug(fmt.Sprintf("Received signal: %v, initiating shutdown...", sig))
		cancelFunc()
	}()
}
