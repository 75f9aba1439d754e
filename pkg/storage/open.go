package storage

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"google.golang.org/api/option"

	"github.com/kdeps/kxlate/pkg/environment"
	"github.com/kdeps/kxlate/pkg/logging"
)

// Open builds the Store selected by env.StorageBackend. The returned close
// function is always non-nil.
func Open(ctx context.Context, fs afero.Fs, env *environment.Environment, logger *logging.Logger) (Store, func() error, error) {
	noop := func() error { return nil }

	switch env.StorageBackend {
	case environment.StorageLocal, "":
		return NewLocal(fs, env.StorageRoot, logger), noop, nil
	case environment.StorageGCS:
		var opts []option.ClientOption
		if env.GCPProject != "" {
			// GCP_PROJECT is the quota and billing project, not a bucket scope.
			opts = append(opts, option.WithQuotaProject(env.GCPProject))
		}
		g, err := NewGCS(ctx, env.GCPCredentialsFile, logger, opts...)
		if err != nil {
			return nil, noop, err
		}
		return g, g.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", env.StorageBackend)
	}
}
