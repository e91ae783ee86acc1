// Package vectorutils builds vector drivers from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/gleaner/pkg/vector"
	"github.com/papercomputeco/gleaner/pkg/vector/qdrant"
	"github.com/papercomputeco/gleaner/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	// ProviderType is "sqlite", "qdrant" or empty for no index.
	ProviderType string

	// Target is the sqlite database path, or the qdrant host.
	Target     string
	Port       int
	APIKey     string
	Collection string
	Dimensions uint
	Logger     *slog.Logger
}

// NewVectorDriver returns nil with no error when ProviderType is empty.
func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "":
		return nil, nil
	case "sqlite":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
			Logger:     o.Logger,
		})
	case "qdrant":
		return qdrant.NewDriver(ctx, qdrant.Config{
			Host:       o.Target,
			Port:       o.Port,
			APIKey:     o.APIKey,
			Collection: o.Collection,
			Dimensions: uint64(o.Dimensions),
			Logger:     o.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
