// Package storage implements the document object store on the local filesystem or S3.
package storage

import (
	"context"
	"fmt"

	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// NewDocumentStore builds the backend selected by cfg.Backend.
func NewDocumentStore(ctx context.Context, cfg *config.StorageConfig, log logger.Logger) (service.DocumentStore, error) {
	switch cfg.Backend {
	case "local":
		return NewLocalStore(cfg.LocalRoot, log)
	case "s3":
		return NewS3Store(ctx, &cfg.S3, log)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
