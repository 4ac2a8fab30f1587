package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendtrack/internal/remote/firestore"
	"spendtrack/internal/remote/memory"
)

// ErrMissingProjectID is returned when the firestore backend is
// selected without a project.
var ErrMissingProjectID = errors.New("firestore backend requires a project ID")

// InvalidTypeError reports an unrecognized backend type.
type InvalidTypeError struct {
	Type Type
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("invalid backend type: %q", e.Type)
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case FirestoreBackend:
		return f.createFirestoreBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	case NoneBackend:
		f.logger.Info("Remote backend disabled, mutations go to the feed only")
		return &Result{}, nil
	default:
		return nil, &InvalidTypeError{Type: config.Type}
	}
}

func (f *DefaultFactory) createFirestoreBackend(ctx context.Context, config Config) (*Result, error) {
	cli, err := firestore.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore client: %w", err)
	}

	f.logger.Info("Initialized Firestore backend", "project_id", config.FirestoreProjectID)

	return &Result{
		Collection: cli,
		Profiles:   cli,
		Cleanup:    nil, // No cleanup needed for firestore backend
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*Result, error) {
	store := memory.New()

	f.logger.Info("Initialized in-memory backend")

	return &Result{
		Collection: store,
		Profiles:   store,
		Cleanup:    nil, // No cleanup needed for memory backend
	}, nil
}
