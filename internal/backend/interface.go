// Package backend selects and constructs the remote backend the sync
// adapter talks to.
package backend

import (
	"context"

	"spendtrack/internal/remote"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the constructed backend and optional cleanup
// function. Collection and Profiles are nil for the "none" backend.
type Result struct {
	Collection remote.Collection
	Profiles   remote.ProfileStore
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// Firestore specific
	FirestoreProjectID string
}

// Type represents the kind of remote backend
type Type string

const (
	// FirestoreBackend stores each user's collection in Cloud Firestore.
	FirestoreBackend Type = "firestore"
	// MemoryBackend keeps collections in process, for tests and local runs.
	MemoryBackend Type = "memory"
	// NoneBackend disables the inline remote; mutations go to the feed only.
	NoneBackend Type = "none"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case FirestoreBackend, MemoryBackend, NoneBackend:
		return true
	default:
		return false
	}
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return &InvalidTypeError{Type: c.Type}
	}
	if c.Type == FirestoreBackend && c.FirestoreProjectID == "" {
		return ErrMissingProjectID
	}
	return nil
}
