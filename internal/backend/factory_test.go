package backend

import (
	"context"
	"errors"
	"testing"
)

func TestCreateBackendMemory(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatal(err)
	}
	if res.Collection == nil || res.Profiles == nil {
		t.Fatal("memory backend should provide collection and profiles")
	}
}

func TestCreateBackendNone(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.CreateBackend(context.Background(), Config{Type: NoneBackend})
	if err != nil {
		t.Fatal(err)
	}
	if res.Collection != nil || res.Profiles != nil {
		t.Fatal("none backend should leave collection and profiles nil")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{"memory ok", Config{Type: MemoryBackend}, nil},
		{"none ok", Config{Type: NoneBackend}, nil},
		{"firestore needs project", Config{Type: FirestoreBackend}, ErrMissingProjectID},
		{"firestore ok", Config{Type: FirestoreBackend, FirestoreProjectID: "p"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateRejectsUnknownType(t *testing.T) {
	err := Config{Type: "postgres"}.Validate()
	var invalid *InvalidTypeError
	if !errors.As(err, &invalid) {
		t.Fatalf("Validate() = %v, want InvalidTypeError", err)
	}
}
