// Package store persists annotation sets keyed by study: a patient id plus
// an image name. Backends share one wire format, the annotation JSON
// collection, so studies move freely between them.
package store

import (
	"context"
	"errors"
	"fmt"

	"xray-annotator/internal/annotation"
)

// ErrUnknownBackend is returned by Open for an unrecognized backend name.
var ErrUnknownBackend = errors.New("store: unknown backend")

// Key identifies one annotated image.
type Key struct {
	PatientID string
	ImageName string
}

func (k Key) String() string {
	return k.PatientID + "/" + k.ImageName
}

func (k Key) validate() error {
	if k.PatientID == "" || k.ImageName == "" {
		return fmt.Errorf("store: incomplete key %q", k.String())
	}
	return nil
}

// Store is the persistence interface for annotation sets. Saving an empty
// collection is equivalent to Delete; loading a study that was never saved
// yields an empty collection, not an error.
type Store interface {
	Save(ctx context.Context, key Key, col []*annotation.Annotation) error
	Load(ctx context.Context, key Key) ([]*annotation.Annotation, error)
	// Images lists the image names with saved annotations for a patient.
	Images(ctx context.Context, patientID string) ([]string, error)
	Delete(ctx context.Context, key Key) error
	Close() error
}

// Options parameterizes Open.
type Options struct {
	// Backend is one of "memory", "filesystem", or "sqlite".
	Backend string
	// Path is the filesystem store root.
	Path string
	// DSN is the sqlite database path.
	DSN string
}

// Open constructs the configured backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "memory":
		return NewMemory(), nil
	case "filesystem":
		return NewFilesystem(opts.Path)
	case "sqlite":
		return NewSQLite(opts.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
