package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xray-annotator/internal/annotation"
	"xray-annotator/pkg/geometry"
)

func sampleCollection() []*annotation.Annotation {
	box := annotation.New(annotation.KindBox,
		geometry.Point2D{X: 10, Y: 10}, geometry.Point2D{X: 50, Y: 40})
	box.Label = "fracture"
	box.Locked = true
	line := annotation.New(annotation.KindRuler,
		geometry.Point2D{X: 0, Y: 0}, geometry.Point2D{X: 3, Y: 4})
	return []*annotation.Annotation{box, line}
}

// backends that every conformance test runs against.
func backends(t *testing.T) map[string]Store {
	fs, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	sq, err := NewSQLite(filepath.Join(t.TempDir(), "studies.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{
		"memory":     NewMemory(),
		"filesystem": fs,
		"sqlite":     sq,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	key := Key{PatientID: "p-0042", ImageName: "chest-lat.png"}

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			want := sampleCollection()
			require.NoError(t, s.Save(ctx, key, want))

			got, err := s.Load(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			// Overwrite replaces, not appends.
			require.NoError(t, s.Save(ctx, key, want[:1]))
			got, err = s.Load(ctx, key)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "fracture", got[0].Label)
			assert.True(t, got[0].Locked)
		})
	}
}

func TestLoadUnknownStudyIsEmpty(t *testing.T) {
	ctx := context.Background()
	key := Key{PatientID: "nobody", ImageName: "none.png"}

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Load(ctx, key)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestSaveEmptyDeletes(t *testing.T) {
	ctx := context.Background()
	key := Key{PatientID: "p-0042", ImageName: "chest-pa.png"}

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, key, sampleCollection()))
			require.NoError(t, s.Save(ctx, key, nil))

			got, err := s.Load(ctx, key)
			require.NoError(t, err)
			assert.Empty(t, got)

			names, err := s.Images(ctx, key.PatientID)
			require.NoError(t, err)
			assert.Empty(t, names)
		})
	}
}

func TestImagesListsPerPatient(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			col := sampleCollection()
			require.NoError(t, s.Save(ctx, Key{"p-1", "b.png"}, col))
			require.NoError(t, s.Save(ctx, Key{"p-1", "a.png"}, col))
			require.NoError(t, s.Save(ctx, Key{"p-2", "c.png"}, col))

			names, err := s.Images(ctx, "p-1")
			require.NoError(t, err)
			assert.Equal(t, []string{"a.png", "b.png"}, names)
		})
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	key := Key{PatientID: "p-7", ImageName: "skull.png"}

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, key, sampleCollection()))
			require.NoError(t, s.Delete(ctx, key))
			got, err := s.Load(ctx, key)
			require.NoError(t, err)
			assert.Empty(t, got)

			// Deleting again is fine.
			require.NoError(t, s.Delete(ctx, key))
		})
	}
}

func TestIncompleteKeyRejected(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, s.Save(ctx, Key{PatientID: "p"}, sampleCollection()))
			_, err := s.Load(ctx, Key{ImageName: "x.png"})
			assert.Error(t, err)
		})
	}
}

func TestFilesystemRejectsPathEscape(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	err = fs.Save(ctx, Key{PatientID: "../evil", ImageName: "a.png"}, sampleCollection())
	assert.Error(t, err)
	err = fs.Save(ctx, Key{PatientID: "p", ImageName: "../../a"}, sampleCollection())
	assert.Error(t, err)
}

func TestFilesystemLayout(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fs, err := NewFilesystem(root)
	require.NoError(t, err)

	key := Key{PatientID: "p-0042", ImageName: "chest-pa.png"}
	require.NoError(t, fs.Save(ctx, key, sampleCollection()))

	_, err = os.Stat(filepath.Join(root, "p-0042", "chest-pa.png.json"))
	assert.NoError(t, err)
}

func TestMemoryIsolatesStoredState(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	key := Key{PatientID: "p", ImageName: "i.png"}

	col := sampleCollection()
	require.NoError(t, m.Save(ctx, key, col))
	col[0].Label = "mutated after save"

	got, err := m.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "fracture", got[0].Label)

	got[0].Label = "mutated after load"
	again, err := m.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "fracture", again[0].Label)
}

func TestOpenSelectsBackend(t *testing.T) {
	s, err := Open(Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(Options{Backend: "filesystem", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &Filesystem{}, s)

	_, err = Open(Options{Backend: "redis"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
