package app

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xray-annotator/internal/annotation"
	"xray-annotator/internal/editor"
	"xray-annotator/internal/store"
	"xray-annotator/internal/view"
	"xray-annotator/pkg/geometry"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	ed := editor.New(editor.DefaultConfig(), view.NewViewport(), zerolog.Nop())
	return NewState(zerolog.Nop(), ed, store.NewMemory())
}

func writeTestImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 32, 32))))
	return path
}

func drawBox(s *State) {
	s.Editor.SetTool(editor.ToolBox)
	s.Editor.PointerDown(geometry.Point2D{X: 10, Y: 10})
	s.Editor.PointerMove(geometry.Point2D{X: 50, Y: 40})
	s.Editor.PointerUp(geometry.Point2D{X: 50, Y: 40})
}

func TestLoadImageResetsEditor(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t)
	require.NoError(t, s.SetPatient(ctx, "p-1"))

	var events []EventType
	s.On(EventImageLoaded, func(interface{}) { events = append(events, EventImageLoaded) })

	drawBox(s)
	require.Len(t, s.Editor.Annotations(), 1)

	require.NoError(t, s.LoadImage(ctx, writeTestImage(t, "chest.png")))
	assert.Empty(t, s.Editor.Annotations())
	assert.False(t, s.Editor.CanUndo())
	assert.Equal(t, []EventType{EventImageLoaded}, events)

	key, ok := s.Key()
	require.True(t, ok)
	assert.Equal(t, store.Key{PatientID: "p-1", ImageName: "chest.png"}, key)
}

func TestSaveAndReloadStudy(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t)
	require.NoError(t, s.SetPatient(ctx, "p-1"))
	require.NoError(t, s.LoadImage(ctx, writeTestImage(t, "chest.png")))

	drawBox(s)
	s.SetModified(true)
	require.NoError(t, s.SaveStudy(ctx))
	assert.False(t, s.Modified)

	// A second state sharing the store sees the saved set.
	other := NewState(zerolog.Nop(),
		editor.New(editor.DefaultConfig(), view.NewViewport(), zerolog.Nop()), s.Store)
	require.NoError(t, other.SetPatient(ctx, "p-1"))
	require.NoError(t, other.LoadImage(ctx, writeTestImage(t, "chest.png")))
	require.Len(t, other.Editor.Annotations(), 1)
	assert.Equal(t, annotation.KindBox, other.Editor.Annotations()[0].Kind)
}

func TestRevertStudyDiscardsEdits(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t)
	require.NoError(t, s.SetPatient(ctx, "p-1"))
	require.NoError(t, s.LoadImage(ctx, writeTestImage(t, "chest.png")))

	drawBox(s)
	require.NoError(t, s.SaveStudy(ctx))

	drawBox(s)
	require.Len(t, s.Editor.Annotations(), 2)

	require.NoError(t, s.RevertStudy(ctx))
	assert.Len(t, s.Editor.Annotations(), 1)
}

func TestSaveWithoutStudyFails(t *testing.T) {
	s := newTestState(t)
	assert.Error(t, s.SaveStudy(context.Background()))
}

func TestSwitchPatientReloadsAnnotations(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t)
	require.NoError(t, s.SetPatient(ctx, "p-1"))
	require.NoError(t, s.LoadImage(ctx, writeTestImage(t, "chest.png")))
	drawBox(s)
	require.NoError(t, s.SaveStudy(ctx))

	// Another patient has no annotations on the same image name.
	require.NoError(t, s.SetPatient(ctx, "p-2"))
	assert.Empty(t, s.Editor.Annotations())

	require.NoError(t, s.SetPatient(ctx, "p-1"))
	assert.Len(t, s.Editor.Annotations(), 1)
}

func TestModifiedEmitsOnceOnChange(t *testing.T) {
	s := newTestState(t)
	var fired int
	s.On(EventModified, func(interface{}) { fired++ })

	s.SetModified(true)
	s.SetModified(true)
	s.SetModified(false)
	assert.Equal(t, 2, fired)
}
