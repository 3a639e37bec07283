// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"fmt"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"xray-annotator/internal/app"
	"xray-annotator/internal/editor"
	"xray-annotator/internal/imagelayer"
	"xray-annotator/internal/version"
	"xray-annotator/pkg/geometry"
	"xray-annotator/ui/canvas"
	"xray-annotator/ui/panels"
	"xray-annotator/ui/prefs"
)

const (
	prefKeyLastDir      = "lastDirectory"
	prefKeyLastImage    = "lastImage"
	prefKeyLastPatient  = "lastPatient"
	prefKeyReopenImage  = "reopenLastImage"
	prefKeyWindowWidth  = "windowWidth"
	prefKeyWindowHeight = "windowHeight"
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app   fyne.App
	state *app.State
	prefs *prefs.Prefs

	canvas       *canvas.AnnotationCanvas
	panel        *panels.AnnotationsPanel
	statusBar    *widget.Label
	patientEntry *widget.Entry
	toolButtons  map[editor.Tool]*widget.Button
}

// New creates the main window.
func New(fyneApp fyne.App, state *app.State, pf *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow("X-Ray Annotator")

	mw := &MainWindow{
		Window:      win,
		app:         fyneApp,
		state:       state,
		prefs:       pf,
		toolButtons: make(map[editor.Tool]*widget.Button),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupShortcuts()
	mw.setupEventHandlers()
	mw.restoreSession()

	w := pf.FloatWithFallback(prefKeyWindowWidth, 1280)
	h := pf.FloatWithFallback(prefKeyWindowHeight, 800)
	win.Resize(fyne.NewSize(float32(w), float32(h)))
	win.SetOnClosed(func() {
		size := win.Canvas().Size()
		pf.SetFloat(prefKeyWindowWidth, float64(size.Width))
		pf.SetFloat(prefKeyWindowHeight, float64(size.Height))
		_ = pf.Save()
	})

	return mw
}

// setupUI creates the main layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.New(mw.state)
	mw.canvas.OnPendingText(mw.promptPendingText)
	mw.panel = panels.New(mw.state, mw.canvas)
	mw.statusBar = widget.NewLabel("Ready")

	mw.patientEntry = widget.NewEntry()
	mw.patientEntry.SetPlaceHolder("Patient ID")
	mw.patientEntry.OnSubmitted = func(id string) {
		if err := mw.state.SetPatient(context.Background(), id); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.prefs.SetString(prefKeyLastPatient, id)
		mw.canvas.Refresh()
		mw.updateStatus("Patient: " + id)
	}

	canvasArea := container.NewBorder(
		mw.createToolbar(), // top
		nil, nil, nil,
		mw.canvas,
	)

	split := container.NewHSplit(mw.panel.Container(), canvasArea)
	split.SetOffset(0.22)

	content := container.NewBorder(
		nil,
		container.NewPadded(mw.statusBar),
		nil, nil,
		split,
	)
	mw.SetContent(content)
}

// toolbarTools is the button order in the toolbar.
var toolbarTools = []struct {
	tool  editor.Tool
	label string
}{
	{editor.ToolSelect, "Select"},
	{editor.ToolMarker, "Marker"},
	{editor.ToolBox, "Box"},
	{editor.ToolCircle, "Circle"},
	{editor.ToolEllipse, "Ellipse"},
	{editor.ToolLine, "Line"},
	{editor.ToolFreehand, "Freehand"},
	{editor.ToolRuler, "Ruler"},
	{editor.ToolAngle, "Angle"},
	{editor.ToolText, "Text"},
	{editor.ToolEraser, "Eraser"},
}

func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	items := []fyne.CanvasObject{}
	for _, tt := range toolbarTools {
		tool := tt.tool
		btn := widget.NewButton(tt.label, func() { mw.selectTool(tool) })
		mw.toolButtons[tool] = btn
		items = append(items, btn)
	}
	mw.toolButtons[mw.state.Editor.Tool()].Importance = widget.HighImportance

	items = append(items,
		widget.NewSeparator(),
		widget.NewButton("-", mw.onZoomOut),
		widget.NewButton("+", mw.onZoomIn),
		widget.NewButton("1:1", mw.onActualSize),
		widget.NewSeparator(),
		widget.NewLabel("Patient:"),
		mw.patientEntry,
	)
	return container.NewHBox(items...)
}

// selectTool switches the active tool and highlights its button.
func (mw *MainWindow) selectTool(tool editor.Tool) {
	prev := mw.state.Editor.Tool()
	if btn, ok := mw.toolButtons[prev]; ok {
		btn.Importance = widget.MediumImportance
		btn.Refresh()
	}
	mw.state.Editor.SetTool(tool)
	if btn, ok := mw.toolButtons[tool]; ok {
		btn.Importance = widget.HighImportance
		btn.Refresh()
	}
	mw.state.Emit(app.EventToolChanged, tool)
	mw.updateStatus("Tool: " + string(tool))
}

func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Annotations", mw.onSave),
		fyne.NewMenuItem("Revert to Saved", mw.onRevert),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", mw.onUndo),
		fyne.NewMenuItem("Redo", mw.onRedo),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Delete Selected", mw.onDeleteSelected),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		fyne.NewMenuItem("Actual Size", mw.onActualSize),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu))
}

// setupShortcuts wires the keyboard: single-letter tool keys and zoom keys
// go through the editor, modifier chords map to the edit actions, and the
// space bar pans while held. All single-key handling is suppressed while a
// text entry has focus.
func (mw *MainWindow) setupShortcuts() {
	mw.Canvas().SetOnTypedRune(func(r rune) {
		if mw.Canvas().Focused() != nil {
			return
		}
		if mw.state.Editor.HandleKey(r, mw.canvas.PointerPosition()) {
			mw.syncToolButtons()
			mw.canvas.Refresh()
		}
	})

	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if mw.Canvas().Focused() != nil {
			return
		}
		switch ev.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			mw.onDeleteSelected()
		case fyne.KeyEscape:
			mw.state.Editor.CancelPendingText()
			mw.canvas.Refresh()
		}
	})

	ctrl := fyne.KeyModifierControl
	mw.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: ctrl},
		func(fyne.Shortcut) { mw.onUndo() })
	mw.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: ctrl},
		func(fyne.Shortcut) { mw.onRedo() })
	mw.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: ctrl | fyne.KeyModifierShift},
		func(fyne.Shortcut) { mw.onRedo() })
	mw.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: ctrl},
		func(fyne.Shortcut) { mw.onSave() })

	if deskCanvas, ok := mw.Canvas().(desktop.Canvas); ok {
		deskCanvas.SetOnKeyDown(func(ev *fyne.KeyEvent) {
			if ev.Name == fyne.KeySpace && mw.Canvas().Focused() == nil {
				mw.state.Editor.SetPanHold(true)
			}
		})
		deskCanvas.SetOnKeyUp(func(ev *fyne.KeyEvent) {
			if ev.Name == fyne.KeySpace {
				mw.state.Editor.SetPanHold(false)
			}
		})
	}
}

// syncToolButtons re-highlights the active tool after a keyboard switch.
func (mw *MainWindow) syncToolButtons() {
	active := mw.state.Editor.Tool()
	for tool, btn := range mw.toolButtons {
		want := widget.MediumImportance
		if tool == active {
			want = widget.HighImportance
		}
		if btn.Importance != want {
			btn.Importance = want
			btn.Refresh()
		}
	}
	mw.updateStatus("Tool: " + string(active))
}

func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventImageLoaded, func(data interface{}) {
		if layer, ok := data.(*imagelayer.Layer); ok {
			mw.SetTitle("X-Ray Annotator - " + layer.Name)
			mw.updateStatus(fmt.Sprintf("Loaded %s (%dx%d)", layer.Name, layer.Width(), layer.Height()))
		}
	})

	mw.state.On(app.EventModified, func(data interface{}) {
		modified, ok := data.(bool)
		if !ok {
			return
		}
		title := mw.Title()
		hasStar := len(title) > 0 && title[len(title)-1] == '*'
		if modified && !hasStar {
			mw.SetTitle(title + " *")
		} else if !modified && hasStar {
			mw.SetTitle(title[:len(title)-2])
		}
	})

	mw.state.On(app.EventStudySaved, func(interface{}) {
		mw.updateStatus("Annotations saved")
	})
}

// promptPendingText shows the inline entry for a freshly drawn text box.
// Confirming with empty text, cancelling, or dismissing drops the shape.
func (mw *MainWindow) promptPendingText() {
	entry := widget.NewEntry()
	entry.SetPlaceHolder("Annotation text")
	d := dialog.NewForm("Text Annotation", "Place", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Text", entry)},
		func(confirmed bool) {
			if confirmed {
				mw.state.Editor.ConfirmPendingText(entry.Text)
			} else {
				mw.state.Editor.CancelPendingText()
			}
			mw.canvas.SyncAfterEdit()
		}, mw.Window)
	d.Show()
	mw.Canvas().Focus(entry)
}

func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// restoreSession reapplies the last patient and, when enabled, reopens the
// last image.
func (mw *MainWindow) restoreSession() {
	ctx := context.Background()
	if id := mw.prefs.String(prefKeyLastPatient); id != "" {
		mw.patientEntry.SetText(id)
		if err := mw.state.SetPatient(ctx, id); err != nil {
			mw.updateStatus("Restore patient: " + err.Error())
		}
	}
	if !mw.prefs.Bool(prefKeyReopenImage, true) {
		return
	}
	if path := mw.prefs.String(prefKeyLastImage); path != "" {
		if err := mw.state.LoadImage(ctx, path); err != nil {
			mw.updateStatus("Reopen image: " + err.Error())
		}
	}
}

func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefKeyLastDir, filepath.Dir(filePath))
	_ = mw.prefs.Save()
}

// Menu action handlers

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		if err := mw.state.LoadImage(context.Background(), path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.prefs.SetString(prefKeyLastImage, path)
		_ = mw.prefs.Save()
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(imagelayer.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSave() {
	if err := mw.state.SaveStudy(context.Background()); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onRevert() {
	dialog.ShowConfirm("Revert", "Discard unsaved annotation changes?", func(ok bool) {
		if !ok {
			return
		}
		if err := mw.state.RevertStudy(context.Background()); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.canvas.Refresh()
	}, mw.Window)
}

func (mw *MainWindow) onUndo() {
	mw.state.Editor.Undo()
	mw.canvas.SyncAfterEdit()
}

func (mw *MainWindow) onRedo() {
	mw.state.Editor.Redo()
	mw.canvas.SyncAfterEdit()
}

func (mw *MainWindow) onDeleteSelected() {
	mw.state.Editor.DeleteSelected()
	mw.canvas.SyncAfterEdit()
}

func (mw *MainWindow) onZoomIn() {
	mw.state.Editor.ZoomInStep(mw.canvasCenter())
	mw.canvas.Refresh()
}

func (mw *MainWindow) onZoomOut() {
	mw.state.Editor.ZoomOutStep(mw.canvasCenter())
	mw.canvas.Refresh()
}

func (mw *MainWindow) onActualSize() {
	mw.state.Editor.Viewport().Reset()
	mw.canvas.Refresh()
}

// canvasCenter returns the canvas midpoint for button-driven zoom, which
// has no pointer position to center on.
func (mw *MainWindow) canvasCenter() geometry.Point2D {
	size := mw.canvas.Size()
	return geometry.NewPoint2D(float64(size.Width)/2, float64(size.Height)/2)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About X-Ray Annotator",
		fmt.Sprintf("X-Ray Annotator v%s\n\n"+
			"Annotation tooling for radiographic studies.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
