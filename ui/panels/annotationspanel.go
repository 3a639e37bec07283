// Package panels provides the side panel listing the study's annotations.
package panels

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"xray-annotator/internal/annotation"
	"xray-annotator/internal/app"
	"xray-annotator/ui/canvas"
)

// AnnotationsPanel lists the committed annotations with their labels and
// lock state, and hosts the label editor for the selected shape.
type AnnotationsPanel struct {
	state  *app.State
	canvas *canvas.AnnotationCanvas

	list       *widget.List
	labelEntry *widget.Entry
	content    fyne.CanvasObject
}

// New creates the panel bound to the application state.
func New(state *app.State, cv *canvas.AnnotationCanvas) *AnnotationsPanel {
	p := &AnnotationsPanel{state: state, canvas: cv}

	p.list = widget.NewList(
		func() int { return len(state.Editor.Annotations()) },
		p.makeItem,
		p.updateItem,
	)
	p.list.OnSelected = func(id widget.ListItemID) {
		col := state.Editor.Annotations()
		if id < 0 || id >= len(col) {
			return
		}
		state.Editor.Select(col[id].ID)
		p.syncLabelEntry()
		state.Emit(app.EventSelectionChanged, col[id].ID)
		cv.Refresh()
	}

	p.labelEntry = widget.NewEntry()
	p.labelEntry.SetPlaceHolder("Label for selected shape")
	p.labelEntry.OnSubmitted = func(text string) { p.applyLabel(text) }
	applyBtn := widget.NewButtonWithIcon("", theme.ConfirmIcon(), func() {
		p.applyLabel(p.labelEntry.Text)
	})

	labelRow := container.NewBorder(nil, nil, nil, applyBtn, p.labelEntry)
	p.content = container.NewBorder(
		widget.NewLabel("Annotations"), // top
		labelRow,                       // bottom
		nil, nil,
		p.list,
	)

	state.On(app.EventAnnotationsChanged, func(interface{}) { p.Reload() })
	state.On(app.EventStudyLoaded, func(interface{}) { p.Reload() })
	state.On(app.EventSelectionChanged, func(interface{}) { p.syncLabelEntry() })

	return p
}

// Container returns the panel's root object for embedding in layouts.
func (p *AnnotationsPanel) Container() fyne.CanvasObject {
	return p.content
}

// Reload refreshes the list from the editor collection.
func (p *AnnotationsPanel) Reload() {
	p.list.UnselectAll()
	p.list.Refresh()
	p.syncLabelEntry()
}

// annotationRow is one list entry: description text plus lock and delete
// actions.
type annotationRow struct {
	desc    *widget.Label
	lockBtn *widget.Button
	delBtn  *widget.Button
}

func (p *AnnotationsPanel) makeItem() fyne.CanvasObject {
	row := &annotationRow{
		desc:    widget.NewLabel("annotation"),
		lockBtn: widget.NewButton("Lock", nil),
		delBtn:  widget.NewButtonWithIcon("", theme.DeleteIcon(), nil),
	}
	return container.NewBorder(nil, nil, nil,
		container.NewHBox(row.lockBtn, row.delBtn), row.desc)
}

func (p *AnnotationsPanel) updateItem(id widget.ListItemID, obj fyne.CanvasObject) {
	col := p.state.Editor.Annotations()
	if id < 0 || id >= len(col) {
		return
	}
	a := col[id]

	border := obj.(*fyne.Container)
	desc := border.Objects[0].(*widget.Label)
	actions := border.Objects[1].(*fyne.Container)
	lockBtn := actions.Objects[0].(*widget.Button)
	delBtn := actions.Objects[1].(*widget.Button)

	desc.SetText(describe(a))

	if a.Locked {
		lockBtn.SetText("Unlock")
	} else {
		lockBtn.SetText("Lock")
	}
	shapeID := a.ID
	locked := a.Locked
	lockBtn.OnTapped = func() {
		p.state.Editor.SetLocked(shapeID, !locked)
		p.afterEdit()
	}
	delBtn.OnTapped = func() {
		p.state.Editor.Select(shapeID)
		p.state.Editor.DeleteSelected()
		p.afterEdit()
	}
}

// describe renders one list line, e.g. "box - fracture" or "ruler".
func describe(a *annotation.Annotation) string {
	if a.Label != "" {
		return fmt.Sprintf("%s - %s", a.Kind, a.Label)
	}
	if a.Kind == annotation.KindText && a.Text != "" {
		return fmt.Sprintf("%s - %s", a.Kind, a.Text)
	}
	return string(a.Kind)
}

func (p *AnnotationsPanel) applyLabel(text string) {
	id := p.state.Editor.SelectedID()
	if id == "" {
		return
	}
	p.state.Editor.SetLabel(id, text)
	p.afterEdit()
}

// syncLabelEntry mirrors the selected shape's label into the entry.
func (p *AnnotationsPanel) syncLabelEntry() {
	id := p.state.Editor.SelectedID()
	if id == "" {
		p.labelEntry.SetText("")
		return
	}
	for _, a := range p.state.Editor.Annotations() {
		if a.ID == id {
			p.labelEntry.SetText(a.Label)
			return
		}
	}
}

func (p *AnnotationsPanel) afterEdit() {
	p.canvas.SyncAfterEdit()
	p.list.Refresh()
}
