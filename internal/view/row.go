package view

import "chipdash/internal/core"

// RowPhase is the per-row edit lifecycle used by both the sale ledger
// and the store registry.
type RowPhase string

const (
	RowViewing RowPhase = "viewing"
	RowEditing RowPhase = "editing"
	RowSaving  RowPhase = "saving"
)

// RowState tracks one ledger row. Draft holds the in-flight edits and
// is only ever committed by a successful save.
type RowState struct {
	Phase RowPhase
	Row   core.Sale
	Draft core.Sale
	Error string
}

// NewRowState shows a persisted row in its resting state.
func NewRowState(row core.Sale) RowState {
	return RowState{Phase: RowViewing, Row: row}
}

// StartEdit snapshots the row into a draft and opens the editor.
// Editing an already-open row keeps the current draft.
func (r RowState) StartEdit() RowState {
	if r.Phase != RowViewing {
		return r
	}
	r.Phase = RowEditing
	r.Draft = r.Row
	r.Error = ""
	return r
}

// EditDraft applies a field change to the open draft.
func (r RowState) EditDraft(mutate func(*core.Sale)) RowState {
	if r.Phase != RowEditing {
		return r
	}
	mutate(&r.Draft)
	return r
}

// Cancel discards the draft and returns to viewing.
func (r RowState) Cancel() RowState {
	if r.Phase != RowEditing {
		return r
	}
	r.Phase = RowViewing
	r.Draft = core.Sale{}
	r.Error = ""
	return r
}

// BeginSave locks the row while the update request is in flight.
func (r RowState) BeginSave() RowState {
	if r.Phase != RowEditing {
		return r
	}
	r.Phase = RowSaving
	r.Error = ""
	return r
}

// SaveSucceeded commits the saved row and closes the editor.
func (r RowState) SaveSucceeded(saved core.Sale) RowState {
	if r.Phase != RowSaving {
		return r
	}
	r.Phase = RowViewing
	r.Row = saved
	r.Draft = core.Sale{}
	return r
}

// SaveFailed reopens the editor with the draft intact so the user can
// correct and retry.
func (r RowState) SaveFailed(msg string) RowState {
	if r.Phase != RowSaving {
		return r
	}
	r.Phase = RowEditing
	r.Error = msg
	return r
}
