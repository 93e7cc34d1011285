// Package view holds the explicit state machines behind the HTMX
// partials: the sale entry form and the per-row edit lifecycle. All
// transitions are pure so handlers stay thin and the rules testable.
package view

import "chipdash/internal/core"

// FormPhase is the entry form lifecycle.
type FormPhase string

const (
	FormIdle       FormPhase = "idle"
	FormSubmitting FormPhase = "submitting"
)

// FormState carries the sale entry form fields as the user typed them.
// Price stays a string until the server coerces it on submit.
type FormState struct {
	Phase FormPhase

	ChipType    string
	ChipNumber  string
	SizeCls     core.SizeClass
	SizeDigits  string
	PriceTotal  string
	StoreID     int64
	ManualMonth string
	Note        string

	Error string
}

// NewFormState returns the initial form: first chip type preselected,
// everything else blank.
func NewFormState() FormState {
	return FormState{
		Phase:    FormIdle,
		ChipType: core.ChipTypes[0],
	}
}

// Busy reports whether the submit control should be disabled.
func (f FormState) Busy() bool {
	return f.Phase == FormSubmitting
}

// SizeClassChanged selects a size class and pre-fills the digits from
// the lookup table. This is the only transition that derives digits; a
// manual edit sticks until the class changes again.
func (f FormState) SizeClassChanged(c core.SizeClass) FormState {
	f.SizeCls = c
	f.SizeDigits = core.SizeDigitsFor(c)
	return f
}

// SizeDigitsEdited records a manual digits value verbatim.
func (f FormState) SizeDigitsEdited(v string) FormState {
	f.SizeDigits = v
	return f
}

// Submitting marks the form busy for the duration of the request.
func (f FormState) Submitting() FormState {
	f.Phase = FormSubmitting
	f.Error = ""
	return f
}

// SubmitSucceeded clears the per-sale fields and keeps the sticky ones:
// chip type and store persist for rapid consecutive entry, and the
// digits reset to the lookup of the retained size class.
func (f FormState) SubmitSucceeded() FormState {
	f.Phase = FormIdle
	f.PriceTotal = ""
	f.ChipNumber = ""
	f.Note = ""
	f.ManualMonth = ""
	f.SizeDigits = core.SizeDigitsFor(f.SizeCls)
	f.Error = ""
	return f
}

// SubmitFailed returns to idle with every field retained so nothing the
// user typed is lost.
func (f FormState) SubmitFailed(msg string) FormState {
	f.Phase = FormIdle
	f.Error = msg
	return f
}
