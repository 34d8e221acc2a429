// Package inquiry implements the import wizard: a keyed, in-memory session
// advanced step by step (type, size, form) until the collected record is
// submitted downstream.
package inquiry

import (
	"slices"
	"strings"
	"time"
)

// DefaultConfirmationPhrase is the sentinel a player writes to confirm an inquiry.
const DefaultConfirmationPhrase = "bean juice"

// State is the position of a session in the wizard.
type State int

const (
	StateCreated State = iota
	StateTypeSelected
	StateSizeSelected
	StateAwaitingSubmission
	StateFinalized
	StateFailed
)

var stateNames = [...]string{
	StateCreated:            "created",
	StateTypeSelected:       "type_selected",
	StateSizeSelected:       "size_selected",
	StateAwaitingSubmission: "awaiting_submission",
	StateFinalized:          "finalized",
	StateFailed:             "failed",
}

func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// PropertyType is the kind of property requested.
type PropertyType string

const (
	PropertyNative PropertyType = "Native"
	PropertyYMap   PropertyType = "YMap"
)

// PropertyTypes lists the selectable property types in menu order.
func PropertyTypes() []PropertyType { return []PropertyType{PropertyNative, PropertyYMap} }

// Describe returns the menu hint shown next to a property type.
func (t PropertyType) Describe() string {
	switch t {
	case PropertyNative:
		return "Standard in-game property"
	case PropertyYMap:
		return "Custom map build"
	}
	return ""
}

// PropertySize is the requested plot size.
type PropertySize string

const (
	Size25x25   PropertySize = "25x25"
	Size50x50   PropertySize = "50x50"
	Size100x100 PropertySize = "100x100"
)

// PropertySizes lists the selectable sizes in menu order.
func PropertySizes() []PropertySize { return []PropertySize{Size25x25, Size50x50, Size100x100} }

// ParsePropertyType accepts only the enumerated values.
func ParsePropertyType(v string) (PropertyType, error) {
	t := PropertyType(strings.TrimSpace(v))
	if !slices.Contains(PropertyTypes(), t) {
		return "", ErrInvalidSelection
	}
	return t, nil
}

// ParsePropertySize accepts only the enumerated values.
func ParsePropertySize(v string) (PropertySize, error) {
	s := PropertySize(strings.TrimSpace(v))
	if !slices.Contains(PropertySizes(), s) {
		return "", ErrInvalidSelection
	}
	return s, nil
}

// ThreadRef identifies the forum topic an inquiry was imported from.
type ThreadRef struct {
	ChatID   int64
	ThreadID int
	Name     string
}

// Author identifies a forum participant.
type Author struct {
	ID   int64
	Name string
}

// Session is one in-flight wizard run.
type Session struct {
	Key         string
	Source      Author
	RawContent  string
	Images      []string
	Thread      ThreadRef
	InitiatorID int64

	State              State
	PropertyType       PropertyType
	PropertySize       PropertySize
	GeneralLocation    string
	Notes              string
	ConfirmationPhrase string
	ConfirmationMarker bool

	// LastError holds the downstream message of the latest failed submission.
	LastError string
	CreatedAt time.Time
}

func (s Session) clone() Session {
	s.Images = slices.Clone(s.Images)
	return s
}

// HasMarker reports whether text contains phrase, ignoring case.
func HasMarker(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(phrase))
}

// Record is the finalized inquiry handed to the submitter.
type Record struct {
	SourceAuthorID     int64
	ConfirmationPhrase string
	PropertyType       PropertyType
	PropertySize       PropertySize
	GeneralLocation    string
	Notes              string
	Images             []string
}

// Record builds the submission payload from the session fields.
func (s Session) Record() Record {
	return Record{
		SourceAuthorID:     s.Source.ID,
		ConfirmationPhrase: s.ConfirmationPhrase,
		PropertyType:       s.PropertyType,
		PropertySize:       s.PropertySize,
		GeneralLocation:    s.GeneralLocation,
		Notes:              s.Notes,
		Images:             slices.Clone(s.Images),
	}
}
