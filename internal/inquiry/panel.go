package inquiry

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Accent tints a panel; adapters render it as a colour or an emoji.
type Accent int

const (
	AccentNeutral Accent = iota
	AccentPositive
	AccentWarning
	AccentError
)

// Field is a labelled value. A non-zero Mention renders the value as a user link.
type Field struct {
	Name    string
	Value   string
	Inline  bool
	Mention int64
}

// Option is a selectable control carrying the action it triggers.
type Option struct {
	Label       string
	Description string
	Action      Action
}

// FormField describes one text input of a form.
type FormField struct {
	ID          string
	Label       string
	Placeholder string
	Required    bool
	MaxLen      int
	Multiline   bool
}

// FormRequest asks the adapter to collect text input for a session.
type FormRequest struct {
	Key    string
	Title  string
	Fields []FormField
}

// Panel is a platform-neutral rendering of one wizard step.
type Panel struct {
	Title       string
	Accent      Accent
	Description string
	// Detail is raw text rendered verbatim, typically in a code block.
	Detail    string
	Fields    []Field
	Footer    string
	Options   []Option
	Controls  []Option
	Form      *FormRequest
	Timestamp time.Time
}

// Form field identifiers and limits.
const (
	FieldLocation  = "generalLocation"
	FieldNotes     = "notes"
	MaxLocationLen = 100
	MaxNotesLen    = 1000
)

// FormValues is the submitted text form.
type FormValues struct {
	GeneralLocation string
	Notes           string
}

func cancelControl(key string) Option {
	return Option{Label: "❌ Cancel", Action: Action{Step: StepCancel, Key: key}}
}

func retryControl(key string) Option {
	return Option{Label: "🔁 Retry", Action: Action{Step: StepRetry, Key: key}}
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func imageCount(n int, unit string) string {
	return fmt.Sprintf("%d %s", n, unit)
}

// wrongContextError carries the user-facing reason for a WrongContext rejection.
type wrongContextError struct{ reason string }

func (e *wrongContextError) Error() string { return ErrWrongContext.Error() + ": " + e.reason }
func (e *wrongContextError) Unwrap() error { return ErrWrongContext }

// ErrorPanel converts a taxonomy error into the rejection shown to the user.
func ErrorPanel(err error) Panel {
	p := Panel{Title: "❌ Something went wrong", Accent: AccentError}
	var wc *wrongContextError
	switch {
	case errors.Is(err, ErrUnauthorized):
		p.Description = "You need the Real Estate staff role to use this command."
	case errors.As(err, &wc):
		p.Description = wc.reason
	case errors.Is(err, ErrWrongContext):
		p.Description = "Please run this command inside a forum post thread, or provide a link to one."
	case errors.Is(err, ErrEmptySource):
		p.Description = "Could not find the original post. The thread may be empty."
	case errors.Is(err, ErrSessionExpired):
		p.Description = "Session expired. Please start over."
	case errors.Is(err, ErrStepOutOfOrder):
		p.Description = "This step was already completed or is not available yet."
	case errors.Is(err, ErrInvalidSelection):
		p.Description = "That option is not available."
	case errors.Is(err, ErrInvalidForm):
		p.Description = fmt.Sprintf("General location is required and must be at most %d characters; notes at most %d.", MaxLocationLen, MaxNotesLen)
	default:
		p.Description = "The request could not be processed. Please try again."
	}
	return p
}
