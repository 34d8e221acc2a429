package inquiry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m3rciful/inquirybot/core/logger"
)

// DefaultPreviewLength is the number of characters of post text shown in step one.
const DefaultPreviewLength = 500

const createAttempts = 3

// Config holds the wizard's fixed settings.
type Config struct {
	// SourceChatID is the forum chat inquiries must come from.
	SourceChatID int64
	// RoleID is the staff chat whose members may run the wizard.
	RoleID int64
	// StaffChannelID receives success notifications; zero disables them.
	StaffChannelID     int64
	ConfirmationPhrase string
	PreviewLength      int
}

// Deps bundles the wizard's collaborators.
type Deps struct {
	Authorizer Authorizer
	Extractor  Extractor
	Submitter  Submitter
	Notifier   Notifier
}

// Trigger is a request to start a wizard for a topic.
type Trigger struct {
	InitiatorID int64
	Thread      ThreadRef
	// LinkInvalid marks a post link that could not be resolved.
	LinkInvalid bool
}

// Ack delivers an interim panel before the outbound submission is awaited.
type Ack func(ctx context.Context, p Panel) error

// Wizard advances sessions through the import steps.
type Wizard struct {
	cfg   Config
	store *Store
	keys  *KeyGenerator
	deps  Deps
	now   func() time.Time
}

// NewWizard wires a wizard over store. Zero config values take defaults.
func NewWizard(cfg Config, store *Store, deps Deps) *Wizard {
	if cfg.ConfirmationPhrase == "" {
		cfg.ConfirmationPhrase = DefaultConfirmationPhrase
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = DefaultPreviewLength
	}
	return &Wizard{cfg: cfg, store: store, keys: NewKeyGenerator(), deps: deps, now: time.Now}
}

// Sessions returns the number of in-flight sessions.
func (w *Wizard) Sessions() int { return w.store.Len() }

func (w *Wizard) fail(ctx context.Context, step Step, key string, err error) (Panel, error) {
	se := stepErr(step, key, err)
	logger.LogEvent(ctx, logger.Wizard, slog.LevelInfo, "step.rejected",
		slog.String("session_key", key),
		slog.String("step", string(step)),
		slog.String("outcome", "reject"),
		slog.String("err_code", se.(*StepError).Code()),
	)
	return ErrorPanel(err), se
}

func (w *Wizard) logStep(ctx context.Context, sess Session, step Step, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("session_key", sess.Key),
		slog.String("step", string(step)),
		slog.String("state", sess.State.String()),
	}
	logger.LogEvent(ctx, logger.Wizard, slog.LevelInfo, "step.done", append(base, attrs...)...)
}

// Start authorizes the initiator, validates the topic, extracts the post and
// creates a session. No session exists unless the returned error is nil.
func (w *Wizard) Start(ctx context.Context, t Trigger) (Panel, error) {
	ok, err := w.deps.Authorizer.HasCapability(ctx, t.InitiatorID, w.cfg.RoleID)
	if err != nil {
		logger.LogEvent(ctx, logger.Wizard, slog.LevelWarn, "authz.fail",
			slog.Int64("user_id", t.InitiatorID),
			slog.String("err", err.Error()),
		)
	}
	if err != nil || !ok {
		return w.fail(ctx, StepStart, "", ErrUnauthorized)
	}

	switch {
	case t.LinkInvalid:
		return w.fail(ctx, StepStart, "", &wrongContextError{"Could not find that forum post. Make sure the link is correct."})
	case t.Thread.ThreadID == 0:
		return w.fail(ctx, StepStart, "", ErrWrongContext)
	case t.Thread.ChatID != w.cfg.SourceChatID:
		return w.fail(ctx, StepStart, "", &wrongContextError{"This post is not in the Real Estate forum."})
	}

	ext, err := w.deps.Extractor.Extract(ctx, t.Thread)
	if err != nil {
		return w.fail(ctx, StepStart, "", fmt.Errorf("%w: %v", ErrEmptySource, err))
	}
	if ext.Author.ID == 0 {
		return w.fail(ctx, StepStart, "", ErrEmptySource)
	}

	thread := t.Thread
	if ext.ThreadName != "" {
		thread.Name = ext.ThreadName
	}
	sess := Session{
		Source:             ext.Author,
		RawContent:         ext.Text,
		Images:             ext.Images,
		Thread:             thread,
		InitiatorID:        t.InitiatorID,
		State:              StateCreated,
		ConfirmationMarker: HasMarker(ext.Text, w.cfg.ConfirmationPhrase),
		CreatedAt:          w.now(),
	}
	for attempt := 0; ; attempt++ {
		sess.Key = w.keys.Next(t.InitiatorID)
		err = w.store.Create(sess)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrDuplicateKey) || attempt+1 >= createAttempts {
			return w.fail(ctx, StepStart, sess.Key, err)
		}
	}

	w.logStep(ctx, sess, StepStart,
		slog.Int64("author_id", sess.Source.ID),
		slog.Int("thread_id", sess.Thread.ThreadID),
		slog.Int("images", len(sess.Images)),
		slog.Bool("marker", sess.ConfirmationMarker),
	)
	return w.introPanel(sess), nil
}

func (w *Wizard) introPanel(s Session) Panel {
	phrase := "⚠️ NOT FOUND"
	accent := AccentWarning
	if s.ConfirmationMarker {
		phrase = fmt.Sprintf("✅ Found %q", w.cfg.ConfirmationPhrase)
		accent = AccentPositive
	}
	preview := truncateRunes(s.RawContent, w.cfg.PreviewLength)
	if strings.TrimSpace(preview) == "" {
		preview = "(no text content)"
	}
	p := Panel{
		Title:  "📋 Import Real Estate Inquiry",
		Accent: accent,
		Fields: []Field{
			{Name: "Player", Value: s.Source.Name, Inline: true, Mention: s.Source.ID},
			{Name: "Thread", Value: s.Thread.Name, Inline: true},
			{Name: "Confirmation Phrase", Value: phrase, Inline: true},
			{Name: "Images Found", Value: imageCount(len(s.Images), "image(s)"), Inline: true},
			{Name: "Post Content Preview", Value: preview},
		},
		Footer:   "Step 1/3: Select property type below",
		Controls: []Option{cancelControl(s.Key)},
	}
	if !s.ConfirmationMarker {
		p.Fields = append(p.Fields, Field{
			Name:  "⚠️ Warning",
			Value: fmt.Sprintf("The confirmation phrase %q was not found in this post. Continue anyway?", w.cfg.ConfirmationPhrase),
		})
	}
	for _, t := range PropertyTypes() {
		p.Options = append(p.Options, Option{
			Label:       string(t),
			Description: t.Describe(),
			Action:      Action{Step: StepType, Key: s.Key, Value: string(t)},
		})
	}
	return p
}

// advance moves a session from one state to the next, applying set on the way.
func (w *Wizard) advance(key string, from, to State, set func(*Session)) (Session, error) {
	return w.store.Mutate(key, func(s *Session) error {
		if s.State != from {
			return ErrStepOutOfOrder
		}
		if set != nil {
			set(s)
		}
		s.State = to
		return nil
	})
}

// SelectType records the property type and offers the size menu.
func (w *Wizard) SelectType(ctx context.Context, key, value string) (Panel, error) {
	if _, ok := w.store.Get(key); !ok {
		return w.fail(ctx, StepType, key, ErrSessionExpired)
	}
	t, err := ParsePropertyType(value)
	if err != nil {
		return w.fail(ctx, StepType, key, err)
	}
	sess, err := w.advance(key, StateCreated, StateTypeSelected, func(s *Session) { s.PropertyType = t })
	if err != nil {
		return w.fail(ctx, StepType, key, err)
	}
	w.logStep(ctx, sess, StepType, slog.String("property_type", string(t)))

	p := Panel{
		Title:    "📋 Import Real Estate Inquiry",
		Accent:   AccentNeutral,
		Fields:   []Field{{Name: "Property Type", Value: string(t), Inline: true}},
		Footer:   "Step 2/3: Select property size",
		Controls: []Option{cancelControl(key)},
	}
	for _, size := range PropertySizes() {
		p.Options = append(p.Options, Option{
			Label:  string(size),
			Action: Action{Step: StepSize, Key: key, Value: string(size)},
		})
	}
	return p, nil
}

// SelectSize records the property size and requests the location form.
func (w *Wizard) SelectSize(ctx context.Context, key, value string) (Panel, error) {
	if _, ok := w.store.Get(key); !ok {
		return w.fail(ctx, StepSize, key, ErrSessionExpired)
	}
	size, err := ParsePropertySize(value)
	if err != nil {
		return w.fail(ctx, StepSize, key, err)
	}
	sess, err := w.advance(key, StateTypeSelected, StateSizeSelected, func(s *Session) { s.PropertySize = size })
	if err != nil {
		return w.fail(ctx, StepSize, key, err)
	}
	w.logStep(ctx, sess, StepSize, slog.String("property_size", string(size)))

	return Panel{
		Title:  "📝 Enter Location Details",
		Accent: AccentNeutral,
		Fields: []Field{
			{Name: "Property Type", Value: string(sess.PropertyType), Inline: true},
			{Name: "Property Size", Value: string(size), Inline: true},
		},
		Footer:   "Step 3/3: Fill in the location details",
		Controls: []Option{cancelControl(key)},
		Form: &FormRequest{
			Key:   key,
			Title: "Enter Location Details",
			Fields: []FormField{
				{ID: FieldLocation, Label: "General Location", Placeholder: "e.g., East of Valentine, near the river", Required: true, MaxLen: MaxLocationLen},
				{ID: FieldNotes, Label: "Staff Notes (optional)", Placeholder: "Any additional notes about this inquiry...", MaxLen: MaxNotesLen, Multiline: true},
			},
		},
	}, nil
}

// ValidateForm trims the values and enforces the field limits.
func ValidateForm(v FormValues) (FormValues, error) {
	v.GeneralLocation = strings.TrimSpace(v.GeneralLocation)
	v.Notes = strings.TrimSpace(v.Notes)
	if v.GeneralLocation == "" ||
		utf8.RuneCountInString(v.GeneralLocation) > MaxLocationLen ||
		utf8.RuneCountInString(v.Notes) > MaxNotesLen {
		return v, ErrInvalidForm
	}
	return v, nil
}

// SubmitForm stores the form values, acknowledges the interaction and submits
// the record. The session is deleted on success and kept as Failed otherwise.
func (w *Wizard) SubmitForm(ctx context.Context, key string, form FormValues, ack Ack) (Panel, error) {
	if _, ok := w.store.Get(key); !ok {
		return w.fail(ctx, StepForm, key, ErrSessionExpired)
	}
	form, err := ValidateForm(form)
	if err != nil {
		return w.fail(ctx, StepForm, key, err)
	}
	sess, err := w.advance(key, StateSizeSelected, StateAwaitingSubmission, func(s *Session) {
		s.GeneralLocation = form.GeneralLocation
		s.Notes = form.Notes
		s.ConfirmationPhrase = w.cfg.ConfirmationPhrase
	})
	if err != nil {
		return w.fail(ctx, StepForm, key, err)
	}
	w.logStep(ctx, sess, StepForm, slog.Int("location_len", utf8.RuneCountInString(form.GeneralLocation)))
	return w.submit(ctx, sess, StepForm, ack)
}

// Retry resubmits a session whose previous submission failed.
func (w *Wizard) Retry(ctx context.Context, key string, ack Ack) (Panel, error) {
	sess, err := w.advance(key, StateFailed, StateAwaitingSubmission, func(s *Session) { s.LastError = "" })
	if err != nil {
		return w.fail(ctx, StepRetry, key, err)
	}
	w.logStep(ctx, sess, StepRetry)
	return w.submit(ctx, sess, StepRetry, ack)
}

// Cancel abandons a session that is not waiting on a submission.
func (w *Wizard) Cancel(ctx context.Context, key string) (Panel, error) {
	sess, err := w.store.Mutate(key, func(s *Session) error {
		if s.State == StateAwaitingSubmission {
			return ErrStepOutOfOrder
		}
		return nil
	})
	if err != nil {
		return w.fail(ctx, StepCancel, key, err)
	}
	w.store.Delete(key)
	w.logStep(ctx, sess, StepCancel, slog.String("outcome", "cancelled"))
	return Panel{
		Title:       "🗑 Inquiry cancelled",
		Accent:      AccentNeutral,
		Description: "Nothing was sent. Run /import_inquiry again to start over.",
	}, nil
}

// Dispatch routes a parsed menu action to its step. Form submissions carry
// values outside an Action and use SubmitForm.
func (w *Wizard) Dispatch(ctx context.Context, a Action, ack Ack) (Panel, error) {
	switch a.Step {
	case StepType:
		return w.SelectType(ctx, a.Key, a.Value)
	case StepSize:
		return w.SelectSize(ctx, a.Key, a.Value)
	case StepRetry:
		return w.Retry(ctx, a.Key, ack)
	case StepCancel:
		return w.Cancel(ctx, a.Key)
	}
	return w.fail(ctx, a.Step, a.Key, ErrStepOutOfOrder)
}

// submit acknowledges, then runs the outbound call as its own task. The task
// finishes the session even if ctx ends first, so the session never stays
// stuck in AwaitingSubmission.
func (w *Wizard) submit(ctx context.Context, sess Session, step Step, ack Ack) (Panel, error) {
	if ack != nil {
		if err := ack(ctx, Panel{Title: "⏳ Submitting…", Accent: AccentNeutral}); err != nil {
			logger.LogEvent(ctx, logger.Wizard, slog.LevelWarn, "ack.fail",
				slog.String("session_key", sess.Key),
				slog.String("err", err.Error()),
			)
		}
	}

	type outcome struct {
		panel Panel
		err   error
	}
	done := make(chan outcome, 1)
	taskCtx := context.WithoutCancel(ctx)
	go func() {
		start := time.Now()
		res := w.deps.Submitter.Submit(taskCtx, sess.Record())
		logger.LogEvent(taskCtx, logger.Wizard, slog.LevelInfo, "submit.done",
			slog.String("session_key", sess.Key),
			slog.Bool("ok", res.OK),
			slog.Duration("duration", logger.Took(start)),
		)
		var o outcome
		if res.OK {
			o.panel = w.finalize(taskCtx, sess)
		} else {
			o.panel, o.err = w.markFailed(taskCtx, sess, step, res)
		}
		done <- o
	}()

	select {
	case o := <-done:
		return o.panel, o.err
	case <-ctx.Done():
		return Panel{
			Title:       "⏳ Still submitting",
			Accent:      AccentWarning,
			Description: "The endpoint is slow to answer. The result will be applied when it arrives.",
		}, stepErr(step, sess.Key, ctx.Err())
	}
}

func (w *Wizard) finalize(ctx context.Context, sess Session) Panel {
	sess.State = StateFinalized
	now := w.now()
	if w.cfg.StaffChannelID != 0 && w.deps.Notifier != nil {
		if err := w.deps.Notifier.Post(ctx, w.cfg.StaffChannelID, Summary{Session: sess, ImportedAt: now}); err != nil {
			logger.LogEvent(ctx, logger.Wizard, slog.LevelWarn, "notify.fail",
				slog.String("session_key", sess.Key),
				slog.String("err_code", "NOTIFICATION_FAILED"),
				slog.String("err", err.Error()),
			)
		}
	}
	w.store.Delete(sess.Key)
	w.logStep(ctx, sess, StepForm, slog.String("outcome", "finalized"))

	return Panel{
		Title:  "✅ Inquiry Imported Successfully",
		Accent: AccentPositive,
		Fields: []Field{
			{Name: "Player", Value: sess.Source.Name, Inline: true, Mention: sess.Source.ID},
			{Name: "Property Type", Value: string(sess.PropertyType), Inline: true},
			{Name: "Property Size", Value: string(sess.PropertySize), Inline: true},
			{Name: "Location", Value: sess.GeneralLocation, Inline: true},
			{Name: "Images", Value: imageCount(len(sess.Images), "uploaded"), Inline: true},
			{Name: "Imported By", Value: "staff", Inline: true, Mention: sess.InitiatorID},
		},
		Timestamp: now,
	}
}

func (w *Wizard) markFailed(ctx context.Context, sess Session, step Step, res SubmitResult) (Panel, error) {
	detail := res.Error
	if detail == "" {
		detail = res.Payload
	}
	if _, err := w.advance(sess.Key, StateAwaitingSubmission, StateFailed, func(s *Session) { s.LastError = detail }); err != nil {
		logger.LogEvent(ctx, logger.Wizard, slog.LevelWarn, "submit.orphaned",
			slog.String("session_key", sess.Key),
			slog.String("err", err.Error()),
		)
	}
	return Panel{
		Title:       "❌ Import Failed",
		Accent:      AccentError,
		Description: "There was an error sending data to the inquiry endpoint:",
		Detail:      detail,
		Fields: []Field{
			{Name: "What to do", Value: "Check the endpoint configuration and try again."},
		},
		Controls: []Option{retryControl(sess.Key), cancelControl(sess.Key)},
	}, stepErr(step, sess.Key, fmt.Errorf("%w: %s", ErrSubmissionFailed, detail))
}
