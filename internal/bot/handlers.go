// Package bot binds the inquiry wizard to Telegram: commands, panel buttons,
// the two-prompt location form, forum indexing and staff notifications.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/inquirybot/core/logger"
	tg "github.com/m3rciful/inquirybot/core/telegram"
	"github.com/m3rciful/inquirybot/core/telegram/callbacks"
	"github.com/m3rciful/inquirybot/core/telegram/commands"
	"github.com/m3rciful/inquirybot/core/telegram/format"
	tghelpers "github.com/m3rciful/inquirybot/core/telegram/helpers"
	"github.com/m3rciful/inquirybot/core/telegram/keyboard"
	"github.com/m3rciful/inquirybot/core/telegram/state"
	"github.com/m3rciful/inquirybot/internal/inquiry"
)

const (
	stateLocation state.State = "inquiry.location"
	stateNotes    state.State = "inquiry.notes"

	tempKey      = "session_key"
	tempForm     = "form"
	tempLocation = "location"
)

const dmHint = "📬 I could not message you privately. Open a chat with me, press Start, then run the command again."

// Config carries the Telegram-side settings of the adapter.
type Config struct {
	ForumChatID   int64
	ForumUsername string
}

// API is the subset of *tele.Bot used to deliver panels outside the update's chat.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Handlers serves the inquiry commands and callbacks.
type Handlers struct {
	cfg    Config
	api    API
	wizard *inquiry.Wizard
	fsm    state.Manager
}

// NewHandlers wires the adapter.
func NewHandlers(cfg Config, api API, wizard *inquiry.Wizard, fsm state.Manager) *Handlers {
	return &Handlers{cfg: cfg, api: api, wizard: wizard, fsm: fsm}
}

// Register installs commands, callbacks and form states.
func (h *Handlers) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/import_inquiry", commands.Command{
		Handler:     h.ImportInquiry,
		Description: "Import a real estate inquiry from a forum post",
	})
	reg.RegisterCommand("/inquiry_sessions", commands.Command{
		Handler:     h.Sessions,
		Description: "Show in-flight inquiry sessions",
		AdminOnly:   true,
	})

	var errs []error
	for _, unique := range []string{uniqueType, uniqueSize, uniqueRetry, uniqueCancel} {
		errs = append(errs, reg.RegisterCallback(unique, h.Action))
	}
	errs = append(errs, reg.RegisterCallback(uniqueSkip, h.SkipNotes))

	h.fsm.RegisterHandler(stateLocation, h.onLocation)
	h.fsm.RegisterHandler(stateNotes, h.onNotes)
	return errors.Join(errs...)
}

func mdOpts(markup *tele.ReplyMarkup) *tele.SendOptions {
	return &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup, DisableWebPagePreview: true}
}

func panelKey(p inquiry.Panel) string {
	for _, set := range [][]inquiry.Option{p.Controls, p.Options} {
		for _, o := range set {
			if o.Action.Key != "" {
				return o.Action.Key
			}
		}
	}
	return ""
}

// ImportInquiry starts a wizard for the topic the command was sent in, or the
// topic named by the optional post link.
func (h *Handlers) ImportInquiry(c tele.Context) error {
	msg, sender := c.Message(), c.Sender()
	if msg == nil || sender == nil {
		return nil
	}

	trig := inquiry.Trigger{InitiatorID: sender.ID}
	if arg := strings.TrimSpace(msg.Payload); arg != "" {
		ref, ok := ParsePostLink(arg, h.cfg.ForumChatID, h.cfg.ForumUsername)
		trig.Thread, trig.LinkInvalid = ref, !ok
	} else if msg.TopicMessage && msg.ThreadID != 0 && c.Chat() != nil {
		trig.Thread = inquiry.ThreadRef{ChatID: c.Chat().ID, ThreadID: msg.ThreadID}
	}

	ctx := tghelpers.BuildContext(c)
	panel, err := h.wizard.Start(ctx, trig)
	key := panelKey(panel)
	if err == nil {
		ctx = tghelpers.WithSessionKey(c, key)
	}

	text, markup := RenderPanel(panel)
	if _, sendErr := h.api.Send(tele.ChatID(sender.ID), text, mdOpts(markup)); sendErr != nil {
		logger.Warn(ctx, "tg", "panel.dm.fail", slog.String("err", sendErr.Error()))
		if err == nil {
			_, _ = h.wizard.Cancel(ctx, key)
		}
		if replyErr := tghelpers.ReplyMD(c, dmHint); replyErr != nil {
			return errors.Join(err, replyErr)
		}
	}
	return err
}

// Sessions reports the number of in-flight wizard sessions.
func (h *Handlers) Sessions(c tele.Context) error {
	return tghelpers.ReplyMD(c, "🧾 In-flight inquiry sessions: "+format.Code(strconv.Itoa(h.wizard.Sessions())))
}

// Help answers private text that no form is waiting for.
func (h *Handlers) Help(c tele.Context) error {
	return tghelpers.SendText(c, "Run /import_inquiry inside a forum topic, or send /import_inquiry <post link>.")
}

func (h *Handlers) editPanel(c tele.Context, p inquiry.Panel) error {
	text, markup := RenderPanel(p)
	return tghelpers.EditMD(c, text, markup)
}

// Action handles type, size, retry and cancel buttons.
func (h *Handlers) Action(c tele.Context) error {
	a, err := ParseAction(callbacks.CallbackKey(c), callbacks.CallbackPayload(c))
	if err != nil {
		// Malformed keys are indistinguishable from expired ones.
		_ = h.editPanel(c, inquiry.ErrorPanel(inquiry.ErrSessionExpired))
		return &inquiry.StepError{Err: inquiry.ErrSessionExpired}
	}
	ctx := tghelpers.WithSessionKey(c, a.Key)
	if a.Step == inquiry.StepCancel {
		h.clearForm(c.Sender().ID, a.Key)
	}

	ack := func(_ context.Context, p inquiry.Panel) error { return h.editPanel(c, p) }
	panel, err := h.wizard.Dispatch(ctx, a, ack)
	if editErr := h.editPanel(c, panel); editErr != nil {
		logger.Warn(ctx, "tg", "panel.edit.fail", slog.String("err", editErr.Error()))
	}
	if err == nil && panel.Form != nil {
		return h.startForm(c, panel.Form)
	}
	return err
}

func (h *Handlers) clearForm(userID int64, key string) {
	if k, ok := h.fsm.GetTempString(userID, tempKey); ok && k == key {
		h.fsm.Clear(userID)
	}
}

func promptText(f inquiry.FormField) string {
	var b strings.Builder
	b.WriteString("✏️ *" + f.Label + "*")
	if f.Placeholder != "" {
		b.WriteString("\n" + f.Placeholder)
	}
	if f.MaxLen > 0 {
		fmt.Fprintf(&b, "\n(up to %d characters)", f.MaxLen)
	}
	return b.String()
}

func (h *Handlers) startForm(c tele.Context, form *inquiry.FormRequest) error {
	if len(form.Fields) < 2 {
		return fmt.Errorf("bot: form for %s has %d fields", form.Key, len(form.Fields))
	}
	userID := c.Sender().ID
	h.fsm.Clear(userID)
	h.fsm.SetTemp(userID, tempKey, form.Key)
	h.fsm.SetTemp(userID, tempForm, form)
	h.fsm.SetState(userID, stateLocation)

	loc := form.Fields[0]
	return c.Send(promptText(loc), mdOpts(keyboard.ForceReply(loc.Placeholder)))
}

func (h *Handlers) activeForm(userID int64) (string, *inquiry.FormRequest, bool) {
	key, ok := h.fsm.GetTempString(userID, tempKey)
	if !ok {
		return "", nil, false
	}
	v, _ := h.fsm.GetTemp(userID, tempForm)
	form, ok := v.(*inquiry.FormRequest)
	return key, form, ok && form != nil
}

func (h *Handlers) expired(c tele.Context) error {
	h.fsm.Clear(c.Sender().ID)
	text, _ := RenderPanel(inquiry.ErrorPanel(inquiry.ErrSessionExpired))
	return c.Send(text, mdOpts(nil))
}

func fieldValid(f inquiry.FormField, v string) bool {
	if f.Required && v == "" {
		return false
	}
	return f.MaxLen <= 0 || utf8.RuneCountInString(v) <= f.MaxLen
}

func (h *Handlers) onLocation(c tele.Context) error {
	userID := c.Sender().ID
	key, form, ok := h.activeForm(userID)
	if !ok {
		return h.expired(c)
	}
	field := form.Fields[0]
	value := strings.TrimSpace(c.Text())
	if !fieldValid(field, value) {
		return c.Send(fmt.Sprintf("Please send the %s as text, up to %d characters.", strings.ToLower(field.Label), field.MaxLen),
			keyboard.ForceReply(field.Placeholder))
	}

	h.fsm.SetTemp(userID, tempLocation, value)
	h.fsm.SetState(userID, stateNotes)
	notes := form.Fields[1]
	skip := keyboard.InlineButtonsRows([]keyboard.InlineBtn{{Text: "⏭ Skip", Unique: uniqueSkip, Data: callbacks.EncodePayload(key, "")}})
	return c.Send(promptText(notes), mdOpts(skip))
}

func (h *Handlers) onNotes(c tele.Context) error {
	userID := c.Sender().ID
	key, form, ok := h.activeForm(userID)
	if !ok {
		return h.expired(c)
	}
	field := form.Fields[1]
	value := strings.TrimSpace(c.Text())
	if c.Message() != nil && c.Message().Text == "" {
		return c.Send("Please send the notes as text, or press Skip.")
	}
	if !fieldValid(field, value) {
		return c.Send(fmt.Sprintf("Notes must be at most %d characters. Send a shorter text or press Skip.", field.MaxLen))
	}
	location, _ := h.fsm.GetTempString(userID, tempLocation)
	h.fsm.Clear(userID)
	return h.submit(c, key, inquiry.FormValues{GeneralLocation: location, Notes: value})
}

// SkipNotes submits the form with empty notes.
func (h *Handlers) SkipNotes(c tele.Context) error {
	key, _, err := callbacks.PayloadKeyValue(c)
	userID := c.Sender().ID
	active, _ := h.fsm.GetTempString(userID, tempKey)
	if err != nil || active != key || h.fsm.GetState(userID) != stateNotes {
		return h.editPanel(c, inquiry.ErrorPanel(inquiry.ErrSessionExpired))
	}
	location, _ := h.fsm.GetTempString(userID, tempLocation)
	h.fsm.Clear(userID)
	_ = tghelpers.EditMD(c, "⏭ Notes skipped.")
	return h.submit(c, key, inquiry.FormValues{GeneralLocation: location})
}

// submit posts an acknowledgement, then replaces it with the outcome panel.
func (h *Handlers) submit(c tele.Context, key string, vals inquiry.FormValues) error {
	ctx := tghelpers.WithSessionKey(c, key)
	chat := c.Chat()

	var ackMsg *tele.Message
	ack := func(_ context.Context, p inquiry.Panel) error {
		text, markup := RenderPanel(p)
		m, err := h.api.Send(chat, text, mdOpts(markup))
		ackMsg = m
		return err
	}
	panel, err := h.wizard.SubmitForm(ctx, key, vals, ack)

	text, markup := RenderPanel(panel)
	var showErr error
	if ackMsg != nil {
		_, showErr = h.api.Edit(ackMsg, text, mdOpts(markup))
	} else {
		_, showErr = h.api.Send(chat, text, mdOpts(markup))
	}
	if showErr != nil {
		logger.Warn(ctx, "tg", "panel.show.fail", slog.String("err", showErr.Error()))
	}
	return err
}
