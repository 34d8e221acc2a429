package bot

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/inquirybot/core/telegram/callbacks"
	"github.com/m3rciful/inquirybot/core/telegram/format"
	"github.com/m3rciful/inquirybot/core/telegram/keyboard"
	"github.com/m3rciful/inquirybot/internal/inquiry"
)

// Callback uniques carried by panel buttons.
const (
	uniqueType   = "inq_type"
	uniqueSize   = "inq_size"
	uniqueSkip   = "inq_skip"
	uniqueRetry  = "inq_retry"
	uniqueCancel = "inq_cancel"
)

var stepUniques = map[inquiry.Step]string{
	inquiry.StepType:   uniqueType,
	inquiry.StepSize:   uniqueSize,
	inquiry.StepRetry:  uniqueRetry,
	inquiry.StepCancel: uniqueCancel,
}

var uniqueSteps = map[string]inquiry.Step{
	uniqueType:   inquiry.StepType,
	uniqueSize:   inquiry.StepSize,
	uniqueRetry:  inquiry.StepRetry,
	uniqueCancel: inquiry.StepCancel,
}

const (
	maxDetailRunes = 1500
	compactPerRow  = 3
)

// ParseAction converts a button unique and payload into a typed action.
func ParseAction(unique, payload string) (inquiry.Action, error) {
	step, ok := uniqueSteps[unique]
	if !ok {
		return inquiry.Action{}, fmt.Errorf("bot: unknown action %q", unique)
	}
	key, value, err := callbacks.DecodePayload(payload)
	if err != nil {
		return inquiry.Action{}, err
	}
	return inquiry.Action{Step: step, Key: key, Value: value}, nil
}

func accentMark(a inquiry.Accent) string {
	switch a {
	case inquiry.AccentPositive:
		return "🟢 "
	case inquiry.AccentWarning:
		return "🟠 "
	case inquiry.AccentError:
		return "🔴 "
	}
	return ""
}

// Mention renders a user link; the text falls back to the numeric id.
func Mention(name string, id int64) string {
	if strings.TrimSpace(name) == "" {
		name = strconv.FormatInt(id, 10)
	}
	name = strings.NewReplacer("[", "(", "]", ")").Replace(name)
	return fmt.Sprintf("[%s](tg://user?id=%d)", format.Escape(name), id)
}

func fieldValue(f inquiry.Field) string {
	if f.Mention != 0 {
		return Mention(f.Value, f.Mention)
	}
	return format.Escape(f.Value)
}

// RenderPanel turns a panel into Markdown text and its inline keyboard.
// Panels without controls get a nil markup, which clears buttons on edit.
func RenderPanel(p inquiry.Panel) (string, *tele.ReplyMarkup) {
	var b strings.Builder
	b.WriteString(accentMark(p.Accent))
	b.WriteString("*" + format.Escape(p.Title) + "*")
	if p.Description != "" {
		b.WriteString("\n\n" + format.Escape(p.Description))
	}
	if p.Detail != "" {
		detail := []rune(strings.ReplaceAll(p.Detail, "```", "'''"))
		if len(detail) > maxDetailRunes {
			detail = append(detail[:maxDetailRunes], '…')
		}
		b.WriteString("\n```\n" + string(detail) + "\n```")
	}
	if len(p.Fields) > 0 {
		b.WriteString("\n")
		for _, f := range p.Fields {
			b.WriteString("\n*" + format.Escape(f.Name) + ":* " + fieldValue(f))
		}
	}
	if p.Footer != "" {
		b.WriteString("\n\n_" + format.Escape(p.Footer) + "_")
	}
	if !p.Timestamp.IsZero() {
		b.WriteString("\n" + format.Escape(p.Timestamp.UTC().Format("2006-01-02 15:04 MST")))
	}
	return b.String(), renderKeyboard(p)
}

func button(o inquiry.Option) keyboard.InlineBtn {
	label := o.Label
	if o.Description != "" {
		label += " · " + o.Description
	}
	return keyboard.InlineBtn{
		Text:   label,
		Unique: stepUniques[o.Action.Step],
		Data:   callbacks.EncodePayload(o.Action.Key, o.Action.Value),
	}
}

func renderKeyboard(p inquiry.Panel) *tele.ReplyMarkup {
	if len(p.Options) == 0 && len(p.Controls) == 0 {
		return nil
	}
	perRow := compactPerRow
	options := make([]keyboard.InlineBtn, 0, len(p.Options))
	for _, o := range p.Options {
		if o.Description != "" {
			perRow = 1
		}
		options = append(options, button(o))
	}
	controls := make([]keyboard.InlineBtn, 0, len(p.Controls))
	for _, o := range p.Controls {
		controls = append(controls, button(o))
	}
	rows := append(keyboard.InlineButtonsNPerRow(options, perRow), controls)
	return keyboard.InlineButtonsRows(rows...)
}
