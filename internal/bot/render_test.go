package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/inquirybot/core/telegram/callbacks"
	"github.com/m3rciful/inquirybot/internal/inquiry"
)

func TestParseAction(t *testing.T) {
	a, err := ParseAction(uniqueSize, callbacks.EncodePayload("k1-abc", "50x50"))
	require.NoError(t, err)
	assert.Equal(t, inquiry.Action{Step: inquiry.StepSize, Key: "k1-abc", Value: "50x50"}, a)

	a, err = ParseAction(uniqueCancel, "k1-abc")
	require.NoError(t, err)
	assert.Equal(t, inquiry.StepCancel, a.Step)
	assert.Empty(t, a.Value)

	_, err = ParseAction("inq_unknown", "k1-abc:x")
	assert.Error(t, err)
	_, err = ParseAction(uniqueType, ":Native")
	assert.ErrorIs(t, err, callbacks.ErrMalformedPayload)
}

func TestRenderPanelButtonsCarryActions(t *testing.T) {
	p := inquiry.Panel{
		Title:  "Select Property Type",
		Accent: inquiry.AccentPositive,
		Options: []inquiry.Option{
			{Label: "Native", Description: "Standard plot", Action: inquiry.Action{Step: inquiry.StepType, Key: "k", Value: "Native"}},
			{Label: "YMap", Description: "Custom map", Action: inquiry.Action{Step: inquiry.StepType, Key: "k", Value: "YMap"}},
		},
		Controls: []inquiry.Option{{Label: "❌ Cancel", Action: inquiry.Action{Step: inquiry.StepCancel, Key: "k"}}},
	}
	text, markup := RenderPanel(p)
	assert.Contains(t, text, "🟢 *Select Property Type*")
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 3, "described options get a row each plus the control row")

	first := markup.InlineKeyboard[0][0]
	assert.Equal(t, uniqueType, first.Unique)
	assert.Equal(t, "k:Native", first.Data)
	assert.Contains(t, first.Text, "Standard plot")

	cancel := markup.InlineKeyboard[2][0]
	a, err := ParseAction(cancel.Unique, cancel.Data)
	require.NoError(t, err)
	assert.Equal(t, inquiry.Action{Step: inquiry.StepCancel, Key: "k"}, a)
}

func TestRenderPanelCompactRows(t *testing.T) {
	var opts []inquiry.Option
	for _, s := range inquiry.PropertySizes() {
		opts = append(opts, inquiry.Option{Label: string(s), Action: inquiry.Action{Step: inquiry.StepSize, Key: "k", Value: string(s)}})
	}
	_, markup := RenderPanel(inquiry.Panel{Title: "Size", Options: opts})
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Len(t, markup.InlineKeyboard[0], 3)
}

func TestRenderPanelWithoutButtons(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	text, markup := RenderPanel(inquiry.Panel{
		Title:       "Inquiry Imported",
		Description: "Player_1 is ready",
		Detail:      "raw ```text```",
		Fields:      []inquiry.Field{{Name: "Player", Value: "U1", Mention: 1001}},
		Footer:      "done",
		Timestamp:   ts,
	})
	assert.Nil(t, markup)
	assert.Contains(t, text, `Player\_1`)
	assert.Contains(t, text, "raw '''text'''")
	assert.Contains(t, text, "[U1](tg://user?id=1001)")
	assert.Contains(t, text, "_done_")
	assert.Contains(t, text, "2026-03-01 12:30 UTC")
}

func TestRenderPanelTruncatesDetail(t *testing.T) {
	long := make([]rune, maxDetailRunes+50)
	for i := range long {
		long[i] = 'a'
	}
	text, _ := RenderPanel(inquiry.Panel{Title: "t", Detail: string(long)})
	assert.Contains(t, text, "a…\n```")
}

func TestMentionFallsBackToID(t *testing.T) {
	assert.Equal(t, "[42](tg://user?id=42)", Mention("  ", 42))
	assert.Equal(t, "[a(b)](tg://user?id=1)", Mention("a[b]", 1))
}
