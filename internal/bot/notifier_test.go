package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/inquirybot/internal/inquiry"
)

type recordingPoster struct {
	to   string
	text string
	opts []interface{}
}

func (p *recordingPoster) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	p.to = to.Recipient()
	p.text, _ = what.(string)
	p.opts = opts
	return &tele.Message{ID: 1}, nil
}

func sampleSummary() inquiry.Summary {
	return inquiry.Summary{
		Session: inquiry.Session{
			Source:          inquiry.Author{ID: 1001, Name: "U1"},
			Thread:          inquiry.ThreadRef{ChatID: -1001234567890, ThreadID: 77},
			InitiatorID:     2002,
			PropertyType:    inquiry.PropertyNative,
			PropertySize:    inquiry.Size50x50,
			GeneralLocation: "East_of Valentine",
		},
		ImportedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestRenderSummary(t *testing.T) {
	text := RenderSummary(sampleSummary())
	assert.Contains(t, text, "*Player:* [U1](tg://user?id=1001)")
	assert.Contains(t, text, "*Property Type:* Native")
	assert.Contains(t, text, "*Property Size:* 50x50")
	assert.Contains(t, text, `*Location:* East\_of Valentine`)
	assert.Contains(t, text, "tg://user?id=2002")
	assert.Contains(t, text, "[View Post](https://t.me/c/1234567890/77)")
	assert.Contains(t, text, "2026-03-01 09:00 UTC")
}

func TestChannelNotifierPost(t *testing.T) {
	p := &recordingPoster{}
	require.NoError(t, NewChannelNotifier(p).Post(context.Background(), -1005555555555, sampleSummary()))
	assert.Equal(t, "-1005555555555", p.to)
	assert.Contains(t, p.text, "New Real Estate Inquiry Imported")
	require.Len(t, p.opts, 1)
	opts, ok := p.opts[0].(*tele.SendOptions)
	require.True(t, ok)
	assert.Equal(t, tele.ModeMarkdown, opts.ParseMode)
}
