package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/inquirybot/core/logger"
	"github.com/m3rciful/inquirybot/core/telegram/sender"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// Poster is the subset of *tele.Bot used to deliver messages outside an update context.
type Poster interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}
	err := disp.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

func mdOptions(markup []*tele.ReplyMarkup) *tele.SendOptions {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown, DisableWebPagePreview: true}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return opts
}

// SendText sends raw text (no parse mode) to the current chat.
func SendText(c tele.Context, text string) error {
	return enqueue(BuildContext(c), "send.text", "sendMessage", func() error {
		return c.Send(text)
	})
}

// ReplyMD replies to the current message with Markdown and optional markup.
func ReplyMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := mdOptions(markup)
	return enqueue(BuildContext(c), "reply.md", "sendMessage", func() error {
		return c.Reply(text, opts)
	})
}

// EditMD edits the message carrying the current callback.
func EditMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return c.Edit(text, mdOptions(markup))
}

// PostMD delivers a Markdown message to an arbitrary chat through the dispatcher.
func PostMD(ctx context.Context, p Poster, to tele.Recipient, text string, markup ...*tele.ReplyMarkup) error {
	opts := mdOptions(markup)
	return enqueue(ctx, "post.md", "sendMessage", func() error {
		_, err := p.Send(to, text, opts)
		return err
	})
}
