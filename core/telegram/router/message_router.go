package router

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/inquirybot/core/logger"
	tg "github.com/m3rciful/inquirybot/core/telegram"
	tghelpers "github.com/m3rciful/inquirybot/core/telegram/helpers"
)

// FSM defines the minimal interface for an FSM manager.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// MessageOptions controls how plain messages are routed.
type MessageOptions struct {
	// Observe sees every plain message and service topic event before routing.
	// Its error is logged and does not stop the update.
	Observe tele.HandlerFunc
	// UnknownText handles private text that no conversation is waiting for.
	UnknownText tele.HandlerFunc
}

// MessageRoutes builds handlers for text, media and topic updates. Private
// messages from a user with an active conversation go to the FSM.
func MessageRoutes(fsmMgr FSM, opts MessageOptions) []tg.Route {
	observe := func(c tele.Context) {
		if opts.Observe == nil {
			return
		}
		if err := opts.Observe(c); err != nil {
			logger.Warn(tghelpers.BuildContext(c), "tg", "observe.fail",
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
	}

	handler := func(kind string) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			observe(c)

			chat := c.Chat()
			if chat == nil || chat.Type != tele.ChatPrivate || c.Sender() == nil {
				return nil
			}
			if fsmMgr != nil && fsmMgr.InProgress(c.Sender().ID) {
				return handleWithSummary(c, "fsm_"+kind, start, "", "", func() error {
					return fsmMgr.ManagerHandler(c)
				})
			}
			if kind == "text" && opts.UnknownText != nil {
				return handleWithSummary(c, "unknown_text", start, "", "", func() error {
					return opts.UnknownText(c)
				})
			}
			logHandlerSummary(c, "unknown_"+kind, start, "skip", "ok", nil)
			return nil
		}
	}

	topicHandler := func(c tele.Context) error {
		observe(c)
		return nil
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: handler("text")},
		{Endpoint: tele.OnPhoto, Handler: handler("photo")},
		{Endpoint: tele.OnDocument, Handler: handler("document")},
		{Endpoint: tele.OnTopicCreated, Handler: topicHandler},
	}
}
