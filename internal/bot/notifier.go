package bot

import (
	"context"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/inquirybot/core/logger"
	"github.com/m3rciful/inquirybot/core/telegram/format"
	tghelpers "github.com/m3rciful/inquirybot/core/telegram/helpers"
	"github.com/m3rciful/inquirybot/internal/inquiry"
)

// ChannelNotifier mirrors successful imports into a staff channel through the
// outbound dispatcher.
type ChannelNotifier struct {
	poster tghelpers.Poster
}

// NewChannelNotifier builds a notifier sending through poster.
func NewChannelNotifier(poster tghelpers.Poster) *ChannelNotifier {
	return &ChannelNotifier{poster: poster}
}

// Post enqueues the summary. Delivery failures are logged by the dispatcher.
func (n *ChannelNotifier) Post(ctx context.Context, channelID int64, s inquiry.Summary) error {
	err := tghelpers.PostMD(ctx, n.poster, tele.ChatID(channelID), RenderSummary(s))
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
	}
	logger.LogEvent(ctx, logger.Notify, level, "summary.post",
		slog.String("session_key", s.Session.Key),
		slog.Int64("channel_id", channelID),
		slog.Bool("ok", err == nil),
	)
	return err
}

// RenderSummary formats the staff notification.
func RenderSummary(s inquiry.Summary) string {
	sess := s.Session
	lines := []string{
		"📥 *New Real Estate Inquiry Imported*",
		"",
		"*Player:* " + Mention(sess.Source.Name, sess.Source.ID),
		"*Property Type:* " + format.Escape(string(sess.PropertyType)),
		"*Property Size:* " + format.Escape(string(sess.PropertySize)),
		"*Location:* " + format.Escape(sess.GeneralLocation),
		"*Imported By:* " + Mention("staff", sess.InitiatorID),
	}
	if link := ThreadLink(sess.Thread.ChatID, sess.Thread.ThreadID); link != "" {
		lines = append(lines, "*Thread:* [View Post]("+link+")")
	}
	if !s.ImportedAt.IsZero() {
		lines = append(lines, format.Escape(s.ImportedAt.UTC().Format("2006-01-02 15:04 MST")))
	}
	return strings.Join(lines, "\n")
}
