package bot

import (
	"context"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/inquirybot/core/logger"
	tghelpers "github.com/m3rciful/inquirybot/core/telegram/helpers"
	"github.com/m3rciful/inquirybot/internal/forumindex"
)

// PostRecorder persists observed forum traffic.
type PostRecorder interface {
	SaveTopic(ctx context.Context, t forumindex.Topic) error
	SavePost(ctx context.Context, p forumindex.Post) error
}

// Indexer records topics and posts of the source forum as they arrive.
type Indexer struct {
	repo   PostRecorder
	chatID int64
}

// NewIndexer watches forumChatID only.
func NewIndexer(repo PostRecorder, forumChatID int64) *Indexer {
	return &Indexer{repo: repo, chatID: forumChatID}
}

// Observe is installed ahead of message routing for every plain message.
func (ix *Indexer) Observe(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Chat == nil || msg.Chat.ID != ix.chatID {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	if msg.TopicCreated != nil {
		err := ix.repo.SaveTopic(ctx, forumindex.Topic{
			ChatID:    msg.Chat.ID,
			ThreadID:  msg.ThreadID,
			Name:      msg.TopicCreated.Name,
			CreatedAt: msg.Time(),
		})
		if err == nil {
			logger.LogEvent(ctx, logger.Index, slog.LevelDebug, "topic.saved", slog.Int("thread_id", msg.ThreadID))
		}
		return err
	}

	post, ok := PostFromMessage(msg)
	if !ok {
		return nil
	}
	if err := ix.repo.SavePost(ctx, post); err != nil {
		return err
	}
	logger.LogEvent(ctx, logger.Index, slog.LevelDebug, "post.saved",
		slog.Int("thread_id", post.ThreadID),
		slog.Int("message_id", post.MessageID),
		slog.Int64("author_id", post.AuthorID),
		slog.Int("attachments", len(post.Attachments)),
	)
	return nil
}

// PostFromMessage converts a topic message into an index row. Commands, bot
// messages and messages outside a topic are not indexed.
func PostFromMessage(msg *tele.Message) (forumindex.Post, bool) {
	if msg == nil || msg.Chat == nil || msg.Sender == nil || msg.Sender.IsBot {
		return forumindex.Post{}, false
	}
	if !msg.TopicMessage || msg.ThreadID == 0 || strings.HasPrefix(msg.Text, "/") {
		return forumindex.Post{}, false
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	p := forumindex.Post{
		ChatID:     msg.Chat.ID,
		ThreadID:   msg.ThreadID,
		MessageID:  msg.ID,
		AuthorID:   msg.Sender.ID,
		AuthorName: displayName(msg.Sender),
		Text:       text,
		PostedAt:   msg.Time(),
	}
	if msg.Photo != nil {
		p.Attachments = append(p.Attachments, forumindex.Attachment{
			ChatID:       msg.Chat.ID,
			MessageID:    msg.ID,
			FileID:       msg.Photo.FileID,
			FileUniqueID: msg.Photo.UniqueID,
			MIMEType:     "image/jpeg",
			Kind:         forumindex.KindPhoto,
		})
	}
	if msg.Document != nil {
		p.Attachments = append(p.Attachments, forumindex.Attachment{
			ChatID:       msg.Chat.ID,
			MessageID:    msg.ID,
			FileID:       msg.Document.FileID,
			FileUniqueID: msg.Document.UniqueID,
			MIMEType:     msg.Document.MIME,
			Kind:         forumindex.KindDocument,
		})
	}
	return p, true
}

func displayName(u *tele.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.Username != "" {
		name = "@" + u.Username
	}
	return name
}
