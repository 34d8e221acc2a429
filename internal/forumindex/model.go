// Package forumindex records the forum traffic the bot observes so topics can
// be read back later, since the Bot API offers no history access.
package forumindex

import (
	"strings"
	"time"
)

// Attachment kinds.
const (
	KindPhoto    = "photo"
	KindDocument = "document"
)

// Topic is a forum topic seen through its creation event.
type Topic struct {
	ChatID    int64     `db:"chat_id"`
	ThreadID  int       `db:"thread_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// Post is one message inside a topic.
type Post struct {
	ChatID     int64     `db:"chat_id"`
	ThreadID   int       `db:"thread_id"`
	MessageID  int       `db:"message_id"`
	AuthorID   int64     `db:"author_id"`
	AuthorName string    `db:"author_name"`
	Text       string    `db:"text"`
	PostedAt   time.Time `db:"posted_at"`

	Attachments []Attachment `db:"-"`
}

// Attachment is a file carried by a post.
type Attachment struct {
	ChatID       int64  `db:"chat_id"`
	MessageID    int    `db:"message_id"`
	FileID       string `db:"file_id"`
	FileUniqueID string `db:"file_unique_id"`
	MIMEType     string `db:"mime_type"`
	Kind         string `db:"kind"`
}

// IsImage reports whether the attachment has an image content type.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(a.MIMEType), "image/")
}
