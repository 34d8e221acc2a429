package forumindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("forumindex: not found")

// Repository persists topics, posts and attachments in PostgreSQL.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps an open connection pool.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const (
	upsertTopicSQL = `INSERT INTO forum_topics (chat_id, thread_id, name, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (chat_id, thread_id) DO UPDATE SET name = EXCLUDED.name`

	insertPostSQL = `INSERT INTO forum_posts (chat_id, thread_id, message_id, author_id, author_name, text, posted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (chat_id, message_id) DO NOTHING`

	insertAttachmentSQL = `INSERT INTO forum_attachments (chat_id, message_id, file_id, file_unique_id, mime_type, kind)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (chat_id, message_id, file_unique_id) DO NOTHING`

	selectThreadPostsSQL = `SELECT chat_id, thread_id, message_id, author_id, author_name, text, posted_at
FROM (
	(SELECT chat_id, thread_id, message_id, author_id, author_name, text, posted_at
	FROM forum_posts
	WHERE chat_id = $1 AND thread_id = $2
	ORDER BY message_id ASC
	LIMIT 1)
	UNION
	(SELECT chat_id, thread_id, message_id, author_id, author_name, text, posted_at
	FROM forum_posts
	WHERE chat_id = $1 AND thread_id = $2
	ORDER BY message_id DESC
	LIMIT $3)
) AS window_posts
ORDER BY message_id ASC`

	selectAttachmentsSQL = `SELECT chat_id, message_id, file_id, file_unique_id, mime_type, kind
FROM forum_attachments
WHERE chat_id = $1 AND message_id = ANY($2)
ORDER BY message_id ASC, id ASC`

	selectTopicNameSQL = `SELECT name FROM forum_topics WHERE chat_id = $1 AND thread_id = $2`

	selectAttachmentByFileSQL = `SELECT chat_id, message_id, file_id, file_unique_id, mime_type, kind
FROM forum_attachments
WHERE file_id = $1
LIMIT 1`
)

// SaveTopic records a topic, refreshing its name when it already exists.
func (r *Repository) SaveTopic(ctx context.Context, t Topic) error {
	if _, err := r.db.ExecContext(ctx, upsertTopicSQL, t.ChatID, t.ThreadID, t.Name, t.CreatedAt); err != nil {
		return fmt.Errorf("forumindex: save topic: %w", err)
	}
	return nil
}

// SavePost records a post and its attachments in one transaction. Re-delivered
// messages are ignored.
func (r *Repository) SavePost(ctx context.Context, p Post) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("forumindex: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, insertPostSQL,
		p.ChatID, p.ThreadID, p.MessageID, p.AuthorID, p.AuthorName, p.Text, p.PostedAt,
	); err != nil {
		return fmt.Errorf("forumindex: save post: %w", err)
	}
	for _, a := range p.Attachments {
		if _, err = tx.ExecContext(ctx, insertAttachmentSQL,
			p.ChatID, p.MessageID, a.FileID, a.FileUniqueID, a.MIMEType, a.Kind,
		); err != nil {
			return fmt.Errorf("forumindex: save attachment: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("forumindex: commit: %w", err)
	}
	return nil
}

// ThreadPosts returns the originating post of a topic followed by its newest
// recent posts, in thread order and with their attachments. The originating
// post appears once even when it is also among the newest.
func (r *Repository) ThreadPosts(ctx context.Context, chatID int64, threadID, recent int) ([]Post, error) {
	var posts []Post
	if err := r.db.SelectContext(ctx, &posts, selectThreadPostsSQL, chatID, threadID, recent); err != nil {
		return nil, fmt.Errorf("forumindex: select posts: %w", err)
	}
	if len(posts) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(posts))
	byID := make(map[int]int, len(posts))
	for i, p := range posts {
		ids[i] = int64(p.MessageID)
		byID[p.MessageID] = i
	}
	var atts []Attachment
	if err := r.db.SelectContext(ctx, &atts, selectAttachmentsSQL, chatID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("forumindex: select attachments: %w", err)
	}
	for _, a := range atts {
		if i, ok := byID[a.MessageID]; ok {
			posts[i].Attachments = append(posts[i].Attachments, a)
		}
	}
	return posts, nil
}

// TopicName returns the recorded topic name, or "" when the topic was never seen.
func (r *Repository) TopicName(ctx context.Context, chatID int64, threadID int) (string, error) {
	var name string
	err := r.db.GetContext(ctx, &name, selectTopicNameSQL, chatID, threadID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("forumindex: topic name: %w", err)
	}
	return name, nil
}

// AttachmentByFileID looks up an indexed attachment.
func (r *Repository) AttachmentByFileID(ctx context.Context, fileID string) (Attachment, error) {
	var a Attachment
	err := r.db.GetContext(ctx, &a, selectAttachmentByFileSQL, fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return Attachment{}, ErrNotFound
	}
	if err != nil {
		return Attachment{}, fmt.Errorf("forumindex: attachment: %w", err)
	}
	return a, nil
}

// Ping verifies the connection pool.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
