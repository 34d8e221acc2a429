package forumindex

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestSavePostWritesAttachmentsInTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)
	posted := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO forum_posts")).
		WithArgs(int64(-100), 9, 12, int64(1001), "U1", "hello", posted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO forum_attachments")).
		WithArgs(int64(-100), 12, "fid", "fuid", "image/jpeg", KindPhoto).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.SavePost(context.Background(), Post{
		ChatID: -100, ThreadID: 9, MessageID: 12, AuthorID: 1001, AuthorName: "U1", Text: "hello", PostedAt: posted,
		Attachments: []Attachment{{FileID: "fid", FileUniqueID: "fuid", MIMEType: "image/jpeg", Kind: KindPhoto}},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePostRollsBackOnFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO forum_posts")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.SavePost(context.Background(), Post{ChatID: -100, ThreadID: 9, MessageID: 1})
	require.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestThreadPostsJoinsAttachments(t *testing.T) {
	repo, mock := newMockRepo(t)
	posted := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM forum_posts")).
		WithArgs(int64(-100), 9, 10).
		WillReturnRows(sqlmock.NewRows([]string{"chat_id", "thread_id", "message_id", "author_id", "author_name", "text", "posted_at"}).
			AddRow(int64(-100), 9, 10, int64(1001), "U1", "first", posted).
			AddRow(int64(-100), 9, 11, int64(1001), "U1", "second", posted))
	mock.ExpectQuery(regexp.QuoteMeta("FROM forum_attachments")).
		WillReturnRows(sqlmock.NewRows([]string{"chat_id", "message_id", "file_id", "file_unique_id", "mime_type", "kind"}).
			AddRow(int64(-100), 11, "f1", "u1", "image/png", KindDocument))

	posts, err := repo.ThreadPosts(context.Background(), -100, 9, 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Empty(t, posts[0].Attachments)
	require.Len(t, posts[1].Attachments, 1)
	assert.Equal(t, "f1", posts[1].Attachments[0].FileID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicNameMissingIsEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM forum_topics")).
		WithArgs(int64(-100), 9).
		WillReturnError(sql.ErrNoRows)

	name, err := repo.TopicName(context.Background(), -100, 9)
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestAttachmentByFileIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM forum_attachments")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"chat_id", "message_id", "file_id", "file_unique_id", "mime_type", "kind"}))

	_, err := repo.AttachmentByFileID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
