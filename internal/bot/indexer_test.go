package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/inquirybot/internal/forumindex"
)

type fakeRecorder struct {
	topics []forumindex.Topic
	posts  []forumindex.Post
	err    error
}

func (f *fakeRecorder) SaveTopic(_ context.Context, t forumindex.Topic) error {
	f.topics = append(f.topics, t)
	return f.err
}

func (f *fakeRecorder) SavePost(_ context.Context, p forumindex.Post) error {
	f.posts = append(f.posts, p)
	return f.err
}

const forumID = int64(-1001234567890)

func topicMessage(id int, from *tele.User) *tele.Message {
	return &tele.Message{
		ID:           id,
		Chat:         &tele.Chat{ID: forumID, Type: tele.ChatSuperGroup},
		Sender:       from,
		TopicMessage: true,
		ThreadID:     77,
		Unixtime:     1_770_000_000,
	}
}

func TestPostFromMessagePhoto(t *testing.T) {
	msg := topicMessage(80, &tele.User{ID: 1001, FirstName: "Una", LastName: "Vale"})
	msg.Caption = "my plot"
	msg.Photo = &tele.Photo{File: tele.File{FileID: "ph-1", UniqueID: "u-1"}}

	p, ok := PostFromMessage(msg)
	require.True(t, ok)
	assert.Equal(t, "Una Vale", p.AuthorName)
	assert.Equal(t, "my plot", p.Text)
	assert.Equal(t, 77, p.ThreadID)
	assert.Equal(t, int64(1_770_000_000), p.PostedAt.Unix())
	require.Len(t, p.Attachments, 1)
	assert.Equal(t, forumindex.Attachment{
		ChatID: forumID, MessageID: 80, FileID: "ph-1", FileUniqueID: "u-1",
		MIMEType: "image/jpeg", Kind: forumindex.KindPhoto,
	}, p.Attachments[0])
}

func TestPostFromMessageDocument(t *testing.T) {
	msg := topicMessage(81, &tele.User{ID: 1001, Username: "una"})
	msg.Document = &tele.Document{File: tele.File{FileID: "doc-1", UniqueID: "u-2"}, MIME: "image/png"}

	p, ok := PostFromMessage(msg)
	require.True(t, ok)
	assert.Equal(t, "@una", p.AuthorName)
	require.Len(t, p.Attachments, 1)
	assert.Equal(t, "image/png", p.Attachments[0].MIMEType)
	assert.Equal(t, forumindex.KindDocument, p.Attachments[0].Kind)
}

func TestPostFromMessageSkips(t *testing.T) {
	bot := topicMessage(1, &tele.User{ID: 9, IsBot: true})
	command := topicMessage(2, &tele.User{ID: 1})
	command.Text = "/import_inquiry"
	general := topicMessage(3, &tele.User{ID: 1})
	general.TopicMessage, general.ThreadID = false, 0

	for _, msg := range []*tele.Message{nil, bot, command, general} {
		_, ok := PostFromMessage(msg)
		assert.False(t, ok)
	}
}

type messageContext struct {
	tele.Context
	msg   *tele.Message
	store map[string]any
}

func newMessageContext(msg *tele.Message) *messageContext {
	return &messageContext{msg: msg, store: map[string]any{}}
}

func (m *messageContext) Message() *tele.Message { return m.msg }
func (m *messageContext) Chat() *tele.Chat       { return m.msg.Chat }
func (m *messageContext) Sender() *tele.User     { return m.msg.Sender }
func (m *messageContext) Update() tele.Update    { return tele.Update{ID: 1, Message: m.msg} }
func (m *messageContext) Get(k string) any       { return m.store[k] }
func (m *messageContext) Set(k string, v any)    { m.store[k] = v }

func TestIndexerObserve(t *testing.T) {
	rec := &fakeRecorder{}
	ix := NewIndexer(rec, forumID)

	created := topicMessage(77, &tele.User{ID: 1001})
	created.TopicCreated = &tele.Topic{Name: "Plot near Valentine"}
	require.NoError(t, ix.Observe(newMessageContext(created)))
	require.Len(t, rec.topics, 1)
	assert.Equal(t, "Plot near Valentine", rec.topics[0].Name)
	assert.Equal(t, 77, rec.topics[0].ThreadID)

	post := topicMessage(80, &tele.User{ID: 1001, FirstName: "Una"})
	post.Text = "hello"
	require.NoError(t, ix.Observe(newMessageContext(post)))
	require.Len(t, rec.posts, 1)

	elsewhere := topicMessage(81, &tele.User{ID: 1001})
	elsewhere.Chat = &tele.Chat{ID: -100999}
	require.NoError(t, ix.Observe(newMessageContext(elsewhere)))
	assert.Len(t, rec.posts, 1, "other chats are ignored")
}

func TestIndexerObserveError(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("db down")}
	post := topicMessage(80, &tele.User{ID: 1001})
	post.Text = "hello"
	assert.Error(t, NewIndexer(rec, forumID).Observe(newMessageContext(post)))
}
