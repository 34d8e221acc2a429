package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeMembers struct {
	member *tele.ChatMember
	err    error
	chat   string
	user   string
}

func (f *fakeMembers) ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error) {
	f.chat, f.user = chat.Recipient(), user.Recipient()
	return f.member, f.err
}

func TestStaffAuthorizer(t *testing.T) {
	tests := []struct {
		name   string
		member tele.ChatMember
		want   bool
	}{
		{"creator", tele.ChatMember{Role: tele.Creator}, true},
		{"admin", tele.ChatMember{Role: tele.Administrator}, true},
		{"member", tele.ChatMember{Role: tele.Member}, true},
		{"restricted member", tele.ChatMember{Role: tele.Restricted, Member: true}, true},
		{"restricted outsider", tele.ChatMember{Role: tele.Restricted}, false},
		{"left", tele.ChatMember{Role: tele.Left}, false},
		{"kicked", tele.ChatMember{Role: tele.Kicked}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.member
			api := &fakeMembers{member: &m}
			ok, err := NewStaffAuthorizer(api).HasCapability(context.Background(), 2002, -100777)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, "-100777", api.chat)
			assert.Equal(t, "2002", api.user)
		})
	}
}

func TestStaffAuthorizerErrors(t *testing.T) {
	_, err := NewStaffAuthorizer(&fakeMembers{}).HasCapability(context.Background(), 1, 0)
	assert.Error(t, err)

	ok, err := NewStaffAuthorizer(&fakeMembers{err: errors.New("user not found")}).HasCapability(context.Background(), 1, -100)
	assert.Error(t, err)
	assert.False(t, ok)
}
