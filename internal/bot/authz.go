package bot

import (
	"context"
	"errors"

	tele "gopkg.in/telebot.v4"
)

// MemberLookup is the subset of *tele.Bot used for membership checks.
type MemberLookup interface {
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
}

// StaffAuthorizer grants the staff capability to members of a staff chat.
type StaffAuthorizer struct {
	api MemberLookup
}

// NewStaffAuthorizer builds an authorizer over api.
func NewStaffAuthorizer(api MemberLookup) *StaffAuthorizer {
	return &StaffAuthorizer{api: api}
}

// HasCapability reports whether actorID currently belongs to the staff chat roleID.
func (a *StaffAuthorizer) HasCapability(_ context.Context, actorID, roleID int64) (bool, error) {
	if roleID == 0 {
		return false, errors.New("bot: staff chat is not configured")
	}
	m, err := a.api.ChatMemberOf(tele.ChatID(roleID), &tele.User{ID: actorID})
	if err != nil {
		return false, err
	}
	switch m.Role {
	case tele.Creator, tele.Administrator, tele.Member:
		return true, nil
	case tele.Restricted:
		return m.Member, nil
	}
	return false, nil
}
