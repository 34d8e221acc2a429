package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m3rciful/inquirybot/internal/inquiry"
)

func TestParsePostLink(t *testing.T) {
	const forum = int64(-1001234567890)
	tests := []struct {
		name string
		raw  string
		want inquiry.ThreadRef
		ok   bool
	}{
		{"private link", "https://t.me/c/1234567890/77", inquiry.ThreadRef{ChatID: forum, ThreadID: 77}, true},
		{"private link with message", "t.me/c/1234567890/77/95", inquiry.ThreadRef{ChatID: forum, ThreadID: 77}, true},
		{"other private chat", "https://t.me/c/42/7", inquiry.ThreadRef{ChatID: -1000000000042, ThreadID: 7}, true},
		{"public forum link", "https://t.me/RealEstateRP/77/80", inquiry.ThreadRef{ChatID: forum, ThreadID: 77}, true},
		{"public other group", "https://t.me/elsewhere/77", inquiry.ThreadRef{ThreadID: 77}, true},
		{"foreign host", "https://example.com/c/1234567890/77", inquiry.ThreadRef{}, false},
		{"bad thread", "https://t.me/c/1234567890/abc", inquiry.ThreadRef{}, false},
		{"too short", "https://t.me/c/1234567890", inquiry.ThreadRef{}, false},
		{"empty", "  ", inquiry.ThreadRef{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePostLink(tt.raw, forum, "@realestaterp")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestThreadLink(t *testing.T) {
	assert.Equal(t, "https://t.me/c/1234567890/77", ThreadLink(-1001234567890, 77))
	assert.Empty(t, ThreadLink(12345, 77), "not a supergroup")
	assert.Empty(t, ThreadLink(-1001234567890, 0))
}
