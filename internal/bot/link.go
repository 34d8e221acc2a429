package bot

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/m3rciful/inquirybot/internal/inquiry"
)

const supergroupPrefix = 1_000_000_000_000

// ParsePostLink resolves a t.me link to a forum topic. Private links
// (t.me/c/<internal>/<thread>[/<msg>]) carry the chat id. Public links
// (t.me/<username>/<thread>[/<msg>]) resolve only for the forum's own
// username; any other username yields a topic outside the forum.
func ParsePostLink(raw string, forumChatID int64, forumUsername string) (inquiry.ThreadRef, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return inquiry.ThreadRef{}, false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return inquiry.ThreadRef{}, false
	}
	switch strings.ToLower(strings.TrimPrefix(u.Host, "www.")) {
	case "t.me", "telegram.me":
	default:
		return inquiry.ThreadRef{}, false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) >= 3 && parts[0] == "c" {
		internal, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || internal <= 0 {
			return inquiry.ThreadRef{}, false
		}
		thread, ok := parseThread(parts[2])
		if !ok {
			return inquiry.ThreadRef{}, false
		}
		return inquiry.ThreadRef{ChatID: -(supergroupPrefix + internal), ThreadID: thread}, true
	}
	if len(parts) >= 2 && parts[0] != "c" && parts[0] != "" {
		thread, ok := parseThread(parts[1])
		if !ok {
			return inquiry.ThreadRef{}, false
		}
		ref := inquiry.ThreadRef{ThreadID: thread}
		if forumUsername != "" && strings.EqualFold(parts[0], strings.TrimPrefix(forumUsername, "@")) {
			ref.ChatID = forumChatID
		}
		return ref, true
	}
	return inquiry.ThreadRef{}, false
}

func parseThread(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ThreadLink builds the private t.me link to a topic of a supergroup.
func ThreadLink(chatID int64, threadID int) string {
	internal := -chatID - supergroupPrefix
	if internal <= 0 || threadID <= 0 {
		return ""
	}
	return "https://t.me/c/" + strconv.FormatInt(internal, 10) + "/" + strconv.Itoa(threadID)
}
