package bot

import (
	"io"
	"net/url"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// FileAPI is the subset of *tele.Bot used to reach stored files.
type FileAPI interface {
	FileURLByID(fileID string) (string, error)
	File(file *tele.File) (io.ReadCloser, error)
}

// MediaResolver publishes forum images. With a public base URL the images are
// served by the bot's own media endpoint, which keeps the bot token out of
// URLs handed downstream; otherwise Bot API file URLs are used.
type MediaResolver struct {
	base string
	api  FileAPI
}

// NewMediaResolver builds a resolver; base may be empty.
func NewMediaResolver(api FileAPI, base string) *MediaResolver {
	return &MediaResolver{api: api, base: strings.TrimRight(base, "/")}
}

// FileURL returns the URL the downstream service should fetch.
func (m *MediaResolver) FileURL(fileID string) (string, error) {
	if m.base != "" {
		return m.base + "/media/" + url.PathEscape(fileID), nil
	}
	return m.api.FileURLByID(fileID)
}

// Open streams a file from the Bot API.
func (m *MediaResolver) Open(fileID string) (io.ReadCloser, error) {
	return m.api.File(&tele.File{FileID: fileID})
}
