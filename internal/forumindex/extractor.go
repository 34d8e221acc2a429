package forumindex

import (
	"context"
	"log/slog"

	"github.com/m3rciful/inquirybot/core/logger"
	"github.com/m3rciful/inquirybot/internal/inquiry"
)

// DefaultScanWindow is how many of the newest posts are searched for images
// alongside the originating one.
const DefaultScanWindow = 10

// PostSource reads indexed topics.
type PostSource interface {
	// ThreadPosts returns the originating post and the newest recent posts in thread order.
	ThreadPosts(ctx context.Context, chatID int64, threadID, recent int) ([]Post, error)
	TopicName(ctx context.Context, chatID int64, threadID int) (string, error)
}

// FileResolver turns a file id into a URL the downstream service can fetch.
type FileResolver interface {
	FileURL(fileID string) (string, error)
}

// Extractor reads an inquiry's source material from the index.
type Extractor struct {
	posts  PostSource
	files  FileResolver
	window int
}

// NewExtractor builds an extractor; a non-positive window selects the default.
func NewExtractor(posts PostSource, files FileResolver, window int) *Extractor {
	if window <= 0 {
		window = DefaultScanWindow
	}
	return &Extractor{posts: posts, files: files, window: window}
}

// Extract returns the originating author, text and image URLs of a topic.
// A topic with no indexed posts yields a zero author.
func (e *Extractor) Extract(ctx context.Context, thread inquiry.ThreadRef) (inquiry.Extraction, error) {
	posts, err := e.posts.ThreadPosts(ctx, thread.ChatID, thread.ThreadID, e.window)
	if err != nil {
		return inquiry.Extraction{}, err
	}
	name, err := e.posts.TopicName(ctx, thread.ChatID, thread.ThreadID)
	if err != nil {
		logger.LogEvent(ctx, logger.Index, slog.LevelWarn, "topic.name.fail",
			slog.Int("thread_id", thread.ThreadID),
			slog.String("err", err.Error()),
		)
	}
	out := inquiry.Extraction{ThreadName: name}
	if len(posts) == 0 {
		return out, nil
	}

	origin := posts[0]
	out.Author = inquiry.Author{ID: origin.AuthorID, Name: origin.AuthorName}
	out.Text = origin.Text

	urls := make([]string, 0, len(posts))
	for _, a := range CollectImages(posts, e.window) {
		u, err := e.files.FileURL(a.FileID)
		if err != nil {
			logger.LogEvent(ctx, logger.Index, slog.LevelWarn, "file.resolve.fail",
				slog.Int("message_id", a.MessageID),
				slog.String("err", err.Error()),
			)
			continue
		}
		urls = append(urls, u)
	}
	out.Images = DedupeURLs(urls)

	logger.LogEvent(ctx, logger.Index, slog.LevelDebug, "extract.done",
		slog.Int("thread_id", thread.ThreadID),
		slog.Int64("author_id", origin.AuthorID),
		slog.Int("posts", len(posts)),
		slog.Int("images", len(out.Images)),
	)
	return out, nil
}

// CollectImages picks image attachments posted by the originating author in
// the first post and the newest window posts, deduplicated by file.
// posts must be in thread order with the originating post first.
func CollectImages(posts []Post, window int) []Attachment {
	if len(posts) == 0 {
		return nil
	}
	author := posts[0].AuthorID
	scan := append([]Post{posts[0]}, posts[max(1, len(posts)-window):]...)

	seen := make(map[string]struct{})
	var out []Attachment
	for _, p := range scan {
		if p.AuthorID != author {
			continue
		}
		for _, a := range p.Attachments {
			if !a.IsImage() {
				continue
			}
			id := a.FileUniqueID
			if id == "" {
				id = a.FileID
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}

// DedupeURLs drops repeated URLs, keeping first occurrences in order.
func DedupeURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
