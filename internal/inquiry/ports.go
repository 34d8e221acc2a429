package inquiry

import (
	"context"
	"time"
)

// Authorizer answers whether an actor holds the staff capability.
type Authorizer interface {
	HasCapability(ctx context.Context, actorID, roleID int64) (bool, error)
}

// Extraction is what the source topic yields for a new session.
type Extraction struct {
	Author     Author
	Text       string
	Images     []string
	ThreadName string
}

// Extractor reads the originating post of a topic. An empty topic returns a
// zero Author rather than an error.
type Extractor interface {
	Extract(ctx context.Context, thread ThreadRef) (Extraction, error)
}

// SubmitResult reports the outcome of one outbound submission.
type SubmitResult struct {
	OK      bool
	Payload string
	Error   string
}

// Submitter performs the single outbound call for a finalized record.
type Submitter interface {
	Submit(ctx context.Context, rec Record) SubmitResult
}

// Summary is the notification sent after a successful import.
type Summary struct {
	Session    Session
	ImportedAt time.Time
}

// Notifier mirrors successful imports to a staff channel.
type Notifier interface {
	Post(ctx context.Context, channelID int64, s Summary) error
}
