package inquiry

import (
	"context"
	"errors"
	"sync"
)

type fakeAuth struct {
	allow bool
	err   error
	calls int
}

func (f *fakeAuth) HasCapability(_ context.Context, _, _ int64) (bool, error) {
	f.calls++
	return f.allow, f.err
}

type fakeExtractor struct {
	out   Extraction
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ ThreadRef) (Extraction, error) {
	f.calls++
	return f.out, f.err
}

type fakeSubmitter struct {
	mu      sync.Mutex
	records []Record
	results []SubmitResult
	gate    chan struct{}
}

func (f *fakeSubmitter) Submit(_ context.Context, rec Record) SubmitResult {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	if len(f.results) == 0 {
		return SubmitResult{OK: true, Payload: `{"id":1}`}
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res
}

func (f *fakeSubmitter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeNotifier struct {
	mu        sync.Mutex
	summaries []Summary
	channel   int64
	fail      bool
}

func (f *fakeNotifier) Post(_ context.Context, channelID int64, s Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channel = channelID
	f.summaries = append(f.summaries, s)
	if f.fail {
		return errors.New("channel unreachable")
	}
	return nil
}

const (
	forumChat = int64(-1001234567890)
	staffChat = int64(-1009876543210)
	staffChan = int64(-1005555555555)
	playerU1  = int64(1001)
	staffS1   = int64(2002)
)

type harness struct {
	wiz    *Wizard
	store  *Store
	auth   *fakeAuth
	ext    *fakeExtractor
	sub    *fakeSubmitter
	notify *fakeNotifier
}

func newHarness() *harness {
	return newHarnessWithStore(NewStore(DefaultSessionTTL))
}

func newHarnessWithStore(store *Store) *harness {
	h := &harness{
		store: store,
		auth:  &fakeAuth{allow: true},
		ext: &fakeExtractor{out: Extraction{
			Author:     Author{ID: playerU1, Name: "U1"},
			Text:       "Hi! bean juice, I want a plot",
			Images:     []string{"https://cdn.example/a.png", "https://cdn.example/b.png"},
			ThreadName: "Plot near Valentine",
		}},
		sub:    &fakeSubmitter{},
		notify: &fakeNotifier{},
	}
	h.wiz = NewWizard(Config{
		SourceChatID:   forumChat,
		RoleID:         staffChat,
		StaffChannelID: staffChan,
	}, h.store, Deps{Authorizer: h.auth, Extractor: h.ext, Submitter: h.sub, Notifier: h.notify})
	return h
}

func (h *harness) trigger() Trigger {
	return Trigger{InitiatorID: staffS1, Thread: ThreadRef{ChatID: forumChat, ThreadID: 77}}
}

// keyOf returns the session key embedded in the panel's first control.
func keyOf(p Panel) string {
	if len(p.Controls) == 0 {
		return ""
	}
	return p.Controls[0].Action.Key
}
