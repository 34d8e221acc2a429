package inquiry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardHappyPath(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	p, err := h.wiz.Start(ctx, h.trigger())
	require.NoError(t, err)
	assert.Equal(t, AccentPositive, p.Accent)
	require.Len(t, p.Options, 2)
	key := keyOf(p)
	require.NotEmpty(t, key)
	assert.Equal(t, 1, h.store.Len())

	p, err = h.wiz.SelectType(ctx, key, "Native")
	require.NoError(t, err)
	require.Len(t, p.Options, 3)

	p, err = h.wiz.SelectSize(ctx, key, "50x50")
	require.NoError(t, err)
	require.NotNil(t, p.Form)
	assert.Equal(t, key, p.Form.Key)

	var acked []Panel
	ack := func(_ context.Context, p Panel) error { acked = append(acked, p); return nil }
	p, err = h.wiz.SubmitForm(ctx, key, FormValues{GeneralLocation: "East of Valentine", Notes: ""}, ack)
	require.NoError(t, err)
	assert.Equal(t, AccentPositive, p.Accent)
	require.Len(t, acked, 1, "interaction is acknowledged before the outbound call")

	require.Equal(t, 1, h.sub.calls())
	assert.Equal(t, Record{
		SourceAuthorID:     playerU1,
		ConfirmationPhrase: "bean juice",
		PropertyType:       PropertyNative,
		PropertySize:       Size50x50,
		GeneralLocation:    "East of Valentine",
		Images:             []string{"https://cdn.example/a.png", "https://cdn.example/b.png"},
	}, h.sub.records[0])

	_, ok := h.store.Get(key)
	assert.False(t, ok, "session removed after success")
	require.Len(t, h.notify.summaries, 1)
	assert.Equal(t, staffChan, h.notify.channel)
}

func TestWizardUnknownKeyIsExpiredWithoutSideEffects(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	steps := []func() (Panel, error){
		func() (Panel, error) { return h.wiz.SelectType(ctx, "nope", "Native") },
		func() (Panel, error) { return h.wiz.SelectSize(ctx, "nope", "25x25") },
		func() (Panel, error) {
			return h.wiz.SubmitForm(ctx, "nope", FormValues{GeneralLocation: "x"}, nil)
		},
		func() (Panel, error) { return h.wiz.Retry(ctx, "nope", nil) },
		func() (Panel, error) { return h.wiz.Cancel(ctx, "nope") },
	}
	for _, step := range steps {
		p, err := step()
		require.ErrorIs(t, err, ErrSessionExpired)
		assert.Equal(t, AccentError, p.Accent)
		assert.Equal(t, "Session expired. Please start over.", p.Description)
	}
	assert.Zero(t, h.store.Len())
	assert.Zero(t, h.sub.calls())
	assert.Empty(t, h.notify.summaries)
}

func TestWizardConsumedKeyIsExpired(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p, err := h.wiz.Start(ctx, h.trigger())
	require.NoError(t, err)
	key := keyOf(p)
	_, err = h.wiz.SelectType(ctx, key, "YMap")
	require.NoError(t, err)
	_, err = h.wiz.SelectSize(ctx, key, "100x100")
	require.NoError(t, err)
	_, err = h.wiz.SubmitForm(ctx, key, FormValues{GeneralLocation: "Rhodes"}, nil)
	require.NoError(t, err)

	_, err = h.wiz.SubmitForm(ctx, key, FormValues{GeneralLocation: "Rhodes"}, nil)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 1, h.sub.calls())
}

func TestWizardSubmissionFailureRetainsSession(t *testing.T) {
	h := newHarness()
	h.sub.results = []SubmitResult{{OK: false, Error: "status 502: bad gateway"}}
	ctx := context.Background()

	p, err := h.wiz.Start(ctx, h.trigger())
	require.NoError(t, err)
	key := keyOf(p)
	_, err = h.wiz.SelectType(ctx, key, "Native")
	require.NoError(t, err)
	_, err = h.wiz.SelectSize(ctx, key, "25x25")
	require.NoError(t, err)

	p, err = h.wiz.SubmitForm(ctx, key, FormValues{GeneralLocation: "Blackwater", Notes: "corner lot"}, nil)
	require.ErrorIs(t, err, ErrSubmissionFailed)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "SUBMISSION_FAILED", se.Code())
	assert.Equal(t, AccentError, p.Accent)
	assert.Equal(t, "status 502: bad gateway", p.Detail)
	require.Len(t, p.Controls, 2)
	assert.Equal(t, StepRetry, p.Controls[0].Action.Step)

	sess, ok := h.store.Get(key)
	require.True(t, ok)
	assert.Equal(t, StateFailed, sess.State)
	assert.Equal(t, PropertyNative, sess.PropertyType)
	assert.Equal(t, Size25x25, sess.PropertySize)
	assert.Equal(t, "Blackwater", sess.GeneralLocation)
	assert.Equal(t, "corner lot", sess.Notes)
	assert.Equal(t, "bean juice", sess.ConfirmationPhrase)
	assert.Empty(t, h.notify.summaries)

	p, err = h.wiz.Retry(ctx, key, nil)
	require.NoError(t, err)
	assert.Equal(t, AccentPositive, p.Accent)
	assert.Equal(t, 2, h.sub.calls())
	assert.Zero(t, h.store.Len())
}

func TestWizardUnauthorizedHasNoSideEffects(t *testing.T) {
	for name, auth := range map[string]*fakeAuth{
		"not a member": {allow: false},
		"lookup error": {allow: true, err: assert.AnError},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			h.wiz.deps.Authorizer = auth
			p, err := h.wiz.Start(context.Background(), h.trigger())
			require.ErrorIs(t, err, ErrUnauthorized)
			assert.Equal(t, AccentError, p.Accent)
			assert.Zero(t, h.ext.calls)
			assert.Zero(t, h.store.Len())
		})
	}
}

func TestWizardWrongContext(t *testing.T) {
	cases := map[string]Trigger{
		"other forum":  {InitiatorID: staffS1, Thread: ThreadRef{ChatID: -100111, ThreadID: 5}},
		"not a thread": {InitiatorID: staffS1, Thread: ThreadRef{ChatID: forumChat}},
		"bad link":     {InitiatorID: staffS1, LinkInvalid: true},
	}
	for name, trig := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			p, err := h.wiz.Start(context.Background(), trig)
			require.ErrorIs(t, err, ErrWrongContext)
			assert.NotEmpty(t, p.Description)
			assert.Zero(t, h.ext.calls)
			assert.Zero(t, h.store.Len())
		})
	}
}

func TestWizardEmptySource(t *testing.T) {
	h := newHarness()
	h.ext.out = Extraction{}
	_, err := h.wiz.Start(context.Background(), h.trigger())
	require.ErrorIs(t, err, ErrEmptySource)
	assert.Zero(t, h.store.Len())

	h.ext.err = assert.AnError
	_, err = h.wiz.Start(context.Background(), h.trigger())
	require.ErrorIs(t, err, ErrEmptySource)
}

func TestWizardMarkerWarning(t *testing.T) {
	h := newHarness()
	h.ext.out.Text = "no phrase here"
	p, err := h.wiz.Start(context.Background(), h.trigger())
	require.NoError(t, err)
	assert.Equal(t, AccentWarning, p.Accent)
	last := p.Fields[len(p.Fields)-1]
	assert.Equal(t, "⚠️ Warning", last.Name)

	sess, ok := h.store.Get(keyOf(p))
	require.True(t, ok)
	assert.False(t, sess.ConfirmationMarker)
}

func TestWizardPreviewIsTruncated(t *testing.T) {
	h := newHarness()
	long := make([]rune, 800)
	for i := range long {
		long[i] = 'é'
	}
	h.ext.out.Text = string(long)
	p, err := h.wiz.Start(context.Background(), h.trigger())
	require.NoError(t, err)
	for _, f := range p.Fields {
		if f.Name == "Post Content Preview" {
			assert.Equal(t, DefaultPreviewLength, len([]rune(f.Value)))
			return
		}
	}
	t.Fatal("preview field missing")
}

func TestWizardRejectsOutOfOrderAndInvalidSteps(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p, err := h.wiz.Start(ctx, h.trigger())
	require.NoError(t, err)
	key := keyOf(p)

	_, err = h.wiz.SelectSize(ctx, key, "50x50")
	assert.ErrorIs(t, err, ErrStepOutOfOrder)
	_, err = h.wiz.SubmitForm(ctx, key, FormValues{GeneralLocation: "x"}, nil)
	assert.ErrorIs(t, err, ErrStepOutOfOrder)
	_, err = h.wiz.Retry(ctx, key, nil)
	assert.ErrorIs(t, err, ErrStepOutOfOrder)
	_, err = h.wiz.SelectType(ctx, key, "Castle")
	assert.ErrorIs(t, err, ErrInvalidSelection)

	sess, _ := h.store.Get(key)
	assert.Equal(t, StateCreated, sess.State)
	assert.Empty(t, sess.PropertyType)

	_, err = h.wiz.SelectType(ctx, key, "Native")
	require.NoError(t, err)
	_, err = h.wiz.SelectType(ctx, key, "YMap")
	assert.ErrorIs(t, err, ErrStepOutOfOrder, "replayed step is rejected")
	sess, _ = h.store.Get(key)
	assert.Equal(t, PropertyNative, sess.PropertyType)

	_, err = h.wiz.SelectSize(ctx, key, "50x50")
	require.NoError(t, err)
	_, err = h.wiz.SubmitForm(ctx, key, FormValues{GeneralLocation: "   "}, nil)
	assert.ErrorIs(t, err, ErrInvalidForm)
	assert.Zero(t, h.sub.calls())
}

func TestWizardConcurrentSelectionsApplyOnce(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p, err := h.wiz.Start(ctx, h.trigger())
	require.NoError(t, err)
	key := keyOf(p)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value := "Native"
			if i%2 == 1 {
				value = "YMap"
			}
			if _, err := h.wiz.SelectType(ctx, key, value); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)
	sess, _ := h.store.Get(key)
	assert.Equal(t, StateTypeSelected, sess.State)
}

func TestWizardDoubleSubmitCallsOnce(t *testing.T) {
	h := newHarness()
	h.sub.gate = make(chan struct{})
	ctx := context.Background()
	p, err := h.wiz.Start(ctx, h.trigger())
	require.NoError(t, err)
	key := keyOf(p)
	_, _ = h.wiz.SelectType(ctx, key, "Native")
	_, _ = h.wiz.SelectSize(ctx, key, "50x50")

	first := make(chan error, 1)
	go func() {
		_, err := h.wiz.SubmitForm(ctx, key, FormValues{GeneralLocation: "Armadillo"}, nil)
		first <- err
	}()
	require.Eventually(t, func() bool {
		s, ok := h.store.Get(key)
		return ok && s.State == StateAwaitingSubmission
	}, time.Second, 5*time.Millisecond)

	_, err = h.wiz.SubmitForm(ctx, key, FormValues{GeneralLocation: "Armadillo"}, nil)
	assert.ErrorIs(t, err, ErrStepOutOfOrder)
	_, err = h.wiz.Cancel(ctx, key)
	assert.ErrorIs(t, err, ErrStepOutOfOrder)

	close(h.sub.gate)
	require.NoError(t, <-first)
	assert.Equal(t, 1, h.sub.calls())
}

func TestWizardSubmitOutlivesCancelledContext(t *testing.T) {
	h := newHarness()
	h.sub.gate = make(chan struct{})
	p, err := h.wiz.Start(context.Background(), h.trigger())
	require.NoError(t, err)
	key := keyOf(p)
	_, _ = h.wiz.SelectType(context.Background(), key, "Native")
	_, _ = h.wiz.SelectSize(context.Background(), key, "50x50")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, err = h.wiz.SubmitForm(ctx, key, FormValues{GeneralLocation: "Strawberry"}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, AccentWarning, p.Accent)

	close(h.sub.gate)
	require.Eventually(t, func() bool { return h.store.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestWizardSlowFailureOutlivingTTLStaysRecoverable(t *testing.T) {
	c := &clock{now: time.Unix(1700000000, 0)}
	h := newHarnessWithStore(NewStore(time.Minute, WithClock(c.Now)))
	h.sub.gate = make(chan struct{})
	h.sub.results = []SubmitResult{{OK: false, Error: "status 504: gateway timeout"}}
	ctx := context.Background()

	p, err := h.wiz.Start(ctx, h.trigger())
	require.NoError(t, err)
	key := keyOf(p)
	_, err = h.wiz.SelectType(ctx, key, "Native")
	require.NoError(t, err)
	_, err = h.wiz.SelectSize(ctx, key, "50x50")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := h.wiz.SubmitForm(ctx, key, FormValues{GeneralLocation: "Rhodes"}, nil)
		done <- err
	}()
	require.Eventually(t, func() bool {
		s, ok := h.store.Get(key)
		return ok && s.State == StateAwaitingSubmission
	}, time.Second, 5*time.Millisecond)

	c.Advance(5 * time.Minute)
	assert.Zero(t, h.store.SweepExpired(), "in-flight session is pinned")
	_, ok := h.store.Get(key)
	assert.True(t, ok)

	close(h.sub.gate)
	require.ErrorIs(t, <-done, ErrSubmissionFailed)

	sess, ok := h.store.Get(key)
	require.True(t, ok)
	assert.Equal(t, StateFailed, sess.State)
	assert.Equal(t, "status 504: gateway timeout", sess.LastError)

	_, err = h.wiz.Cancel(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, h.store.Len())
}

func TestWizardFailedSessionIsSweptAfterTTL(t *testing.T) {
	c := &clock{now: time.Unix(1700000000, 0)}
	h := newHarnessWithStore(NewStore(time.Minute, WithClock(c.Now)))
	h.sub.results = []SubmitResult{{OK: false, Error: "status 500"}}
	ctx := context.Background()

	p, err := h.wiz.Start(ctx, h.trigger())
	require.NoError(t, err)
	key := keyOf(p)
	_, _ = h.wiz.SelectType(ctx, key, "Native")
	_, _ = h.wiz.SelectSize(ctx, key, "50x50")
	_, err = h.wiz.SubmitForm(ctx, key, FormValues{GeneralLocation: "Rhodes"}, nil)
	require.ErrorIs(t, err, ErrSubmissionFailed)

	c.Advance(time.Hour)
	assert.Equal(t, 1, h.store.SweepExpired())
	assert.Zero(t, h.store.Len())
}

func TestWizardCancel(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p, err := h.wiz.Start(ctx, h.trigger())
	require.NoError(t, err)
	key := keyOf(p)

	_, err = h.wiz.Dispatch(ctx, Action{Step: StepCancel, Key: key}, nil)
	require.NoError(t, err)
	assert.Zero(t, h.store.Len())

	_, err = h.wiz.Dispatch(ctx, Action{Step: StepType, Key: key, Value: "Native"}, nil)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestWizardNotificationFailureIsSwallowed(t *testing.T) {
	h := newHarness()
	h.notify.fail = true
	ctx := context.Background()
	p, _ := h.wiz.Start(ctx, h.trigger())
	key := keyOf(p)
	_, _ = h.wiz.SelectType(ctx, key, "Native")
	_, _ = h.wiz.SelectSize(ctx, key, "50x50")
	p, err := h.wiz.SubmitForm(ctx, key, FormValues{GeneralLocation: "Valentine"}, nil)
	require.NoError(t, err)
	assert.Equal(t, AccentPositive, p.Accent)
	assert.Len(t, h.notify.summaries, 1)
	assert.Zero(t, h.store.Len())
}

func TestWizardSkipsNotificationWithoutChannel(t *testing.T) {
	h := newHarness()
	h.wiz.cfg.StaffChannelID = 0
	ctx := context.Background()
	p, _ := h.wiz.Start(ctx, h.trigger())
	key := keyOf(p)
	_, _ = h.wiz.SelectType(ctx, key, "Native")
	_, _ = h.wiz.SelectSize(ctx, key, "50x50")
	_, err := h.wiz.SubmitForm(ctx, key, FormValues{GeneralLocation: "Valentine"}, nil)
	require.NoError(t, err)
	assert.Empty(t, h.notify.summaries)
}
