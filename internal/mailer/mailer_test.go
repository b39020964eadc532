package mailer

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingTransport struct {
	from     string
	sent     []Message
	deadline time.Time
	err      error
}

func (r *recordingTransport) Send(ctx context.Context, from string, msg Message) error {
	r.from = from
	r.deadline, _ = ctx.Deadline()
	r.sent = append(r.sent, msg)
	return r.err
}

func TestMailerSendDefaultsContentType(t *testing.T) {
	tr := &recordingTransport{}
	m := New(tr, "noreply@example.org", "Bug Reports", time.Second)

	if err := m.Send(context.Background(), Message{To: "dev@example.org", Body: "x"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := tr.sent[0].ContentType; got != ContentTypePlain {
		t.Errorf("content type = %q, want %q", got, ContentTypePlain)
	}
	if tr.from != `"Bug Reports" <noreply@example.org>` {
		t.Errorf("from = %q", tr.from)
	}
}

func TestMailerContentTypeIsPerMessage(t *testing.T) {
	tr := &recordingTransport{}
	m := New(tr, "noreply@example.org", "", time.Second)

	_ = m.Send(context.Background(), Message{To: "a@example.org", ContentType: ContentTypeHTML})
	_ = m.Send(context.Background(), Message{To: "b@example.org"})

	if tr.sent[0].ContentType != ContentTypeHTML {
		t.Errorf("first message content type = %q", tr.sent[0].ContentType)
	}
	if tr.sent[1].ContentType != ContentTypePlain {
		t.Errorf("html override leaked into next message: %q", tr.sent[1].ContentType)
	}
	if tr.from != "noreply@example.org" {
		t.Errorf("from = %q", tr.from)
	}
}

func TestMailerRejectsEmptyRecipient(t *testing.T) {
	tr := &recordingTransport{}
	err := New(tr, "noreply@example.org", "", time.Second).Send(context.Background(), Message{To: "  "})
	if !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("err = %v, want ErrNoRecipient", err)
	}
	if len(tr.sent) != 0 {
		t.Errorf("transport called %d times", len(tr.sent))
	}
}

func TestMailerAppliesTimeout(t *testing.T) {
	tr := &recordingTransport{}
	start := time.Now()
	_ = New(tr, "noreply@example.org", "", 5*time.Second).Send(context.Background(), Message{To: "a@example.org"})

	if tr.deadline.IsZero() {
		t.Fatal("transport context has no deadline")
	}
	if d := tr.deadline.Sub(start); d > 6*time.Second || d < 4*time.Second {
		t.Errorf("deadline %v from start, want ~5s", d)
	}
}

func TestMailerWrapsTransportError(t *testing.T) {
	boom := errors.New("connection refused")
	tr := &recordingTransport{err: boom}
	err := New(tr, "noreply@example.org", "", time.Second).Send(context.Background(), Message{To: "a@example.org"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

// stuckTransport ignores ctx and returns only when release is closed, the
// way a gomail session does.
type stuckTransport struct {
	release chan struct{}
}

func (s *stuckTransport) Send(_ context.Context, _ string, _ Message) error {
	<-s.release
	return nil
}

func TestMailerCompletesAfterAbandonedDelivery(t *testing.T) {
	tr := &stuckTransport{release: make(chan struct{})}
	done := make(chan error, 1)

	err := New(tr, "noreply@example.org", "", 20*time.Millisecond).Send(context.Background(), Message{
		To:         "a@example.org",
		OnComplete: func(err error) { done <- err },
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}

	select {
	case <-done:
		t.Fatal("OnComplete ran while the transport was still sending")
	default:
	}

	close(tr.release)
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("OnComplete err = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnComplete never ran")
	}
}

func TestMailerCompletesBeforeReturning(t *testing.T) {
	boom := errors.New("connection refused")
	var got []error
	m := New(&recordingTransport{err: boom}, "noreply@example.org", "", time.Second)

	_ = m.Send(context.Background(), Message{To: "a@example.org", OnComplete: func(err error) { got = append(got, err) }})
	_ = m.Send(context.Background(), Message{To: " ", OnComplete: func(err error) { got = append(got, err) }})

	if len(got) != 2 {
		t.Fatalf("OnComplete ran %d times, want 2", len(got))
	}
	if !errors.Is(got[0], boom) {
		t.Errorf("first result = %v, want %v", got[0], boom)
	}
	if !errors.Is(got[1], ErrNoRecipient) {
		t.Errorf("second result = %v, want ErrNoRecipient", got[1])
	}
}
