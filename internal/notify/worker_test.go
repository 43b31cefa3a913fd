package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingMailer struct {
	mu    sync.Mutex
	sent  []string
	fail  error
	calls chan struct{}
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{calls: make(chan struct{}, 10)}
}

func (m *recordingMailer) Send(_ context.Context, to, subject, _ string) error {
	defer func() { m.calls <- struct{}{} }()
	if m.fail != nil {
		return m.fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to+"|"+subject)
	return nil
}

func TestRenderAcceptedIncludesLinks(t *testing.T) {
	subject, body, err := Render(Message{
		Kind: KindProposalAccepted,
		To:   "ads@example.com",
		Data: map[string]string{
			"slot_name":    "Top banner",
			"price":        "25.00",
			"payment_link": "https://pay.example.com/cs_123",
			"edit_link":    "https://app.example.com/proposals/1/edit",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, subject, "Top banner")
	assert.Contains(t, body, "https://pay.example.com/cs_123")
	assert.Contains(t, body, "https://app.example.com/proposals/1/edit")
}

func TestRenderUnknownKind(t *testing.T) {
	_, _, err := Render(Message{Kind: "nope"})
	assert.Error(t, err)
}

func TestHandleSendEmail(t *testing.T) {
	mailer := newRecordingMailer()
	worker := NewWorker(mailer, zap.NewNop())

	task, err := NewSendEmailTask(Message{
		Kind: KindAccessCode,
		To:   "guest@example.com",
		Data: map[string]string{"code": "123456", "expires_in": "15 minutes"},
	})
	require.NoError(t, err)

	require.NoError(t, worker.HandleSendEmail(context.Background(), task))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "guest@example.com|Your access code: 123456", mailer.sent[0])
}

func TestHandleSendEmailDoesNotRetryFailures(t *testing.T) {
	mailer := newRecordingMailer()
	mailer.fail = errors.New("smtp down")
	worker := NewWorker(mailer, zap.NewNop())

	task, err := NewSendEmailTask(Message{Kind: KindProposalRejected, To: "a@example.com"})
	require.NoError(t, err)

	err = worker.HandleSendEmail(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleSendEmailRejectsBadPayload(t *testing.T) {
	worker := NewWorker(newRecordingMailer(), zap.NewNop())

	err := worker.HandleSendEmail(context.Background(), asynq.NewTask(TypeSendEmail, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestInlineDispatcherDelivers(t *testing.T) {
	mailer := newRecordingMailer()
	d := NewInlineDispatcher(mailer, zap.NewNop())

	d.Dispatch(context.Background(), Message{
		Kind: KindCampaignExpired,
		To:   "owner@example.com",
		Data: map[string]string{"slot_name": "Sidebar"},
	})

	select {
	case <-mailer.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("message was not delivered")
	}

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0], "owner@example.com")
}

// slowMailer holds every delivery until release is closed
type slowMailer struct {
	release   chan struct{}
	mu        sync.Mutex
	delivered int
}

func (m *slowMailer) Send(ctx context.Context, _, _, _ string) error {
	<-m.release
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered++
	return nil
}

func TestInlineDispatcherWaitDrainsPending(t *testing.T) {
	mailer := &slowMailer{release: make(chan struct{})}
	d := NewInlineDispatcher(mailer, zap.NewNop())

	for i := 0; i < 3; i++ {
		d.Dispatch(context.Background(), Message{
			Kind: KindCampaignExpired,
			To:   "owner@example.com",
			Data: map[string]string{"slot_name": "Sidebar"},
		})
	}

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before deliveries finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(mailer.release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	assert.Equal(t, 3, mailer.delivered)
}
