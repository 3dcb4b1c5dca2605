package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type recordingTransport struct {
	mu   sync.Mutex
	sent []*Message
}

func (r *recordingTransport) Deliver(_ context.Context, msg *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func TestQueuedEmailIsDeliveredOnClose(t *testing.T) {
	transport := &recordingTransport{}
	svc := NewService(transport)

	svc.SendWelcome("new@example.com", "Asha", "Gold 12", "Tmp12345", "http://app/login")
	svc.Close()

	if len(transport.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(transport.sent))
	}
	msg := transport.sent[0]
	if msg.To != "new@example.com" {
		t.Errorf("unexpected recipient %s", msg.To)
	}
	if !strings.Contains(msg.HTMLContent, "Tmp12345") || !strings.Contains(msg.HTMLContent, "Gold 12") {
		t.Errorf("rendered body is missing data: %s", msg.HTMLContent)
	}
}

func TestQueueAfterCloseIsDropped(t *testing.T) {
	transport := &recordingTransport{}
	svc := NewService(transport)
	svc.Close()

	// a job outliving shutdown may still notify
	svc.SendMaturityReady("late@example.com", "Ravi", "Gold 12", "1.5")
	svc.Queue("late@example.com", "Ravi", TemplateWelcome, "Welcome", nil)
	svc.Close()

	if len(transport.sent) != 0 {
		t.Fatalf("expected no email after close, got %d", len(transport.sent))
	}
}

func TestQueueRacingCloseDoesNotPanic(t *testing.T) {
	svc := NewService(&recordingTransport{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				svc.SendRedemptionDecision("a@b.c", "A", "BONUS", "APPROVED", "")
			}
		}()
	}
	svc.Close()
	wg.Wait()
}

func TestSendSyncUnknownTemplate(t *testing.T) {
	svc := NewService(&recordingTransport{})
	defer svc.Close()

	if err := svc.SendSync(context.Background(), "a@b.c", "", "missing", "x", nil); err != ErrUnknownTemplate {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}
}

func TestSendGridClientPostsPayload(t *testing.T) {
	var got map[string]interface{}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewSendGridClient(SendGridConfig{APIKey: "key", FromEmail: "noreply@x", Endpoint: srv.URL})
	err := client.Deliver(context.Background(), &Message{To: "a@b.c", Subject: "hi", HTMLContent: "<p>hi</p>"})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if auth != "Bearer key" {
		t.Errorf("unexpected auth header %q", auth)
	}
	if got["subject"] != "hi" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestSendGridClientReportsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewSendGridClient(SendGridConfig{Endpoint: srv.URL})
	if err := client.Deliver(context.Background(), &Message{To: "a@b.c"}); err == nil {
		t.Fatal("expected error for 401 response")
	}
}
