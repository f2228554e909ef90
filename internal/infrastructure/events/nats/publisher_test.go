package nats

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
)

func TestEncodeEventUsesTypedSubject(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	subject, payload, err := encodeEvent(subjectPrefix(" webchat.events. "), domain.SessionEvent{
		Type:       domain.EventPageIndexed,
		SessionID:  "s-1",
		URL:        "https://example.com",
		Passages:   3,
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("encodeEvent() error = %v", err)
	}
	if subject != "webchat.events.page_indexed" {
		t.Fatalf("unexpected subject %q", subject)
	}

	var decoded domain.SessionEvent
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.SessionID != "s-1" || decoded.Passages != 3 || !decoded.OccurredAt.Equal(at) {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}

func TestEncodeEventRejectsMissingType(t *testing.T) {
	_, _, err := encodeEvent("webchat.events", domain.SessionEvent{SessionID: "s-1"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestSubjectPrefixDefault(t *testing.T) {
	if got := subjectPrefix(""); got != "webchat.events" {
		t.Fatalf("unexpected default subject %q", got)
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	cases := []struct {
		err       error
		temporary bool
	}{
		{err: fmt.Errorf("publish: %w", nats.ErrConnectionClosed), temporary: true},
		{err: gobreaker.ErrOpenState, temporary: true},
		{err: errors.New("bad subject"), temporary: false},
	}
	for _, tc := range cases {
		got := wrapTemporaryIfNeeded(tc.err)
		if domain.IsKind(got, domain.ErrTemporary) != tc.temporary {
			t.Fatalf("err=%v: expected temporary=%v, got %v", tc.err, tc.temporary, got)
		}
	}
}
