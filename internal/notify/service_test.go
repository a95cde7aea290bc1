package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanzzsky/wa-autoorder/internal/billing"
	kafkax "github.com/vanzzsky/wa-autoorder/internal/kafka"
	"github.com/vanzzsky/wa-autoorder/internal/redisx"
)

func envelopeMsg(eventType string, payload any) kafkago.Message {
	env := billing.Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "test",
		Payload:      kafkax.MustMarshal(payload),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func newService(senderURL string) *Service {
	return &Service{
		Redis:       redisx.New("127.0.0.1:1"), // port mati: dedup selalu miss
		Sender:      NewSender(senderURL),
		ServiceName: "test-notifier",
	}
}

func TestHandlePaymentSettledSendsText(t *testing.T) {
	var got outboundMsg
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newService(srv.URL)
	msg := envelopeMsg(billing.EventPaymentSettled, billing.PaymentSettledPayload{
		MerchantRef: "BUY-NETFLIX1-628123-abc",
		Phone:       "628123",
		Kind:        "purchase",
		ProductCode: "NETFLIX1",
		Qty:         2,
		Amount:      30000,
	})

	require.NoError(t, s.HandlePaymentSettled(context.Background(), msg))
	assert.Equal(t, "628123", got.Phone)
	assert.Contains(t, got.Message, "NETFLIX1 x2")
}

func TestHandlePaymentSettledIgnoresOtherEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("tidak boleh ada pengiriman utk event asing")
	}))
	defer srv.Close()

	s := newService(srv.URL)
	msg := envelopeMsg("SomethingElse", map[string]any{})
	assert.NoError(t, s.HandlePaymentSettled(context.Background(), msg))
}

func TestHandleOrderPaidSendsText(t *testing.T) {
	var got outboundMsg
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
	}))
	defer srv.Close()

	s := newService(srv.URL)
	msg := envelopeMsg(billing.EventOrderPaid, billing.OrderPaidPayload{
		Phone:       "628123",
		ProductCode: "NETFLIX1",
		ProductName: "Netflix 1 Bulan",
		Qty:         1,
		Total:       15000,
	})

	require.NoError(t, s.HandleOrderPaid(context.Background(), msg))
	assert.Equal(t, "628123", got.Phone)
	assert.Contains(t, got.Message, "Netflix 1 Bulan x1")
}

func TestSenderPropagatesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewSender(srv.URL)
	err := s.SendText(context.Background(), "628123", "halo")
	assert.Error(t, err)
}
