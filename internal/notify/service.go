package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/vanzzsky/wa-autoorder/internal/billing"
	kafkax "github.com/vanzzsky/wa-autoorder/internal/kafka"
	"github.com/vanzzsky/wa-autoorder/internal/redisx"
)

// Service: consumer event settlement -> pesan WA. Fulfillment produk tetap
// manual oleh admin; worker ini cuma memberi tahu pembeli.
type Service struct {
	Redis       *redis.Client
	Sender      *Sender
	ServiceName string
}

// HandlePaymentSettled dipasang sebagai handler consumer payment.settled.
func (s *Service) HandlePaymentSettled(ctx context.Context, m kafkago.Message) error {
	var env billing.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != billing.EventPaymentSettled {
		return nil
	}
	if s.seen(ctx, env.EventID) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[billing.PaymentSettledPayload](env.Payload)
	if err != nil {
		return err
	}

	var text string
	if p.Kind == "purchase" {
		text = fmt.Sprintf("Pembayaran %s diterima! Pesanan %s x%d segera diproses admin.",
			p.MerchantRef, p.ProductCode, p.Qty)
	} else {
		text = fmt.Sprintf("Topup Rp%d berhasil! Saldo kamu sudah bertambah.", p.Amount)
	}
	if err := s.Sender.SendText(ctx, p.Phone, text); err != nil {
		log.Printf("notify settled %s: %v", p.MerchantRef, err)
		return err
	}
	return nil
}

// HandleOrderPaid dipasang sebagai handler consumer order.paid.
func (s *Service) HandleOrderPaid(ctx context.Context, m kafkago.Message) error {
	var env billing.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != billing.EventOrderPaid {
		return nil
	}
	if s.seen(ctx, env.EventID) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[billing.OrderPaidPayload](env.Payload)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Pesanan %s x%d (Rp%d) dibayar dari saldo. Diproses admin maksimal 1x24 jam.",
		p.ProductName, p.Qty, p.Total)
	if err := s.Sender.SendText(ctx, p.Phone, text); err != nil {
		log.Printf("notify paid %s: %v", p.Phone, err)
		return err
	}
	return nil
}

// seen: dedup via Redis pakai event_id, pola yg sama dgn consumer lain.
func (s *Service) seen(ctx context.Context, eventID string) bool {
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, eventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return true
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return false
}
