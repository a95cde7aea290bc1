package billing

import (
	"encoding/json"
	"time"
)

const (
	EventPaymentSettled = "PaymentSettled"
	EventOrderPaid      = "OrderPaid"
)

const (
	TopicPaymentSettled = "payment.settled"
	TopicOrderPaid      = "order.paid"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "wa-autoorder"
	CorrelationID string          `json:"correlation_id,omitempty"` // merchant_ref / phone
	Payload       json.RawMessage `json:"payload"`
}

// PaymentSettledPayload dikirim sekali per settlement efektif (bukan duplikat).
type PaymentSettledPayload struct {
	MerchantRef string `json:"merchant_ref"`
	Phone       string `json:"phone"`
	Kind        string `json:"kind"` // topup | purchase
	ProductCode string `json:"product_code,omitempty"`
	Qty         int    `json:"qty,omitempty"`
	Amount      int64  `json:"amount"`
}

// OrderPaidPayload dikirim utk pembelian langsung dari saldo.
type OrderPaidPayload struct {
	Phone       string `json:"phone"`
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
	Qty         int    `json:"qty"`
	Total       int64  `json:"total"`
}

// Partition key = merchant_ref (atau phone utk order saldo), supaya event
// satu transaksi maintain urutan.
func PartitionKey(id string) []byte { return []byte(id) }
