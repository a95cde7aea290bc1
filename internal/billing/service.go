package billing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/vanzzsky/wa-autoorder/internal/catalog"
	kafkax "github.com/vanzzsky/wa-autoorder/internal/kafka"
	"github.com/vanzzsky/wa-autoorder/internal/ledger"
	"github.com/vanzzsky/wa-autoorder/internal/tripay"
)

var ErrTopupTooSmall = errors.New("topup amount below minimum")

// Gateway: bagian dari tripay.Client yg dipakai service (di-mock saat test).
type Gateway interface {
	CreateTransaction(ctx context.Context, req tripay.TxRequest) (*tripay.CheckoutInfo, error)
}

// Publisher: bagian dari kafkax.Producer yg dipakai service.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Service memegang state machine topup/order dan reconciler callback.
type Service struct {
	Store   ledger.Store
	Catalog catalog.Repo
	Gateway Gateway

	SettledPub Publisher // payment.settled
	PaidPub    Publisher // order.paid

	ServiceName string
	MinTopup    int64
}

// Topup bikin PendingTx lalu daftarkan transaksi di gateway.
// Urutan penting: persist dulu SEBELUM call keluar, supaya reconciler selalu
// menemukan record walau call gateway putus di tengah.
func (s *Service) Topup(ctx context.Context, phone, name string, amount int64) (*tripay.CheckoutInfo, string, error) {
	if amount < s.MinTopup {
		return nil, "", fmt.Errorf("%w: minimal %d", ErrTopupTooSmall, s.MinTopup)
	}
	if _, err := s.Store.EnsureUser(ctx, phone, name); err != nil {
		return nil, "", err
	}

	ref := fmt.Sprintf("TOPUP-%s-%s", phone, nonce())
	err := s.Store.CreatePendingTx(ctx, ledger.PendingTx{
		MerchantRef: ref,
		Phone:       phone,
		Name:        name,
		Kind:        ledger.KindTopup,
		Amount:      amount,
		Status:      ledger.StatusPending,
	})
	if err != nil {
		return nil, "", err
	}

	info, err := s.Gateway.CreateTransaction(ctx, tripay.TxRequest{
		MerchantRef:   ref,
		Amount:        amount,
		CustomerName:  name,
		CustomerPhone: phone,
		ProductName:   "Topup Saldo",
		Qty:           1,
	})
	if err != nil {
		// record pending dibiarkan utk rekonsiliasi manual
		return nil, ref, err
	}
	return info, ref, nil
}

// BuyNow: pembelian langsung dari saldo, cek-lalu-debit atomik di store.
func (s *Service) BuyNow(ctx context.Context, phone, name, code string, qty int) (*ledger.User, *catalog.Product, error) {
	if qty <= 0 {
		qty = 1
	}
	if _, err := s.Store.EnsureUser(ctx, phone, name); err != nil {
		return nil, nil, err
	}
	p, err := s.Catalog.GetProduct(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	u, err := s.Store.DebitPurchase(ctx, phone, ledger.PurchaseItem{
		Code:  p.Code,
		Name:  p.Name,
		Price: p.Price,
		Qty:   qty,
	})
	if err != nil {
		return nil, nil, err
	}

	s.publish(s.PaidPub, EventOrderPaid, phone, OrderPaidPayload{
		Phone:       phone,
		ProductCode: p.Code,
		ProductName: p.Name,
		Qty:         qty,
		Total:       p.Price * int64(qty),
	})
	return u, p, nil
}

// BuyQR: pembelian bayar-per-order via QRIS. Bentuknya sama dengan topup —
// PendingTx (kind=purchase, plus product_code & qty) dipersist sebelum call
// gateway, jadi reconciler bisa melakukan pembukuan simetris.
func (s *Service) BuyQR(ctx context.Context, phone, name, code string, qty int) (*tripay.CheckoutInfo, string, *catalog.Product, error) {
	if qty <= 0 {
		qty = 1
	}
	if _, err := s.Store.EnsureUser(ctx, phone, name); err != nil {
		return nil, "", nil, err
	}
	p, err := s.Catalog.GetProduct(ctx, code)
	if err != nil {
		return nil, "", nil, err
	}

	amount := p.Price * int64(qty)
	ref := fmt.Sprintf("BUY-%s-%s-%s", code, phone, nonce())
	err = s.Store.CreatePendingTx(ctx, ledger.PendingTx{
		MerchantRef: ref,
		Phone:       phone,
		Name:        name,
		Kind:        ledger.KindPurchase,
		ProductCode: p.Code,
		Qty:         qty,
		Amount:      amount,
		Status:      ledger.StatusPending,
	})
	if err != nil {
		return nil, "", nil, err
	}

	info, err := s.Gateway.CreateTransaction(ctx, tripay.TxRequest{
		MerchantRef:   ref,
		Amount:        amount,
		CustomerName:  name,
		CustomerPhone: phone,
		ProductName:   p.Name,
		Qty:           qty,
	})
	if err != nil {
		return nil, ref, nil, err
	}
	return info, ref, p, nil
}

// Callback adalah payload notifikasi status dari gateway.
type Callback struct {
	Status      string `json:"status"`
	MerchantRef string `json:"merchant_ref"`
	Amount      int64  `json:"amount"`
}

type ReconcileResult struct {
	Accepted  bool // ack ke gateway ({"success": ...})
	Settled   bool // settlement efektif pertama
	Duplicate bool // sudah PAID sebelumnya, no-op
}

// Reconcile memproses notifikasi settlement tepat sekali.
// Kredit selalu pakai amount yg TERSIMPAN di PendingTx, bukan amount dari
// callback — notifikasi yg dipalsukan/korup tidak bisa menggelembungkan kredit.
func (s *Service) Reconcile(ctx context.Context, cb Callback) (ReconcileResult, error) {
	if cb.MerchantRef == "" {
		// tanpa ref tidak ada yg bisa dicocokkan; jangan bikin gateway retry terus
		return ReconcileResult{Accepted: false}, nil
	}

	p, err := s.Store.GetPendingTx(ctx, cb.MerchantRef)
	if errors.Is(err, ledger.ErrRefNotFound) {
		// notifikasi asing/basi — ack tanpa mutasi
		return ReconcileResult{Accepted: true}, nil
	}
	if err != nil {
		return ReconcileResult{}, err
	}

	if !strings.EqualFold(cb.Status, "PAID") {
		// UNPAID/EXPIRED/FAILED dsb: diterima, tidak ada mutasi
		return ReconcileResult{Accepted: true}, nil
	}

	var already bool
	switch p.Kind {
	case ledger.KindPurchase:
		item := ledger.PurchaseItem{Code: p.ProductCode, Name: p.ProductCode, Qty: p.Qty}
		if prod, perr := s.Catalog.GetProduct(ctx, p.ProductCode); perr == nil {
			item.Name = prod.Name
		}
		already, err = s.Store.SettlePurchase(ctx, cb.MerchantRef, item)
	default:
		_, already, err = s.Store.SettleTopup(ctx, cb.MerchantRef)
	}
	if err != nil {
		return ReconcileResult{}, err
	}
	if already {
		return ReconcileResult{Accepted: true, Duplicate: true}, nil
	}

	s.publish(s.SettledPub, EventPaymentSettled, cb.MerchantRef, PaymentSettledPayload{
		MerchantRef: p.MerchantRef,
		Phone:       p.Phone,
		Kind:        string(p.Kind),
		ProductCode: p.ProductCode,
		Qty:         p.Qty,
		Amount:      p.Amount,
	})
	return ReconcileResult{Accepted: true, Settled: true}, nil
}

func (s *Service) publish(pub Publisher, eventType, correlationID string, payload any) {
	if pub == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	pub.Publish(PartitionKey(correlationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	log.Printf("event published: type=%s ref=%s", eventType, correlationID)
}

func nonce() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}
