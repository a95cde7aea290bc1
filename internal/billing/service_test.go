package billing

import (
	"context"
	"fmt"
	"strings"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanzzsky/wa-autoorder/internal/catalog"
	"github.com/vanzzsky/wa-autoorder/internal/ledger"
	"github.com/vanzzsky/wa-autoorder/internal/tripay"
)

type fakeGateway struct {
	calls []tripay.TxRequest
	fail  bool
}

func (g *fakeGateway) CreateTransaction(_ context.Context, req tripay.TxRequest) (*tripay.CheckoutInfo, error) {
	g.calls = append(g.calls, req)
	if g.fail {
		return nil, fmt.Errorf("%w: status 500", tripay.ErrGateway)
	}
	return &tripay.CheckoutInfo{
		CheckoutURL: "https://tripay.example/checkout/" + req.MerchantRef,
		Reference:   "REF-" + req.MerchantRef,
	}, nil
}

type recorderPub struct{ values [][]byte }

func (p *recorderPub) Publish(_, value []byte, _ ...kafkago.Header) {
	p.values = append(p.values, value)
}

type fixture struct {
	svc      *Service
	store    *ledger.MemStore
	gw       *fakeGateway
	settled  *recorderPub
	paid     *recorderPub
}

func newFixture() *fixture {
	store := ledger.NewMemStore()
	cat := catalog.NewMemRepo()
	cat.PutCategory(catalog.Category{ID: "1", Name: "Streaming"})
	cat.PutProduct(catalog.Product{
		Code: "NETFLIX1", Name: "Netflix 1 Bulan", Price: 15000,
		Stock: 10, CategoryID: "1", Active: true,
	})
	gw := &fakeGateway{}
	settled := &recorderPub{}
	paid := &recorderPub{}
	return &fixture{
		svc: &Service{
			Store: store, Catalog: cat, Gateway: gw,
			SettledPub: settled, PaidPub: paid,
			ServiceName: "test", MinTopup: 5000,
		},
		store: store, gw: gw, settled: settled, paid: paid,
	}
}

// topupPaid: jalan pintas utk isi saldo user di test
func (f *fixture) topupPaid(t *testing.T, phone string, amount int64) {
	t.Helper()
	ctx := context.Background()
	_, ref, err := f.svc.Topup(ctx, phone, "Budi", amount)
	require.NoError(t, err)
	res, err := f.svc.Reconcile(ctx, Callback{Status: "PAID", MerchantRef: ref, Amount: amount})
	require.NoError(t, err)
	require.True(t, res.Settled)
}

func TestTopupBelowMinimum(t *testing.T) {
	f := newFixture()
	_, _, err := f.svc.Topup(context.Background(), "628123", "Budi", 4999)
	assert.ErrorIs(t, err, ErrTopupTooSmall)
	assert.Empty(t, f.gw.calls) // tidak ada PendingTx maupun call gateway
}

func TestTopupCreatesPendingThenCallsGateway(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	info, ref, err := f.svc.Topup(ctx, "628123", "Budi", 20000)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "TOPUP-628123-"))
	assert.Contains(t, info.CheckoutURL, ref)

	p, err := f.store.GetPendingTx(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, p.Status)
	assert.Equal(t, int64(20000), p.Amount)
	assert.Equal(t, ledger.KindTopup, p.Kind)

	require.Len(t, f.gw.calls, 1)
	assert.Equal(t, ref, f.gw.calls[0].MerchantRef)
	assert.Equal(t, int64(20000), f.gw.calls[0].Amount)
}

func TestTopupGatewayFailureLeavesPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.gw.fail = true

	_, ref, err := f.svc.Topup(ctx, "628123", "Budi", 20000)
	assert.ErrorIs(t, err, tripay.ErrGateway)
	require.NotEmpty(t, ref)

	// record tetap ada utk rekonsiliasi manual / callback susulan
	p, err := f.store.GetPendingTx(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, p.Status)
}

func TestReconcileTopupExactlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, ref, err := f.svc.Topup(ctx, "628123", "Budi", 20000)
	require.NoError(t, err)

	// amount callback sengaja digelembungkan; kredit harus pakai amount tersimpan
	cb := Callback{Status: "PAID", MerchantRef: ref, Amount: 999999}

	res, err := f.svc.Reconcile(ctx, cb)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.True(t, res.Settled)

	res, err = f.svc.Reconcile(ctx, cb)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.True(t, res.Duplicate)
	assert.False(t, res.Settled)

	u, err := f.store.GetUser(ctx, "628123")
	require.NoError(t, err)
	assert.Equal(t, int64(20000), u.Balance) // kredit tepat sekali

	assert.Len(t, f.settled.values, 1) // event settlement cuma utk aplikasi pertama
}

func TestReconcileEdgeCases(t *testing.T) {
	ctx := context.Background()

	t.Run("merchant_ref kosong", func(t *testing.T) {
		f := newFixture()
		res, err := f.svc.Reconcile(ctx, Callback{Status: "PAID", Amount: 20000})
		require.NoError(t, err)
		assert.False(t, res.Accepted)
	})

	t.Run("ref tak dikenal", func(t *testing.T) {
		f := newFixture()
		res, err := f.svc.Reconcile(ctx, Callback{Status: "PAID", MerchantRef: "TOPUP-999-zzz", Amount: 5000})
		require.NoError(t, err)
		assert.True(t, res.Accepted)
		assert.False(t, res.Settled)
		assert.Empty(t, f.settled.values)
	})

	t.Run("status bukan PAID", func(t *testing.T) {
		f := newFixture()
		_, ref, err := f.svc.Topup(ctx, "628123", "Budi", 20000)
		require.NoError(t, err)

		res, err := f.svc.Reconcile(ctx, Callback{Status: "EXPIRED", MerchantRef: ref, Amount: 20000})
		require.NoError(t, err)
		assert.True(t, res.Accepted)
		assert.False(t, res.Settled)

		p, err := f.store.GetPendingTx(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusPending, p.Status)
	})
}

func TestBuyNow(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.topupPaid(t, "628123", 20000)

	u, p, err := f.svc.BuyNow(ctx, "628123", "Budi", "NETFLIX1", 1)
	require.NoError(t, err)
	assert.Equal(t, "NETFLIX1", p.Code)
	assert.Equal(t, int64(5000), u.Balance)
	assert.Equal(t, int64(15000), u.TotalSpent)
	require.Len(t, u.Orders, 1)
	assert.Equal(t, int64(15000), u.Orders[0].PricePaid)

	st, err := f.store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.TotalSold)
	assert.Equal(t, int64(15000), st.TotalAmount)

	assert.Len(t, f.paid.values, 1)
}

func TestBuyNowInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.topupPaid(t, "628123", 10000)

	// 15000 x 2 = 30000 > 10000
	_, _, err := f.svc.BuyNow(ctx, "628123", "Budi", "NETFLIX1", 2)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	u, err := f.store.GetUser(ctx, "628123")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), u.Balance) // tanpa mutasi
	assert.Empty(t, u.Orders)
	assert.Empty(t, f.paid.values)
}

func TestBuyNowUnknownProduct(t *testing.T) {
	f := newFixture()
	_, _, err := f.svc.BuyNow(context.Background(), "628123", "Budi", "GAIB", 1)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestBuyQRPersistsPendingBeforeGateway(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	info, ref, p, err := f.svc.BuyQR(ctx, "628123", "Budi", "NETFLIX1", 2)
	require.NoError(t, err)
	assert.Equal(t, "NETFLIX1", p.Code)
	assert.True(t, strings.HasPrefix(ref, "BUY-NETFLIX1-628123-"))
	assert.Contains(t, info.CheckoutURL, ref)

	pt, err := f.store.GetPendingTx(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, ledger.KindPurchase, pt.Kind)
	assert.Equal(t, "NETFLIX1", pt.ProductCode)
	assert.Equal(t, 2, pt.Qty)
	assert.Equal(t, int64(30000), pt.Amount)
	assert.Equal(t, ledger.StatusPending, pt.Status)
}

func TestReconcilePurchaseSettlement(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, ref, _, err := f.svc.BuyQR(ctx, "628123", "Budi", "NETFLIX1", 2)
	require.NoError(t, err)

	cb := Callback{Status: "PAID", MerchantRef: ref, Amount: 30000}
	res, err := f.svc.Reconcile(ctx, cb)
	require.NoError(t, err)
	assert.True(t, res.Settled)

	// pengiriman kedua: no-op
	res, err = f.svc.Reconcile(ctx, cb)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	u, err := f.store.GetUser(ctx, "628123")
	require.NoError(t, err)
	assert.Equal(t, int64(0), u.Balance) // bayar via QR, saldo tak ikut
	assert.Equal(t, int64(30000), u.TotalSpent)
	require.Len(t, u.Orders, 1)
	assert.Equal(t, "Netflix 1 Bulan", u.Orders[0].ProductName)

	st, err := f.store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.TotalSold)
	assert.Equal(t, int64(30000), st.TotalAmount)
	assert.Len(t, f.settled.values, 1)
}
