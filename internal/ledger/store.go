package ledger

import "context"

// PurchaseItem membawa info produk yg dibutuhkan saat debit/settlement.
// Katalog tetap milik collaborator; ledger cuma menyalin code/nama/harga.
type PurchaseItem struct {
	Code  string
	Name  string
	Price int64 // harga satuan
	Qty   int
}

func (p PurchaseItem) Total() int64 { return p.Price * int64(p.Qty) }

// Store adalah antarmuka sempit ledger: get/put atomik per entitas.
// Implementasi: PGStore (produksi, row lock per baris) dan MemStore (test/dev).
type Store interface {
	// EnsureUser membuat user saat kontak pertama (total_users naik sekali),
	// atau me-refresh nama utk user lama.
	EnsureUser(ctx context.Context, phone, name string) (*User, error)
	GetUser(ctx context.Context, phone string) (*User, error)

	// CreatePendingTx menolak merchant_ref yg sudah pernah dipakai (ErrDuplicateRef).
	CreatePendingTx(ctx context.Context, tx PendingTx) error
	GetPendingTx(ctx context.Context, merchantRef string) (*PendingTx, error)

	// SettleTopup menandai PAID dan mengkredit saldo pemilik sebesar amount
	// yg TERSIMPAN (bukan dari callback). Panggilan kedua utk ref yg sama
	// mengembalikan already=true tanpa mutasi apa pun.
	SettleTopup(ctx context.Context, merchantRef string) (credited int64, already bool, err error)

	// SettlePurchase menandai PAID, menambah OrderRecord + total_spent pemilik,
	// dan menaikkan statistik global. Idempoten seperti SettleTopup.
	SettlePurchase(ctx context.Context, merchantRef string, item PurchaseItem) (already bool, err error)

	// DebitPurchase: cek-lalu-debit atomik dari saldo. Saldo kurang ->
	// ErrInsufficientBalance tanpa mutasi.
	DebitPurchase(ctx context.Context, phone string, item PurchaseItem) (*User, error)

	GetStats(ctx context.Context) (*Stats, error)
}
