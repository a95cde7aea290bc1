package ledger

import "time"

// Semua nominal uang dalam satuan minor (rupiah utuh, tanpa desimal).

type User struct {
	Phone      string        `json:"phone"`
	Name       string        `json:"name"`
	Balance    int64         `json:"balance"`
	TotalSpent int64         `json:"total_spent"`
	Orders     []OrderRecord `json:"orders"`
	CreatedAt  time.Time     `json:"created_at"`
}

type OrderRecord struct {
	ProductCode string    `json:"product_code"`
	ProductName string    `json:"product_name"`
	PricePaid   int64     `json:"price_paid"`
	CreatedAt   time.Time `json:"created_at"`
}

type TxKind string

const (
	KindTopup    TxKind = "topup"
	KindPurchase TxKind = "purchase"
)

type TxStatus string

const (
	StatusPending TxStatus = "PENDING"
	StatusPaid    TxStatus = "PAID"
)

// PendingTx adalah transaksi gateway yg menunggu settlement.
// Satu-satunya transisi status: PENDING -> PAID, sekali saja.
type PendingTx struct {
	MerchantRef string     `json:"merchant_ref"`
	Phone       string     `json:"phone"`
	Name        string     `json:"name"`
	Kind        TxKind     `json:"kind"`
	ProductCode string     `json:"product_code,omitempty"`
	Qty         int        `json:"qty,omitempty"`
	Amount      int64      `json:"amount"`
	Status      TxStatus   `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

type Stats struct {
	TotalSold   int64 `json:"total_sold"`
	TotalAmount int64 `json:"total_amount"`
	TotalUsers  int64 `json:"total_users"`
}
