package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore: implementasi Store di Postgres. Semua read-modify-write jalan
// dalam satu transaksi dengan SELECT ... FOR UPDATE per baris, jadi dua
// request yg menyentuh user/ref yg sama tidak bisa interleave.
type PGStore struct{ DB *pgxpool.Pool }

func NewPGStore(db *pgxpool.Pool) *PGStore { return &PGStore{DB: db} }

func (s *PGStore) EnsureUser(ctx context.Context, phone, name string) (*User, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// xmax = 0 berarti baris baru di-insert (bukan hasil conflict-update)
	var inserted bool
	err = tx.QueryRow(ctx, `
		INSERT INTO users(phone, name) VALUES ($1, $2)
		ON CONFLICT (phone) DO UPDATE SET name = EXCLUDED.name
		RETURNING (xmax = 0)`, phone, name).Scan(&inserted)
	if err != nil {
		return nil, err
	}
	if inserted {
		if _, err := tx.Exec(ctx, `UPDATE stats SET total_users = total_users + 1 WHERE id = 1`); err != nil {
			return nil, err
		}
	}

	u, err := scanUser(ctx, tx, phone)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *PGStore) GetUser(ctx context.Context, phone string) (*User, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	u, err := scanUser(ctx, tx, phone)
	if err != nil {
		return nil, err
	}
	return u, tx.Commit(ctx)
}

func (s *PGStore) CreatePendingTx(ctx context.Context, p PendingTx) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO pending_tx(merchant_ref, phone, name, kind, product_code, qty, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'PENDING')`,
		p.MerchantRef, p.Phone, p.Name, p.Kind, p.ProductCode, p.Qty, p.Amount)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateRef
	}
	return err
}

func (s *PGStore) GetPendingTx(ctx context.Context, merchantRef string) (*PendingTx, error) {
	var p PendingTx
	err := s.DB.QueryRow(ctx, `
		SELECT merchant_ref, phone, name, kind, product_code, qty, amount, status, created_at, paid_at
		FROM pending_tx WHERE merchant_ref = $1`, merchantRef).
		Scan(&p.MerchantRef, &p.Phone, &p.Name, &p.Kind, &p.ProductCode, &p.Qty,
			&p.Amount, &p.Status, &p.CreatedAt, &p.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRefNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PGStore) SettleTopup(ctx context.Context, merchantRef string) (int64, bool, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	phone, amount, already, err := lockPending(ctx, tx, merchantRef)
	if err != nil || already {
		return 0, already, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE pending_tx SET status = 'PAID', paid_at = now() WHERE merchant_ref = $1`, merchantRef); err != nil {
		return 0, false, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE users SET balance = balance + $1 WHERE phone = $2`, amount, phone); err != nil {
		return 0, false, err
	}
	return amount, false, tx.Commit(ctx)
}

func (s *PGStore) SettlePurchase(ctx context.Context, merchantRef string, item PurchaseItem) (bool, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	phone, amount, already, err := lockPending(ctx, tx, merchantRef)
	if err != nil || already {
		return already, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE pending_tx SET status = 'PAID', paid_at = now() WHERE merchant_ref = $1`, merchantRef); err != nil {
		return false, err
	}
	// pembayaran via QR: saldo tidak tersentuh, hanya histori + total_spent
	if _, err := tx.Exec(ctx, `
		UPDATE users SET total_spent = total_spent + $1 WHERE phone = $2`, amount, phone); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_records(phone, product_code, product_name, price_paid)
		VALUES ($1, $2, $3, $4)`, phone, item.Code, item.Name, amount); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE stats SET total_sold = total_sold + 1, total_amount = total_amount + $1 WHERE id = 1`, amount); err != nil {
		return false, err
	}
	return false, tx.Commit(ctx)
}

func (s *PGStore) DebitPurchase(ctx context.Context, phone string, item PurchaseItem) (*User, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var balance int64
	err = tx.QueryRow(ctx, `SELECT balance FROM users WHERE phone = $1 FOR UPDATE`, phone).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	total := item.Total()
	if balance < total {
		return nil, ErrInsufficientBalance // rollback via defer, tanpa mutasi
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users SET balance = balance - $1, total_spent = total_spent + $1 WHERE phone = $2`,
		total, phone); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_records(phone, product_code, product_name, price_paid)
		VALUES ($1, $2, $3, $4)`, phone, item.Code, item.Name, total); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE stats SET total_sold = total_sold + 1, total_amount = total_amount + $1 WHERE id = 1`, total); err != nil {
		return nil, err
	}

	u, err := scanUser(ctx, tx, phone)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *PGStore) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.DB.QueryRow(ctx, `SELECT total_sold, total_amount, total_users FROM stats WHERE id = 1`).
		Scan(&st.TotalSold, &st.TotalAmount, &st.TotalUsers)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// lockPending ambil baris pending FOR UPDATE; already=true jika sudah PAID.
func lockPending(ctx context.Context, tx pgx.Tx, merchantRef string) (phone string, amount int64, already bool, err error) {
	var status string
	err = tx.QueryRow(ctx, `
		SELECT phone, amount, status FROM pending_tx WHERE merchant_ref = $1 FOR UPDATE`, merchantRef).
		Scan(&phone, &amount, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, false, ErrRefNotFound
	}
	if err != nil {
		return "", 0, false, err
	}
	return phone, amount, status == string(StatusPaid), nil
}

func scanUser(ctx context.Context, tx pgx.Tx, phone string) (*User, error) {
	var u User
	err := tx.QueryRow(ctx, `
		SELECT phone, name, balance, total_spent, created_at FROM users WHERE phone = $1`, phone).
		Scan(&u.Phone, &u.Name, &u.Balance, &u.TotalSpent, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT product_code, product_name, price_paid, created_at
		FROM order_records WHERE phone = $1 ORDER BY created_at`, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r OrderRecord
		if err := rows.Scan(&r.ProductCode, &r.ProductName, &r.PricePaid, &r.CreatedAt); err != nil {
			return nil, err
		}
		u.Orders = append(u.Orders, r)
	}
	return &u, rows.Err()
}
