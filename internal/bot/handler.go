// Package bot menerjemahkan pesan WA jadi aksi billing/katalog
// dan balik lagi jadi teks balasan.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/vanzzsky/wa-autoorder/internal/billing"
	"github.com/vanzzsky/wa-autoorder/internal/catalog"
	"github.com/vanzzsky/wa-autoorder/internal/ledger"
	"github.com/vanzzsky/wa-autoorder/internal/redisx"
	"github.com/vanzzsky/wa-autoorder/internal/tripay"
)

type Handler struct {
	Billing *billing.Service
	Catalog catalog.Repo
	Store   ledger.Store
	Redis   *redis.Client // cache teks katalog; error redis diabaikan, DB tetap kebenaran
}

// Handle: satu pesan masuk -> satu teks balasan. Intent case-insensitive.
func (h *Handler) Handle(ctx context.Context, phone, name, text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return h.menu()
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "menu", "help", "start":
		return h.menu()
	case "saldo":
		return h.saldo(ctx, phone, name)
	case "topup":
		return h.topup(ctx, phone, name, args)
	case "produk":
		return h.categories(ctx)
	case "buynow":
		return h.buyNow(ctx, phone, name, args)
	case "buyqr":
		return h.buyQR(ctx, phone, name, args)
	}

	// angka polos = pilih kategori
	if _, err := strconv.Atoi(cmd); err == nil {
		return h.products(ctx, cmd)
	}
	return "Perintah tidak dikenali. Ketik *menu* untuk daftar perintah."
}

func (h *Handler) menu() string {
	return strings.Join([]string{
		"*MENU*",
		"• saldo — cek saldo kamu",
		"• topup <nominal> — isi saldo via QRIS",
		"• produk — lihat katalog",
		"• buynow <kode> [jumlah] — beli pakai saldo",
		"• buyqr <kode> [jumlah] — beli bayar QRIS",
	}, "\n")
}

func (h *Handler) saldo(ctx context.Context, phone, name string) string {
	u, err := h.Store.EnsureUser(ctx, phone, name)
	if err != nil {
		return errServer
	}
	return fmt.Sprintf("Halo %s!\nSaldo: Rp%s\nTotal belanja: Rp%s\nRiwayat order: %d",
		u.Name, rupiah(u.Balance), rupiah(u.TotalSpent), len(u.Orders))
}

func (h *Handler) topup(ctx context.Context, phone, name string, args []string) string {
	if len(args) != 1 {
		return "Format: *topup <nominal>*\nContoh: topup 20000"
	}
	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || amount <= 0 {
		return "Nominal tidak valid. Contoh: topup 20000"
	}

	info, _, err := h.Billing.Topup(ctx, phone, name, amount)
	switch {
	case errors.Is(err, billing.ErrTopupTooSmall):
		return fmt.Sprintf("Minimal topup Rp%s ya.", rupiah(h.Billing.MinTopup))
	case errors.Is(err, tripay.ErrGateway):
		return errGateway
	case err != nil:
		return errServer
	}
	return fmt.Sprintf("Topup Rp%s dibuat!\nBayar di sini:\n%s\n\nSaldo masuk otomatis setelah pembayaran.",
		rupiah(amount), info.CheckoutURL)
}

func (h *Handler) categories(ctx context.Context) string {
	cats, err := h.Catalog.ListCategories(ctx)
	if err != nil {
		return errServer
	}
	if len(cats) == 0 {
		return "Katalog masih kosong."
	}
	var b strings.Builder
	b.WriteString("*KATALOG*\nBalas dengan nomor kategori:\n")
	for _, c := range cats {
		fmt.Fprintf(&b, "%s. %s\n", c.ID, c.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (h *Handler) products(ctx context.Context, categoryID string) string {
	key := fmt.Sprintf(redisx.KeyCatalogText, categoryID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			return s
		}
	}

	ps, err := h.Catalog.ListByCategory(ctx, categoryID)
	if err != nil {
		return errServer
	}
	if len(ps) == 0 {
		return "Kategori tidak ditemukan atau belum ada produk."
	}
	var b strings.Builder
	b.WriteString("*PRODUK*\n")
	for _, p := range ps {
		fmt.Fprintf(&b, "• %s — %s (Rp%s) stok %d\n", p.Code, p.Name, rupiah(p.Price), p.Stock)
		if p.Desc != "" {
			fmt.Fprintf(&b, "  %s\n", p.Desc)
		}
	}
	b.WriteString("\nBeli: *buynow <kode>* atau *buyqr <kode>*")
	out := b.String()

	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, out, redisx.TTLCatalog).Err()
	}
	return out
}

func (h *Handler) buyNow(ctx context.Context, phone, name string, args []string) string {
	code, qty, ok := parseBuyArgs(args)
	if !ok {
		return "Format: *buynow <kode> [jumlah]*\nContoh: buynow NETFLIX1 2"
	}

	u, p, err := h.Billing.BuyNow(ctx, phone, name, code, qty)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return "Produk tidak ditemukan. Cek kode di *produk* ya."
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "Saldo kamu tidak cukup. Isi dulu via *topup <nominal>*."
	case err != nil:
		return errServer
	}
	return fmt.Sprintf("Pembelian berhasil! 🎉\n%s x%d = Rp%s\nSisa saldo: Rp%s\n\nPesanan diproses admin maksimal 1x24 jam.",
		p.Name, qty, rupiah(p.Price*int64(qty)), rupiah(u.Balance))
}

func (h *Handler) buyQR(ctx context.Context, phone, name string, args []string) string {
	code, qty, ok := parseBuyArgs(args)
	if !ok {
		return "Format: *buyqr <kode> [jumlah]*\nContoh: buyqr NETFLIX1 2"
	}

	info, _, p, err := h.Billing.BuyQR(ctx, phone, name, code, qty)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return "Produk tidak ditemukan. Cek kode di *produk* ya."
	case errors.Is(err, tripay.ErrGateway):
		return errGateway
	case err != nil:
		return errServer
	}
	return fmt.Sprintf("Order %s x%d (Rp%s) dibuat!\nBayar di sini:\n%s\n\nPesanan diproses setelah pembayaran.",
		p.Name, qty, rupiah(p.Price*int64(qty)), info.CheckoutURL)
}

func parseBuyArgs(args []string) (code string, qty int, ok bool) {
	if len(args) < 1 || len(args) > 2 {
		return "", 0, false
	}
	code = strings.ToUpper(args[0])
	qty = 1
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return "", 0, false
		}
		qty = n
	}
	return code, qty, true
}

const (
	errServer  = "Lagi ada gangguan. Coba beberapa saat lagi ya."
	errGateway = "Gagal membuat transaksi pembayaran. Coba lagi nanti ya."
)

// rupiah: 1500000 -> "1.500.000"
func rupiah(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
