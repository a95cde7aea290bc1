package redisx

import "time"

const (
	// Dedup settlement callback: settle:{merchant_ref} -> "1"
	KeySettled = "settle:%s"

	// Cache status transaksi pending: pendingtx:{merchant_ref} -> {"status": "..."}
	KeyPendingStatus = "pendingtx:%s"

	// Dedup event consumer: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Cache teks katalog yg sudah dirender: catalog:{category_id}
	KeyCatalogText = "catalog:%s"
)

var (
	TTLSettled     = 48 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLCatalog     = 10 * time.Minute
)
