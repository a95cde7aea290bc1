package tripay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Signature menghitung tanda tangan create-transaction Tripay:
// HMAC-SHA256 atas merchant_code + merchant_ref + amount (desimal),
// keyed private key. Fungsi murni — input sama selalu hasil sama,
// kalau tidak verifikasi di sisi gateway gagal.
func Signature(merchantCode, merchantRef string, amount int64, privateKey string) string {
	mac := hmac.New(sha256.New, []byte(privateKey))
	mac.Write([]byte(merchantCode + merchantRef + strconv.FormatInt(amount, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidCallbackSignature membandingkan X-Callback-Signature dengan
// HMAC-SHA256 atas body mentah. Pemanggil hanya me-log mismatch sebagai
// warning; pemrosesan callback tetap jalan.
func ValidCallbackSignature(secret string, rawBody []byte, header string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(header))
}
