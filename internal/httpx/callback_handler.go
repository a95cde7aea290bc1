package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/vanzzsky/wa-autoorder/internal/billing"
	"github.com/vanzzsky/wa-autoorder/internal/redisx"
	"github.com/vanzzsky/wa-autoorder/internal/tripay"
)

// CallbackHandler menerima notifikasi status pembayaran dari Tripay.
// Redis cuma fast-path dedup; kebenaran idempotensi ada di store.
type CallbackHandler struct {
	Billing *billing.Service
	Redis   *redis.Client
	Secret  string
}

func (h *CallbackHandler) Register(r *chi.Mux) {
	r.Post("/payment/callback", h.handleCallback)
}

type callbackResp struct {
	Success bool `json:"success"`
}

func (h *CallbackHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, callbackResp{Success: false})
		return
	}

	// Mismatch signature cuma warning, callback tetap diproses.
	// Kompatibel dengan deployment lama yg belum set secret di gateway.
	sig := r.Header.Get("X-Callback-Signature")
	if !tripay.ValidCallbackSignature(h.Secret, raw, sig) {
		log.Printf("callback signature mismatch (header=%q), tetap diproses", sig)
	}

	var cb billing.Callback
	if err := json.Unmarshal(raw, &cb); err != nil {
		writeJSON(w, http.StatusBadRequest, callbackResp{Success: false})
		return
	}

	// fast-path: settlement yg sudah pernah diproses
	if cb.MerchantRef != "" {
		dkey := fmt.Sprintf(redisx.KeySettled, cb.MerchantRef)
		if ok, _ := redisx.Exists(r.Context(), h.Redis, dkey); ok {
			writeJSON(w, http.StatusOK, callbackResp{Success: true})
			return
		}
	}

	res, err := h.Billing.Reconcile(r.Context(), cb)
	if err != nil {
		log.Printf("reconcile %s: %v", cb.MerchantRef, err)
		writeJSON(w, http.StatusInternalServerError, callbackResp{Success: false})
		return
	}

	if res.Settled || res.Duplicate {
		dkey := fmt.Sprintf(redisx.KeySettled, cb.MerchantRef)
		_ = h.Redis.Set(r.Context(), dkey, "1", redisx.TTLSettled).Err()
		_ = h.Redis.Set(r.Context(),
			fmt.Sprintf(redisx.KeyPendingStatus, cb.MerchantRef),
			`{"status":"PAID"}`, redisx.TTLStatusCache).Err()
	}

	writeJSON(w, http.StatusOK, callbackResp{Success: res.Accepted})
}
