package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vanzzsky/wa-autoorder/internal/bot"
	"github.com/vanzzsky/wa-autoorder/internal/catalog"
	"github.com/vanzzsky/wa-autoorder/internal/ledger"
)

// WebhookHandler: pintu masuk pesan dari collaborator messaging.
// Verifikasi webhook & pengiriman balasan ada di sisi collaborator.
type WebhookHandler struct {
	Bot     *bot.Handler
	Store   ledger.Store
	Catalog catalog.Repo
}

func (h *WebhookHandler) Register(r *chi.Mux) {
	r.Post("/wa/webhook", h.handleMessage)
	r.Get("/stats", h.handleStats)
	r.Get("/products", h.handleProducts)
}

type inboundMsg struct {
	Phone   string `json:"phone"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (h *WebhookHandler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req inboundMsg
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing phone"})
		return
	}

	reply := h.Bot.Handle(r.Context(), req.Phone, req.Name, req.Message)
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *WebhookHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Store.GetStats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *WebhookHandler) handleProducts(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Catalog.ListCategories(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	out := make([]map[string]any, 0, len(cats))
	for _, c := range cats {
		ps, err := h.Catalog.ListByCategory(r.Context(), c.ID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		out = append(out, map[string]any{"category": c, "products": ps})
	}
	writeJSON(w, http.StatusOK, out)
}
