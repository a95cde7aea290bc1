// Package notify mengirim pesan WA keluar lewat collaborator messaging
// dan mengonsumsi event settlement utk notifikasi pembeli/admin.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

type Sender struct {
	URL  string // endpoint collaborator; kosong = log saja (mode dev)
	HTTP *http.Client
}

func NewSender(url string) *Sender {
	return &Sender{URL: url, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

type outboundMsg struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (s *Sender) SendText(ctx context.Context, phone, text string) error {
	if s.URL == "" {
		log.Printf("wa-send (dry-run) to=%s: %s", phone, text)
		return nil
	}

	b, err := json.Marshal(outboundMsg{Phone: phone, Message: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("wa-send status %d", resp.StatusCode)
	}
	return nil
}
