package tripay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrGateway: request ke gateway gagal (status non-2xx atau error transport).
// Tidak ada retry; pemanggil boleh mengulang dengan merchant_ref baru.
var ErrGateway = errors.New("tripay gateway error")

type Client struct {
	BaseURL      string
	APIKey       string
	PrivateKey   string
	MerchantCode string
	Method       string // default QRIS
	CallbackURL  string
	ReturnURL    string

	HTTP *http.Client
}

func NewClient(baseURL, apiKey, privateKey, merchantCode, method, callbackURL, returnURL string) *Client {
	return &Client{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		PrivateKey:   privateKey,
		MerchantCode: merchantCode,
		Method:       method,
		CallbackURL:  callbackURL,
		ReturnURL:    returnURL,
		HTTP:         &http.Client{Timeout: 30 * time.Second},
	}
}

type TxRequest struct {
	MerchantRef   string
	Amount        int64
	CustomerName  string
	CustomerPhone string
	ProductName   string
	Qty           int
}

type CheckoutInfo struct {
	CheckoutURL string
	Reference   string
}

type orderItem struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type createBody struct {
	Method        string      `json:"method"`
	MerchantRef   string      `json:"merchant_ref"`
	Amount        int64       `json:"amount"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	CustomerPhone string      `json:"customer_phone"`
	OrderItems    []orderItem `json:"order_items"`
	CallbackURL   string      `json:"callback_url,omitempty"`
	ReturnURL     string      `json:"return_url,omitempty"`
	ExpiredTime   int64       `json:"expired_time"`
	Signature     string      `json:"signature"`
}

type createResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
		Reference   string `json:"reference"`
	} `json:"data"`
}

// CreateTransaction daftarkan transaksi baru di Tripay dan kembalikan
// link checkout + reference gateway.
func (c *Client) CreateTransaction(ctx context.Context, req TxRequest) (*CheckoutInfo, error) {
	qty := req.Qty
	if qty <= 0 {
		qty = 1
	}
	body := createBody{
		Method:        c.Method,
		MerchantRef:   req.MerchantRef,
		Amount:        req.Amount,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerPhone + "@wa.local",
		CustomerPhone: req.CustomerPhone,
		OrderItems: []orderItem{{
			SKU:      req.MerchantRef,
			Name:     req.ProductName,
			Price:    req.Amount / int64(qty),
			Quantity: qty,
		}},
		CallbackURL: c.CallbackURL,
		ReturnURL:   c.ReturnURL,
		ExpiredTime: time.Now().Add(24 * time.Hour).Unix(),
		Signature:   Signature(c.MerchantCode, req.MerchantRef, req.Amount, c.PrivateKey),
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/transaction/create", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrGateway, resp.StatusCode, raw)
	}

	var out createResp
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrGateway, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("%w: %s", ErrGateway, out.Message)
	}
	return &CheckoutInfo{CheckoutURL: out.Data.CheckoutURL, Reference: out.Data.Reference}, nil
}
