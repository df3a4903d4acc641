package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client talks to the brokerage's JSON API. Orders are a single attempt:
// the venue either accepts or rejects, and the caller decides what a
// rejection means.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

func New(baseURL, token string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type Quote struct {
	Symbol string  `json:"symbol"`
	Ask    float64 `json:"ask"`
	Bid    float64 `json:"bid"`
}

type Position struct {
	Symbol string  `json:"symbol"`
	Volume float64 `json:"volume"`
	Side   string  `json:"side"`
}

type orderRequest struct {
	Symbol string  `json:"symbol"`
	Side   string  `json:"side"`
	Type   string  `json:"type"`
	Volume float64 `json:"volume"`
	Price  float64 `json:"price"`
}

type orderResponse struct {
	Accepted bool   `json:"accepted"`
	OrderID  string `json:"order_id"`
	Reason   string `json:"reason"`
}

func (c *Client) Quote(ctx context.Context, symbol string) (Quote, error) {
	var quote Quote
	err := c.post(ctx, "/v1/quote", map[string]string{"symbol": symbol}, &quote)
	return quote, err
}

func (c *Client) SubmitBuy(ctx context.Context, symbol string, volume, price float64) error {
	return c.submitOrder(ctx, orderRequest{Symbol: symbol, Side: "buy", Type: "market", Volume: volume, Price: price})
}

func (c *Client) SubmitSell(ctx context.Context, symbol string, volume, price float64) error {
	return c.submitOrder(ctx, orderRequest{Symbol: symbol, Side: "sell", Type: "market", Volume: volume, Price: price})
}

func (c *Client) submitOrder(ctx context.Context, order orderRequest) error {
	var resp orderResponse
	if err := c.post(ctx, "/v1/orders", order, &resp); err != nil {
		return err
	}
	if !resp.Accepted {
		return fmt.Errorf("order rejected: %s", rejectionReason(resp.Reason))
	}
	return nil
}

func (c *Client) ClosePosition(ctx context.Context, symbol string) error {
	var resp orderResponse
	if err := c.post(ctx, "/v1/positions/close", map[string]string{"symbol": symbol}, &resp); err != nil {
		return err
	}
	if !resp.Accepted {
		return fmt.Errorf("close rejected: %s", rejectionReason(resp.Reason))
	}
	return nil
}

func (c *Client) OpenPositions(ctx context.Context) ([]Position, error) {
	var positions []Position
	if err := c.post(ctx, "/v1/positions", struct{}{}, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

func (c *Client) post(ctx context.Context, path string, req, out interface{}) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	url := c.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func rejectionReason(reason string) string {
	if reason == "" {
		return "no reason given"
	}
	return reason
}
