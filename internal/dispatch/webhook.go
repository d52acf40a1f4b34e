package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Event string

const (
	EventActivation    Event = "contract.activated"
	EventCancellation  Event = "contract.cancelled"
	EventHandover      Event = "contract.handover"
	EventReturn        Event = "contract.return"
	EventDepositRefund Event = "contract.deposit_refund"
)

// Payload is the body sent for every contract event.
type Payload struct {
	Event          Event     `json:"event"`
	ContractID     string    `json:"contract_id"`
	ContractNumber string    `json:"contract_number"`
	TenantName     string    `json:"tenant_name,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	PriorStatus    string    `json:"prior_status,omitempty"`
}

type WebhookClient struct {
	httpClient *http.Client
}

func NewWebhookClient(timeout time.Duration) *WebhookClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookClient{httpClient: &http.Client{Timeout: timeout}}
}

func (c *WebhookClient) Post(ctx context.Context, url string, payload Payload) error {
	return postJSON(ctx, c.httpClient, url, payload)
}

type FolderClient struct {
	url        string
	httpClient *http.Client
}

func NewFolderClient(url string, timeout time.Duration) *FolderClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FolderClient{url: url, httpClient: &http.Client{Timeout: timeout}}
}

type renameRequest struct {
	ContractID string `json:"contract_id"`
	From       string `json:"from"`
	To         string `json:"to"`
}

func (c *FolderClient) Rename(ctx context.Context, contractID, from, to string) error {
	return postJSON(ctx, c.httpClient, c.url, renameRequest{ContractID: contractID, From: from, To: to})
}

func postJSON(ctx context.Context, client *http.Client, url string, body any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s responded with status %d", url, resp.StatusCode)
	}
	return nil
}
