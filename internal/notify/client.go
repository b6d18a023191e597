// Package notify forwards new contact leads to the agency's notification
// service so sales hears about them without polling the dashboard.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/psds-microservice/portal-service/internal/model"
)

// Client posts leads to the notification service (best-effort, never blocks
// the API).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client. With an empty baseURL every call is a no-op.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// LeadPayload is the body of POST /notify/lead.
type LeadPayload struct {
	ContactID int64  `json:"contact_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Company   string `json:"company"`
	Message   string `json:"message"`
	Status    string `json:"status"`
}

// NotifyLead sends one contact to the notification service.
func (c *Client) NotifyLead(ctx context.Context, contact *model.Contact) {
	if c.baseURL == "" {
		return
	}
	payload := LeadPayload{
		ContactID: int64(contact.ID),
		Name:      contact.Name,
		Email:     contact.Email,
		Company:   contact.Company,
		Message:   contact.Message,
		Status:    string(contact.Status),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("notify: marshal: %v", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notify/lead", bytes.NewReader(body))
	if err != nil {
		log.Printf("notify: new request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("notify: request: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("notify: status %d for contact %d", resp.StatusCode, contact.ID)
	}
}

// NotifyLeadAsync runs NotifyLead in its own goroutine.
func (c *Client) NotifyLeadAsync(contact *model.Contact) {
	if c.baseURL == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.NotifyLead(ctx, contact)
	}()
}
