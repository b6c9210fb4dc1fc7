package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	commonhttp "loan-funnel/internal/common/http"
)

const defaultBaseURL = "https://api.hubapi.com"

// CRMClient talks to the HubSpot CRM and custom behavioral events APIs.
type CRMClient struct {
	accessToken string
	baseURL     string
	httpClient  *commonhttp.Client
}

// Contact is the lead written to HubSpot after a submission.
type Contact struct {
	Email     string `json:"email"`
	FirstName string `json:"firstname,omitempty"`
	LastName  string `json:"lastname,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Source    string `json:"hs_lead_status,omitempty"`
}

// Event is a custom behavioral event keyed by the visitor's email.
type Event struct {
	EventName  string                 `json:"eventName"`
	Email      string                 `json:"email,omitempty"`
	OccurredAt string                 `json:"occurredAt,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

type createContactResponse struct {
	ID string `json:"id"`
}

func NewCRMClient(baseURL, accessToken string, timeout time.Duration) *CRMClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CRMClient{
		accessToken: accessToken,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  commonhttp.NewClient(timeout),
	}
}

func (c *CRMClient) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.accessToken}
}

// SendEvent posts one behavioral event.
func (c *CRMClient) SendEvent(ctx context.Context, event *Event) error {
	url := fmt.Sprintf("%s/events/v3/send", c.baseURL)

	resp, err := c.httpClient.DoJSON(ctx, http.MethodPost, url, c.headers(), event)
	if err != nil {
		return fmt.Errorf("failed to send event %s: %w", event.EventName, err)
	}
	if !resp.OK() {
		return fmt.Errorf("failed to send event %s (status %d): %s", event.EventName, resp.StatusCode, string(resp.Body))
	}
	return nil
}

// CreateContact creates a contact and returns its HubSpot id.
func (c *CRMClient) CreateContact(ctx context.Context, contact *Contact) (string, error) {
	url := fmt.Sprintf("%s/crm/v3/objects/contacts", c.baseURL)

	payload := map[string]interface{}{"properties": contact}

	resp, err := c.httpClient.DoJSON(ctx, http.MethodPost, url, c.headers(), payload)
	if err != nil {
		return "", fmt.Errorf("failed to create contact: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to create contact (status %d): %s", resp.StatusCode, string(resp.Body))
	}

	var created createContactResponse
	if err := json.Unmarshal(resp.Body, &created); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("no contact id in response")
	}

	return created.ID, nil
}
