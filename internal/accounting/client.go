// internal/accounting/client.go
package accounting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/paynudge/reminder-backend/internal/model"
)

// CustomerRecord is a customer as reported by the external accounting source.
type CustomerRecord struct {
	ExternalID     string                `json:"external_id"`
	Name           string                `json:"name"`
	Phone          string                `json:"phone"`
	Email          string                `json:"email"`
	ContactPersons []model.ContactPerson `json:"contact_persons,omitempty"`
}

// InvoiceRecord is an invoice as reported by the external accounting source.
type InvoiceRecord struct {
	ExternalID         string    `json:"external_id"`
	CustomerExternalID string    `json:"customer_external_id"`
	TotalAmount        float64   `json:"total_amount"`
	AmountDue          float64   `json:"amount_due"`
	Currency           string    `json:"currency"`
	DueDate            time.Time `json:"due_date"`
	Status             string    `json:"status"`
}

// Client is the narrow interface over the external accounting system.
type Client interface {
	ListCustomers(ctx context.Context, orgID string) ([]CustomerRecord, error)
	ListInvoices(ctx context.Context, orgID string, dueDateMin, dueDateMax time.Time) ([]InvoiceRecord, error)
	GetInvoiceByID(ctx context.Context, orgID, externalID string) (*InvoiceRecord, error)
}

// HTTPClient talks to the accounting source's REST API with a bounded
// per-request timeout.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) ListCustomers(ctx context.Context, orgID string) ([]CustomerRecord, error) {
	var out struct {
		Customers []CustomerRecord `json:"customers"`
	}
	path := fmt.Sprintf("/orgs/%s/customers", url.PathEscape(orgID))
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Customers, nil
}

func (c *HTTPClient) ListInvoices(ctx context.Context, orgID string, dueDateMin, dueDateMax time.Time) ([]InvoiceRecord, error) {
	var out struct {
		Invoices []InvoiceRecord `json:"invoices"`
	}
	path := fmt.Sprintf("/orgs/%s/invoices", url.PathEscape(orgID))
	params := url.Values{}
	params.Set("due_date_min", dueDateMin.Format("2006-01-02"))
	params.Set("due_date_max", dueDateMax.Format("2006-01-02"))
	if err := c.getJSON(ctx, path, params, &out); err != nil {
		return nil, err
	}
	return out.Invoices, nil
}

func (c *HTTPClient) GetInvoiceByID(ctx context.Context, orgID, externalID string) (*InvoiceRecord, error) {
	var out InvoiceRecord
	path := fmt.Sprintf("/orgs/%s/invoices/%s", url.PathEscape(orgID), url.PathEscape(externalID))
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("accounting API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("accounting API returned %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("accounting API response decode failed: %w", err)
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
