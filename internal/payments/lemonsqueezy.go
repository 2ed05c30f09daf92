package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jetsocket/backend/internal/config"
)

const jsonAPIContentType = "application/vnd.api+json"

// CheckoutParams describe the checkout session to create.
type CheckoutParams struct {
	VariantID   string
	UserEmail   string
	UserID      string
	RedirectURL string
}

// Session is a hosted checkout page.
type Session struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

// ProcessorError carries the processor's own error text. Error returns it
// unchanged so handlers can surface it verbatim.
type ProcessorError struct {
	StatusCode int
	Message    string
}

func (e *ProcessorError) Error() string {
	return e.Message
}

// Client talks to the LemonSqueezy REST API.
type Client struct {
	apiKey     string
	baseURL    string
	storeID    string
	httpClient *http.Client
}

func NewClient(cfg config.PaymentsConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		storeID: cfg.StoreID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Configured reports whether checkouts can be created.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != "" && c.storeID != ""
}

type checkoutRequest struct {
	Data checkoutRequestData `json:"data"`
}

type checkoutRequestData struct {
	Type          string                  `json:"type"`
	Attributes    checkoutAttributes      `json:"attributes"`
	Relationships map[string]relationship `json:"relationships"`
}

type checkoutAttributes struct {
	CheckoutData   checkoutData   `json:"checkout_data"`
	ProductOptions productOptions `json:"product_options"`
}

type checkoutData struct {
	Email  string            `json:"email,omitempty"`
	Custom map[string]string `json:"custom,omitempty"`
}

type productOptions struct {
	RedirectURL string `json:"redirect_url,omitempty"`
}

type relationship struct {
	Data resourceIdentifier `json:"data"`
}

type resourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type checkoutResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			URL string `json:"url"`
		} `json:"attributes"`
	} `json:"data"`
}

type errorResponse struct {
	Errors []struct {
		Status string `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// CreateCheckout creates a checkout session for one variant. The user id is
// attached as custom data so webhooks can be matched back to the user.
func (c *Client) CreateCheckout(ctx context.Context, p CheckoutParams) (*Session, error) {
	if !c.Configured() {
		return nil, ErrPaymentsDisabled
	}

	reqBody := checkoutRequest{Data: checkoutRequestData{
		Type: "checkouts",
		Attributes: checkoutAttributes{
			CheckoutData: checkoutData{
				Email:  p.UserEmail,
				Custom: map[string]string{"user_id": p.UserID},
			},
			ProductOptions: productOptions{RedirectURL: p.RedirectURL},
		},
		Relationships: map[string]relationship{
			"store":   {Data: resourceIdentifier{Type: "stores", ID: c.storeID}},
			"variant": {Data: resourceIdentifier{Type: "variants", ID: p.VariantID}},
		},
	}}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkouts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", jsonAPIContentType)
	req.Header.Set("Content-Type", jsonAPIContentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to contact payment processor: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 300 {
		return nil, &ProcessorError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, respBody)}
	}

	var out checkoutResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("invalid response from payment processor: %w", err)
	}
	if out.Data.ID == "" || out.Data.Attributes.URL == "" {
		return nil, &ProcessorError{StatusCode: resp.StatusCode, Message: "Checkout not found"}
	}

	return &Session{URL: out.Data.Attributes.URL, ID: out.Data.ID}, nil
}

func errorMessage(status int, body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && len(er.Errors) > 0 {
		msgs := make([]string, 0, len(er.Errors))
		for _, e := range er.Errors {
			if e.Detail != "" {
				msgs = append(msgs, e.Detail)
			} else if e.Title != "" {
				msgs = append(msgs, e.Title)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return http.StatusText(status)
}
