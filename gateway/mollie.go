package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MollieClient talks to the Mollie v2 payments API. It is constructed once at
// startup and injected wherever provider access is needed.
type MollieClient struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

func NewMollieClient(apiURL, apiKey string) *MollieClient {
	return &MollieClient{
		apiURL: strings.TrimSuffix(apiURL, "/"),
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// molliePayment is the provider's wire format. The checkout URL lives in the
// HAL _links block.
type molliePayment struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Metadata int    `json:"metadata"`
	Links    struct {
		Checkout struct {
			Href string `json:"href"`
		} `json:"checkout"`
	} `json:"_links"`
}

type mollieError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (c *MollieClient) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*ProviderPayment, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq, http.StatusCreated)
}

func (c *MollieClient) GetPayment(ctx context.Context, id string) (*ProviderPayment, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/payments/"+id, nil)
	if err != nil {
		return nil, &Error{Err: err}
	}

	return c.do(httpReq, http.StatusOK)
}

func (c *MollieClient) do(req *http.Request, wantStatus int) (*ProviderPayment, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != wantStatus {
		var provErr mollieError
		if err := json.Unmarshal(data, &provErr); err == nil && provErr.Title != "" {
			return nil, &Error{StatusCode: resp.StatusCode, Detail: provErr.Title + ": " + provErr.Detail}
		}
		return nil, &Error{StatusCode: resp.StatusCode, Detail: string(data)}
	}

	var payment molliePayment
	if err := json.Unmarshal(data, &payment); err != nil {
		return nil, &Error{Err: fmt.Errorf("decode response: %w", err)}
	}

	return &ProviderPayment{
		ID:          payment.ID,
		Status:      payment.Status,
		CheckoutURL: payment.Links.Checkout.Href,
		Metadata:    payment.Metadata,
	}, nil
}
