package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ProviderXClient talks to the ProviderX checkout-preference API.
type ProviderXClient struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

func NewProviderXClient(baseURL, accessToken string) *ProviderXClient {
	return &ProviderXClient{
		baseURL:     baseURL,
		accessToken: accessToken,
		http:        &http.Client{Timeout: 30 * time.Second},
	}
}

type pxItem struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type pxPreferenceBody struct {
	Items             []pxItem `json:"items"`
	ExternalReference string   `json:"external_reference"`
	BackURLs          struct {
		Success string `json:"success"`
		Failure string `json:"failure"`
	} `json:"back_urls"`
}

type pxPreferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

type pxPaymentResponse struct {
	Status string `json:"status"`
	Payer  struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"payer"`
	TransactionDetails struct {
		TotalPaidAmount   string `json:"total_paid_amount"`
		NetReceivedAmount string `json:"net_received_amount"`
	} `json:"transaction_details"`
	FeeDetails []struct {
		Amount string `json:"amount"`
	} `json:"fee_details"`
}

func (c *ProviderXClient) CreatePreference(ctx context.Context, req ProviderXPreferenceRequest) (*ProviderXPreference, error) {
	body := pxPreferenceBody{ExternalReference: fmt.Sprintf("%d", req.OrderNumber)}
	for _, it := range req.Items {
		price, _ := it.UnitPrice.Round(2).Float64()
		body.Items = append(body.Items, pxItem{ID: it.ID, Title: it.Title, Quantity: it.Quantity, UnitPrice: price})
	}
	body.BackURLs.Success = req.SuccessURL
	body.BackURLs.Failure = req.FailureURL

	var res pxPreferenceResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", body, &res); err != nil {
		return nil, err
	}
	return &ProviderXPreference{ID: res.ID, InitPoint: res.InitPoint}, nil
}

func (c *ProviderXClient) FindPayment(ctx context.Context, paymentID string) (*ProviderXPayment, error) {
	var res pxPaymentResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &res); err != nil {
		return nil, err
	}

	out := &ProviderXPayment{
		Status:         res.Status,
		PayerID:        res.Payer.ID,
		PayerEmail:     res.Payer.Email,
		PayerFirstName: res.Payer.FirstName,
		PayerLastName:  res.Payer.LastName,
		TotalPaid:      parseMoney(res.TransactionDetails.TotalPaidAmount),
		NetReceived:    parseMoney(res.TransactionDetails.NetReceivedAmount),
	}
	if len(res.FeeDetails) > 0 {
		out.Fee = parseMoney(res.FeeDetails[0].Amount)
	}
	return out, nil
}

func (c *ProviderXClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("provider-x %s %s: status %d", method, path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
