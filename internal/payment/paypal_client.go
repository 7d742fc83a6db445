package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// PayPalClient talks to the PayPal checkout orders API. It owns the provider
// wire types; nothing outside this file sees them.
type PayPalClient struct {
	baseURL  string
	clientID string
	secret   string
	http     *http.Client
}

func NewPayPalClient(baseURL, clientID, secret string) *PayPalClient {
	return &PayPalClient{
		baseURL:  baseURL,
		clientID: clientID,
		secret:   secret,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type ppAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type ppPurchaseUnit struct {
	ReferenceID string   `json:"reference_id,omitempty"`
	Amount      ppAmount `json:"amount"`
}

type ppOrderBody struct {
	Intent             string           `json:"intent"`
	PurchaseUnits      []ppPurchaseUnit `json:"purchase_units"`
	ApplicationContext struct {
		ReturnURL string `json:"return_url"`
		CancelURL string `json:"cancel_url"`
	} `json:"application_context"`
}

type ppLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type ppOrderResponse struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Links  []ppLink `json:"links"`
}

type ppCaptureResponse struct {
	Status string `json:"status"`
	Payer  struct {
		PayerID      string `json:"payer_id"`
		EmailAddress string `json:"email_address"`
		Name         struct {
			GivenName string `json:"given_name"`
			Surname   string `json:"surname"`
		} `json:"name"`
	} `json:"payer"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				Amount                    ppAmount `json:"amount"`
				SellerReceivableBreakdown struct {
					GrossAmount ppAmount `json:"gross_amount"`
					PayPalFee   ppAmount `json:"paypal_fee"`
					NetAmount   ppAmount `json:"net_amount"`
				} `json:"seller_receivable_breakdown"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (c *PayPalClient) CreateOrder(ctx context.Context, req PayPalOrderRequest) (*PayPalOrderResult, error) {
	body := ppOrderBody{
		Intent: "CAPTURE",
		PurchaseUnits: []ppPurchaseUnit{{
			ReferenceID: fmt.Sprintf("%d", req.OrderNumber),
			Amount:      ppAmount{CurrencyCode: req.Currency, Value: req.Total.StringFixed(2)},
		}},
	}
	body.ApplicationContext.ReturnURL = req.ReturnURL
	body.ApplicationContext.CancelURL = req.CancelURL

	var res ppOrderResponse
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &res); err != nil {
		return nil, err
	}

	out := &PayPalOrderResult{ID: res.ID}
	for _, l := range res.Links {
		if l.Rel == "approve" {
			out.ApproveURL = l.Href
		}
	}
	return out, nil
}

func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (*PayPalCapture, error) {
	var res ppCaptureResponse
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", orderID)
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &res); err != nil {
		return nil, err
	}

	out := &PayPalCapture{
		Status:     res.Status,
		PayerID:    res.Payer.PayerID,
		PayerEmail: res.Payer.EmailAddress,
		PayerName:  res.Payer.Name.Surname + " " + res.Payer.Name.GivenName,
	}
	if len(res.PurchaseUnits) > 0 && len(res.PurchaseUnits[0].Payments.Captures) > 0 {
		capture := res.PurchaseUnits[0].Payments.Captures[0]
		out.Gross = parseMoney(capture.SellerReceivableBreakdown.GrossAmount.Value)
		out.Fee = parseMoney(capture.SellerReceivableBreakdown.PayPalFee.Value)
		out.Net = parseMoney(capture.SellerReceivableBreakdown.NetAmount.Value)
		if out.Gross.IsZero() {
			out.Gross = parseMoney(capture.Amount.Value)
		}
	}
	return out, nil
}

func (c *PayPalClient) do(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("paypal %s %s: status %d", method, path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseMoney(v string) decimal.Decimal {
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}
