package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/andina-erp/be-procurement/internal/apperrors"
)

// RatesHTTPClient fetches the general tax rate and exchange rates from the
// rates provider. Only consulted when a selection line carries no frozen tax
// amount.
type RatesHTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewRatesHTTPClient creates a client for the rates provider.
func NewRatesHTTPClient(baseURL string, timeout time.Duration) *RatesHTTPClient {
	return &RatesHTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// GetGeneralTaxRate returns the current tax rate as a percentage.
func (c *RatesHTTPClient) GetGeneralTaxRate(ctx context.Context) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/v1/rates/tax", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to build rates request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInternal, "rates service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, apperrors.Newf(apperrors.CodeInternal, "rates service returned %d", resp.StatusCode)
	}

	var body struct {
		TaxRate float64 `json:"tax_rate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to decode rates response")
	}
	return body.TaxRate, nil
}
