package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/andina-erp/be-procurement/internal/apperrors"
)

// IdentityHTTPClient resolves role membership from the identity service.
type IdentityHTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewIdentityHTTPClient creates a client for the identity service.
func NewIdentityHTTPClient(baseURL string, timeout time.Duration) *IdentityHTTPClient {
	return &IdentityHTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// GetUserRoles returns the role names held by a user.
func (c *IdentityHTTPClient) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/api/v1/users/%s/roles", c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to build identity request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "identity service unreachable")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, apperrors.NotFound("user", userID)
	default:
		return nil, apperrors.Newf(apperrors.CodeInternal,
			"identity service returned %d", resp.StatusCode)
	}

	var body struct {
		Roles []string `json:"roles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to decode identity response")
	}
	return body.Roles, nil
}
