package integration

import (
	"context"
	"net/url"
	"time"
)

// StorefrontClient talks to the storefront platform.
type StorefrontClient struct {
	c *client
}

// NewStorefrontClient creates a storefront client authenticated with accessToken.
func NewStorefrontClient(baseURL, accessToken string, timeout time.Duration) *StorefrontClient {
	return &StorefrontClient{c: newClient("storefront", baseURL, timeout, map[string]string{
		"X-Access-Token": accessToken,
	})}
}

type cancelRequest struct {
	Reason  string `json:"reason"`
	Email   bool   `json:"email"`
	Restock bool   `json:"restock"`
}

// CancelOrder cancels an order on the storefront. A non-2xx answer is
// returned as *UpstreamError.
func (s *StorefrontClient) CancelOrder(ctx context.Context, orderID string) error {
	return s.c.postJSON(ctx, "/orders/"+url.PathEscape(orderID)+"/cancel", cancelRequest{
		Reason:  "customer",
		Email:   false,
		Restock: true,
	}, nil)
}
