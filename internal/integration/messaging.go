package integration

import (
	"context"
	"net/url"
	"time"
)

// Recipient identifies who a campaign message goes to.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// MessagingClient talks to the customer messaging platform.
type MessagingClient struct {
	c *client
}

// NewMessagingClient creates a messaging client authenticated with apiKey.
func NewMessagingClient(baseURL, apiKey string, timeout time.Duration) *MessagingClient {
	return &MessagingClient{c: newClient("messaging", baseURL, timeout, map[string]string{
		"Authorization": "Bearer " + apiKey,
	})}
}

type campaignRequest struct {
	Recipient Recipient         `json:"recipient"`
	Params    map[string]string `json:"params,omitempty"`
}

// SendCampaign triggers the named campaign for one recipient.
func (m *MessagingClient) SendCampaign(ctx context.Context, campaign string, to Recipient, params map[string]string) error {
	return m.c.postJSON(ctx, "/campaigns/"+url.PathEscape(campaign)+"/send", campaignRequest{
		Recipient: to,
		Params:    params,
	}, nil)
}
