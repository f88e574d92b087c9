package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"gitlab.com/fieldion/api/missed-call-router/internal/apperrors"
	"gitlab.com/fieldion/api/missed-call-router/pkg/logger"
	"go.uber.org/zap"
)

// Client sends messages through a Twilio-style REST API using the shared
// HTTP client. Credentials are checked per send so a misconfigured gateway
// surfaces as a ConfigurationError, not a cryptic 401.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	httpClient *http.Client
}

// NewClient creates a messaging gateway client.
func NewClient(baseURL, accountSID, authToken string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		httpClient: httpClient,
	}
}

// SendTemplate implements Sender.
func (c *Client) SendTemplate(ctx context.Context, from, to, templateSID string, variables map[string]string) error {
	vars, err := json.Marshal(variables)
	if err != nil {
		return apperrors.NewSend(err, "encoding template variables failed")
	}

	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("ContentSid", templateSID)
	form.Set("ContentVariables", string(vars))

	if err := c.post(ctx, form); err != nil {
		return err
	}

	logger.FromContext(ctx).Debug("Templated message accepted by gateway",
		zap.String("to", to),
		zap.String("template_sid", templateSID),
	)
	return nil
}

// SendText implements Sender.
func (c *Client) SendText(ctx context.Context, from, to, body string) error {
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	if err := c.post(ctx, form); err != nil {
		return err
	}

	logger.FromContext(ctx).Debug("Text message accepted by gateway", zap.String("to", to))
	return nil
}

func (c *Client) post(ctx context.Context, form url.Values) error {
	if c.accountSID == "" || c.authToken == "" {
		return apperrors.NewConfiguration("messaging gateway credentials are not set")
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return apperrors.NewSend(err, "building send request failed")
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewSend(err, "send request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.NewSend(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
			"gateway rejected message",
		)
	}
	return nil
}
