package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"gitlab.com/fieldion/api/missed-call-router/internal/apperrors"
	"gitlab.com/fieldion/api/missed-call-router/internal/model"
	"gitlab.com/fieldion/api/missed-call-router/pkg/logger"
	"gitlab.com/fieldion/api/missed-call-router/pkg/utils"
)

// --- Startup Probe Configuration ---
const (
	probeInitialInterval = 500 * time.Millisecond
	probeMaxInterval     = 5 * time.Second
	probeMaxElapsedTime  = 30 * time.Second
)

// Client talks to the Airtable-style tabular record store over HTTPS with a
// bearer credential. It implements both ProfileRepo and LogRepo. The HTTP
// client is shared and injected; its timeout bounds every call here.
type Client struct {
	baseURL       string
	baseID        string
	apiKey        string
	profilesTable string
	logTable      string
	httpClient    *http.Client
}

// NewClient creates a record store client. Missing credentials are allowed
// at construction time; every operation checks them first and fails with a
// ConfigurationError rather than discovering the gap mid-query.
func NewClient(baseURL, baseID, apiKey, profilesTable, logTable string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		baseID:        baseID,
		apiKey:        apiKey,
		profilesTable: profilesTable,
		logTable:      logTable,
		httpClient:    httpClient,
	}
}

// Configured reports whether the store base id and credential are present.
func (c *Client) Configured() bool {
	return c.baseID != "" && c.apiKey != ""
}

func (c *Client) checkConfigured() error {
	if c.baseID == "" {
		return apperrors.NewConfiguration("record store base id is not set")
	}
	if c.apiKey == "" {
		return apperrors.NewConfiguration("record store api key is not set")
	}
	return nil
}

// profileFields maps the loosely-typed profile row to named fields.
type profileFields struct {
	BusinessName     string `json:"Business Name"`
	PreferredChannel string `json:"Preferred Channel"`
	WhatsAppNumber   string `json:"WhatsApp Number"`
	MobileNumber     string `json:"Mobile Number"`
	TwilioNumber     string `json:"Twilio Number"`
	ExternalID       string `json:"External ID"`
}

type record struct {
	ID     string          `json:"id"`
	Fields json.RawMessage `json:"fields"`
}

type recordList struct {
	Records []record `json:"records"`
}

// FindByDestination implements ProfileRepo.
func (c *Client) FindByDestination(ctx context.Context, destination string) (*model.TradespersonProfile, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}

	normalized := strings.Join(strings.Fields(destination), "")
	formula := fmt.Sprintf("{Twilio Number}='%s'", escapeFormulaValue(normalized))

	rec, err := c.queryOne(ctx, c.profilesTable, formula)
	if err != nil {
		return nil, apperrors.NewLookup(err, "profile lookup for %s failed", normalized)
	}
	if rec == nil {
		return nil, apperrors.ErrNotFound
	}

	var fields profileFields
	if err := json.Unmarshal(rec.Fields, &fields); err != nil {
		return nil, apperrors.NewLookup(err, "decoding profile record %s failed", rec.ID)
	}

	return &model.TradespersonProfile{
		RecordID:         rec.ID,
		BusinessName:     fields.BusinessName,
		PreferredChannel: fields.PreferredChannel,
		WhatsAppNumber:   fields.WhatsAppNumber,
		MobileNumber:     fields.MobileNumber,
		ExternalID:       fields.ExternalID,
	}, nil
}

// ExistsByMessageSID implements LogRepo.
func (c *Client) ExistsByMessageSID(ctx context.Context, messageSID string) (bool, error) {
	if err := c.checkConfigured(); err != nil {
		return false, err
	}

	formula := fmt.Sprintf("{Message SID}='%s'", escapeFormulaValue(messageSID))
	rec, err := c.queryOne(ctx, c.logTable, formula)
	if err != nil {
		return false, apperrors.NewLookup(err, "idempotency check for %s failed", messageSID)
	}
	return rec != nil, nil
}

// Append implements LogRepo. One call is exactly one external append.
func (c *Client) Append(ctx context.Context, entry model.LogEntry) error {
	if err := c.checkConfigured(); err != nil {
		return err
	}

	payload := map[string]interface{}{
		"records": []map[string]interface{}{
			{
				"fields": map[string]interface{}{
					"Message SID":       entry.MessageSID,
					"From":              entry.From,
					"To":                entry.To,
					"Message":           entry.Body,
					"Urgency":           entry.Urgency,
					"Location":          entry.Location,
					"Matched":           entry.Matched,
					"Alert Channel":     string(entry.Channel),
					"Alert Sent":        entry.AlertSent,
					"Confirmation Sent": entry.ConfirmationSent,
					"Error":             entry.ErrorNote,
					"Processed At":      utils.FormatISO8601(entry.ProcessedAt),
				},
			},
		},
		"typecast": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewLogWrite(err, "encoding log entry failed")
	}

	endpoint := fmt.Sprintf("%s/v0/%s/%s", c.baseURL, c.baseID, url.PathEscape(c.logTable))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewLogWrite(err, "building log append request failed")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewLogWrite(err, "log append request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewLogWrite(
			fmt.Errorf("status %d: %s", resp.StatusCode, readBodySnippet(resp.Body)),
			"record store rejected log append",
		)
	}
	return nil
}

// metaTables mirrors the store's table metadata response.
type metaTables struct {
	Tables []struct {
		Name   string      `json:"name"`
		Fields []FieldInfo `json:"fields"`
	} `json:"tables"`
}

// Fields implements LogRepo, backing the schema introspection endpoint.
func (c *Client) Fields(ctx context.Context) ([]FieldInfo, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v0/meta/bases/%s/tables", c.baseURL, c.baseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewLookup(err, "building table metadata request failed")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewLookup(err, "table metadata request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewLookup(
			fmt.Errorf("status %d: %s", resp.StatusCode, readBodySnippet(resp.Body)),
			"record store rejected metadata request",
		)
	}

	var meta metaTables
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, apperrors.NewLookup(err, "decoding table metadata failed")
	}

	for _, table := range meta.Tables {
		if table.Name == c.logTable {
			return table.Fields, nil
		}
	}
	return nil, apperrors.NewLookup(fmt.Errorf("table %q not present in base", c.logTable), "log table metadata missing")
}

// WaitReady probes the record store with bounded exponential backoff. It is
// a startup reachability check only; the per-request path never retries.
func (c *Client) WaitReady(ctx context.Context) error {
	if err := c.checkConfigured(); err != nil {
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = probeInitialInterval
	bo.MaxInterval = probeMaxInterval
	bo.MaxElapsedTime = probeMaxElapsedTime

	operation := func() error {
		// FALSE() matches no records: a cheap auth + reachability probe.
		_, err := c.queryOne(ctx, c.profilesTable, "FALSE()")
		if err != nil {
			logger.Log.Warn("Record store probe failed, retrying", zap.Error(err))
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}

// queryOne runs a filtered single-record query and returns the first record,
// or nil when nothing matches.
func (c *Client) queryOne(ctx context.Context, table, formula string) (*record, error) {
	endpoint := fmt.Sprintf("%s/v0/%s/%s", c.baseURL, c.baseID, url.PathEscape(table))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building query request: %w", err)
	}

	q := req.URL.Query()
	q.Set("filterByFormula", formula)
	q.Set("maxRecords", "1")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}

	var list recordList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding query response: %w", err)
	}
	if len(list.Records) == 0 {
		return nil, nil
	}
	return &list.Records[0], nil
}

// escapeFormulaValue escapes single quotes for interpolation into a
// filter formula string literal.
func escapeFormulaValue(v string) string {
	return strings.ReplaceAll(v, "'", "\\'")
}

func readBodySnippet(r io.Reader) string {
	snippet, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(snippet))
}
