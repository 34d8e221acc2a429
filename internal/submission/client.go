// Package submission posts finalized inquiries to the downstream HTTP endpoint.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/inquirybot/core/logger"
	"github.com/m3rciful/inquirybot/core/telegram/netutil"
	"github.com/m3rciful/inquirybot/internal/inquiry"
)

// DefaultTimeout bounds one submission round trip.
const DefaultTimeout = 20 * time.Second

const maxPayloadBytes = 4 << 10

// Body is the JSON document accepted by the endpoint.
type Body struct {
	TelegramID         string   `json:"telegram_id"`
	ConfirmationPhrase string   `json:"confirmation_phrase"`
	PropertyType       string   `json:"property_type"`
	PropertySize       string   `json:"property_size"`
	GeneralLocation    string   `json:"general_location"`
	LocationImages     []string `json:"location_images"`
}

// NewBody maps a record onto the wire fields.
func NewBody(rec inquiry.Record) Body {
	images := rec.Images
	if images == nil {
		images = []string{}
	}
	return Body{
		TelegramID:         strconv.FormatInt(rec.SourceAuthorID, 10),
		ConfirmationPhrase: rec.ConfirmationPhrase,
		PropertyType:       string(rec.PropertyType),
		PropertySize:       string(rec.PropertySize),
		GeneralLocation:    rec.GeneralLocation,
		LocationImages:     images,
	}
}

// Client performs single, unretried POSTs.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient builds a client for endpoint. A non-positive timeout selects DefaultTimeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Transport: netutil.NewTransport(timeout),
			Timeout:   timeout,
		},
	}
}

// Submit sends rec once. Transport errors and non-2xx statuses produce OK=false.
func (c *Client) Submit(ctx context.Context, rec inquiry.Record) inquiry.SubmitResult {
	start := time.Now()
	reqID := uuid.NewString()
	attrs := []slog.Attr{slog.String("request_id", reqID)}

	res := c.do(ctx, reqID, rec)
	attrs = append(attrs,
		slog.Bool("ok", res.OK),
		slog.Duration("duration", logger.Took(start)),
	)
	level := slog.LevelInfo
	if !res.OK {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(res.Error, 256)))
	}
	logger.LogEvent(ctx, logger.Submit, level, "submit.result", attrs...)
	return res
}

func (c *Client) do(ctx context.Context, reqID string, rec inquiry.Record) inquiry.SubmitResult {
	payload, err := json.Marshal(NewBody(rec))
	if err != nil {
		return inquiry.SubmitResult{Error: fmt.Sprintf("encode request: %v", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return inquiry.SubmitResult{Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		return inquiry.SubmitResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return inquiry.SubmitResult{Error: fmt.Sprintf("read response: %v", err)}
	}
	body := normalizePayload(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return inquiry.SubmitResult{
			Payload: body,
			Error:   fmt.Sprintf("status %d: %s", resp.StatusCode, body),
		}
	}
	return inquiry.SubmitResult{OK: true, Payload: body}
}

// normalizePayload compacts JSON bodies and passes other text through.
func normalizePayload(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if json.Valid(raw) && json.Compact(&buf, raw) == nil {
		return buf.String()
	}
	return string(raw)
}
