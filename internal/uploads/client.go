// Package uploads talks to the external file-storage service that holds
// profile-picture binaries. The core only issues delete requests; the
// upload path goes straight from clients to that service.
package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type deleteRequest struct {
	UserID int64 `json:"user_id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// RemoveProfileFile asks the storage service to delete the physical file.
// Callers treat any error as best-effort.
func (c *Client) RemoveProfileFile(ctx context.Context, filename string, accountID int64) error {
	if c.baseURL == "" {
		return fmt.Errorf("upload server not configured")
	}

	body, err := json.Marshal(deleteRequest{UserID: accountID})
	if err != nil {
		return fmt.Errorf("encode delete request: %w", err)
	}

	endpoint := c.baseURL + "/upload/profile/" + url.PathEscape(filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete profile file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("delete profile file: unexpected status %d", resp.StatusCode)
	}

	// Response body is informational only.
	var msg messageResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<10)).Decode(&msg); err == nil && msg.Message != "" {
		c.logger.Debug("profile file deleted", "filename", filename, "message", msg.Message)
	}
	return nil
}
