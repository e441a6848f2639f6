// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/pmrelay/pmrelay/lib/netutil"
	"github.com/pmrelay/pmrelay/lib/secret"
	"github.com/pmrelay/pmrelay/lib/version"
)

// DefaultBaseURL is the public Webex REST root.
const DefaultBaseURL = "https://webexapis.com/v1"

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the API root. Empty means DefaultBaseURL.
	BaseURL string
	// HTTPClient is used for all requests. Nil means http.DefaultClient.
	HTTPClient *http.Client
	// Logger is used for structured logging. Nil means slog.Default().
	Logger *slog.Logger
}

// Client is an unauthenticated Webex client shared by Sessions.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client.
func NewClient(config ClientConfig) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	// Request URLs are built by concatenation onto the validated root,
	// so path segments that are already escaped stay untouched.
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("messaging: invalid BaseURL %q: %w", baseURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("messaging: BaseURL %q must be absolute", baseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// SessionFromToken copies accessToken into protected memory and returns
// a Session using it. The token is not validated here. The caller must
// Close the Session.
func (c *Client) SessionFromToken(accessToken string) (*Session, error) {
	tokenBuffer, err := secret.NewFromString(accessToken)
	if err != nil {
		return nil, fmt.Errorf("messaging: protecting access token: %w", err)
	}
	return &Session{client: c, accessToken: tokenBuffer}, nil
}

// SessionFromBuffer returns a Session that takes ownership of token;
// Session.Close closes it.
func (c *Client) SessionFromBuffer(token *secret.Buffer) (*Session, error) {
	if token == nil {
		return nil, fmt.Errorf("messaging: access token is required")
	}
	return &Session{client: c, accessToken: token}, nil
}

// doRequest sends a JSON request (or none, when requestBody is nil) and
// returns the response body of a 2xx response.
func (c *Client) doRequest(ctx context.Context, method, path string, accessToken *secret.Buffer, requestBody any) ([]byte, error) {
	var bodyReader io.Reader
	contentType := ""
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("messaging: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, accessToken, contentType, bodyReader)
}

// doMultipart sends fields plus one file part as multipart/form-data.
func (c *Client) doMultipart(ctx context.Context, path string, accessToken *secret.Buffer, fields [][2]string, fileField string, file *Attachment) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, fmt.Errorf("messaging: writing form field %s: %w", field[0], err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", multipart.FileContentDisposition(fileField, file.Name))
	partType := file.ContentType
	if partType == "" {
		partType = "application/octet-stream"
	}
	header.Set("Content-Type", partType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("messaging: creating file part: %w", err)
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return nil, fmt.Errorf("messaging: copying attachment %s: %w", file.Name, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("messaging: closing multipart body: %w", err)
	}

	return c.do(ctx, http.MethodPost, path, accessToken, writer.FormDataContentType(), &body)
}

func (c *Client) do(ctx context.Context, method, path string, accessToken *secret.Buffer, contentType string, body io.Reader) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("messaging: failed to create request: %w", err)
	}

	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", version.UserAgent())
	if accessToken != nil {
		request.Header.Set("Authorization", "Bearer "+accessToken.String())
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("messaging: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("messaging: failed to read response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	apiErr := &APIError{StatusCode: response.StatusCode}
	if jsonErr := json.Unmarshal(responseBody, apiErr); jsonErr != nil {
		// Gateways in front of Webex sometimes answer with HTML or
		// plain text; keep it for the log.
		apiErr.Message = strings.TrimSpace(string(responseBody))
	}
	if apiErr.TrackingID == "" {
		apiErr.TrackingID = response.Header.Get("Trackingid")
	}
	return nil, apiErr
}
