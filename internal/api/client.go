package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"azpim/internal/logging"
	"azpim/internal/models"
)

// RequestIDHeader carries a client generated id Azure support can correlate with server logs
const RequestIDHeader = "x-ms-client-request-id"

// Request describes one call to the PIM API
type Request struct {
	ResourceType string
	Path         string
	Method       string
	Token        string
	Headers      map[string]string
	Params       url.Values
	Body         any
}

// Sender defines the interface for sending PIM API requests
type Sender interface {
	Send(ctx context.Context, req Request) (json.RawMessage, error)
}

// Client represents an HTTP client for the Azure PIM API.
// It never retries: activation requests are not idempotent.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	requestID  func() string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout of the underlying HTTP client
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new API client for the given base URL
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) (*Client, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil || parsedURL.Host == "" || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		return nil, fmt.Errorf("invalid base URL: must be a valid HTTP or HTTPS URL")
	}

	if logger == nil {
		logger = logging.NewNopLogger()
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:    logger,
		requestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// URL builds the full endpoint for a resource type and operation path
func (c *Client) URL(resourceType, path string) string {
	return strings.Join([]string{
		c.baseURL,
		models.PIMBasePath,
		strings.Trim(resourceType, "/"),
		strings.TrimPrefix(path, "/"),
	}, "/")
}

// Send issues the request and returns the raw JSON body of a successful response
func (c *Client) Send(ctx context.Context, r Request) (json.RawMessage, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	endpoint := c.URL(r.ResourceType, r.Path)
	if len(r.Params) > 0 {
		endpoint += "?" + r.Params.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		payload, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("Authorization", "Bearer "+r.Token)
	req.Header.Set("Accept", "application/json")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = c.requestID()
		req.Header.Set(RequestIDHeader, requestID)
	}

	c.logger.Debug("%s %s (request id %s)", method, endpoint, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: endpoint, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.Debug("%s %s returned %d (%d bytes)", method, endpoint, resp.StatusCode, len(data))

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, c.handleErrorResponse(resp, data, method, endpoint, requestID)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &DecodeError{Type: "JSON", Err: errors.New("response body is empty")}
	}
	if !json.Valid(data) {
		return nil, &DecodeError{Type: "JSON", Err: errors.New("response body is not valid JSON")}
	}

	return json.RawMessage(data), nil
}

// handleErrorResponse turns a failed response into an APIError
func (c *Client) handleErrorResponse(resp *http.Response, data []byte, method, endpoint, requestID string) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Method:     method,
		URL:        endpoint,
		RequestID:  requestID,
	}

	text := string(data)
	if text != "" {
		apiErr.Body = text
	}

	if isJSONContentType(resp.Header.Get("Content-Type")) {
		var parsed any
		if err := json.Unmarshal(data, &parsed); err == nil {
			apiErr.Body = parsed
		} else {
			c.logger.Warn("error response declared JSON but could not be parsed: %v", err)
		}
	}

	c.logger.Debug("%s %s failed: %v", method, endpoint, apiErr)
	return apiErr
}

func isJSONContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// Decode unmarshals a response body into T, reporting failures as a DecodeError naming typeName
func Decode[T any](raw json.RawMessage, typeName string) (T, error) {
	var out T
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, &DecodeError{Type: typeName, Err: errors.New("response body is empty")}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &DecodeError{Type: typeName, Err: err}
	}
	return out, nil
}
