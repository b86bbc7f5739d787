package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	ContentTypeForm = "application/x-www-form-urlencoded; charset=utf-8"
	ContentTypeXML  = "text/xml; charset=utf-8"

	defaultHTTPTimeout = 30 * time.Second
	maxResponseBytes   = 1 << 20
)

// Transport posts a pre-encoded body and returns the raw response body.
type Transport interface {
	PostForm(ctx context.Context, endpoint, body string, timeout time.Duration) (string, error)
	PostXML(ctx context.Context, endpoint, body string, timeout time.Duration) (string, error)
}

// HTTPClientConfig represents configuration for HTTP client
type HTTPClientConfig struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	DefaultHeaders     map[string]string
}

// HTTPTransport is the default net/http backed Transport
type HTTPTransport struct {
	config *HTTPClientConfig
	client *http.Client
}

// NewHTTPTransport creates a new HTTP transport
func NewHTTPTransport(config *HTTPClientConfig) *HTTPTransport {
	if config == nil {
		config = CreateHTTPClientConfig(defaultHTTPTimeout)
	}
	if config.Timeout == 0 {
		config.Timeout = defaultHTTPTimeout
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.InsecureSkipVerify,
		},
	}

	// Deadlines are applied per call so a gateway can override the default.
	return &HTTPTransport{
		config: config,
		client: &http.Client{Transport: transport},
	}
}

// NewHTTPTransportWithClient wraps an existing client, mostly for tests
func NewHTTPTransportWithClient(client *http.Client) *HTTPTransport {
	return &HTTPTransport{
		config: CreateHTTPClientConfig(client.Timeout),
		client: client,
	}
}

// PostForm sends a form-encoded body
func (t *HTTPTransport) PostForm(ctx context.Context, endpoint, body string, timeout time.Duration) (string, error) {
	return t.post(ctx, endpoint, body, ContentTypeForm, timeout)
}

// PostXML sends an XML or SOAP body
func (t *HTTPTransport) PostXML(ctx context.Context, endpoint, body string, timeout time.Duration) (string, error) {
	return t.post(ctx, endpoint, body, ContentTypeXML, timeout)
}

func (t *HTTPTransport) post(ctx context.Context, endpoint, body, contentType string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = t.config.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	for key, value := range t.config.DefaultHeaders {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return string(respBody), fmt.Errorf("HTTP error %d", resp.StatusCode)
	}

	return string(respBody), nil
}

// CreateHTTPClientConfig creates a standard HTTP client configuration for providers
func CreateHTTPClientConfig(timeout time.Duration) *HTTPClientConfig {
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}

	return &HTTPClientConfig{
		Timeout: timeout,
		DefaultHeaders: map[string]string{
			"User-Agent": "GoBuckaroo/1.0",
		},
	}
}
