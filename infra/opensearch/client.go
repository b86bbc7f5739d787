package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

const (
	// ExchangeIndex holds one document per gateway round trip.
	ExchangeIndex = "buckaroo-exchanges"

	// SystemLogIndex holds system log entries shipped by the logger.
	SystemLogIndex = "gobuckaroo-system-logs"
)

// Config holds the connection settings for the log cluster
type Config struct {
	URL      string
	Username string
	Password string
	Enabled  bool

	// Transport overrides the HTTP transport; nil accepts self-signed certificates.
	Transport http.RoundTripper
}

// Client wraps the OpenSearch client
type Client struct {
	client *opensearch.Client
	config Config
}

// NewClient creates a new OpenSearch client and makes sure the exchange index exists
func NewClient(cfg Config) (*Client, error) {
	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // self-signed development clusters
			},
		}
	}

	opensearchConfig := opensearch.Config{
		Addresses:     []string{cfg.URL},
		Transport:     transport,
		MaxRetries:    3,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			return time.Duration(i) * 100 * time.Millisecond
		},
	}

	if cfg.Username != "" && cfg.Password != "" {
		opensearchConfig.Username = cfg.Username
		opensearchConfig.Password = cfg.Password
	}

	client, err := opensearch.NewClient(opensearchConfig)
	if err != nil {
		return nil, fmt.Errorf("opensearch: create client: %w", err)
	}

	osClient := &Client{
		client: client,
		config: cfg,
	}

	if cfg.Enabled {
		if err := osClient.setupIndices(context.Background()); err != nil {
			return nil, err
		}
	}

	return osClient, nil
}

// GetClient returns the underlying OpenSearch client
func (c *Client) GetClient() *opensearch.Client {
	return c.client
}

// IsEnabled returns whether OpenSearch logging is enabled
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) setupIndices(ctx context.Context) error {
	exists, err := c.indexExists(ctx, ExchangeIndex)
	if err != nil {
		return fmt.Errorf("opensearch: check index %s: %w", ExchangeIndex, err)
	}
	if exists {
		return nil
	}
	if err := c.createIndex(ctx, ExchangeIndex, exchangeMapping); err != nil {
		return fmt.Errorf("opensearch: create index %s: %w", ExchangeIndex, err)
	}
	return nil
}

func (c *Client) indexExists(ctx context.Context, indexName string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{
		Index: []string{indexName},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	return res.StatusCode == http.StatusOK, nil
}

func (c *Client) createIndex(ctx context.Context, indexName, mapping string) error {
	req := opensearchapi.IndicesCreateRequest{
		Index: indexName,
		Body:  strings.NewReader(mapping),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index creation error: %s", res.String())
	}

	return nil
}

// index stores doc as a new document in indexName
func (c *Client) index(ctx context.Context, indexName string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: indexName,
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s", res.String())
	}

	return nil
}

const exchangeMapping = `{
	"mappings": {
		"properties": {
			"timestamp": {"type": "date", "format": "strict_date_optional_time||epoch_millis"},
			"tenant_id": {"type": "keyword"},
			"provider": {"type": "keyword"},
			"operation": {"type": "keyword"},
			"request_id": {"type": "keyword"},
			"invoice_number": {"type": "keyword"},
			"status_code": {"type": "keyword"},
			"status": {"type": "keyword"},
			"valid": {"type": "boolean"},
			"success": {"type": "boolean"},
			"request": {"type": "text"},
			"response": {"type": "text"},
			"processing_time_ms": {"type": "integer"},
			"error": {
				"type": "object",
				"properties": {
					"code": {"type": "keyword"},
					"message": {"type": "text"}
				}
			}
		}
	},
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 0
	}
}`
