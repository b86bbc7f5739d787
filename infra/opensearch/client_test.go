package opensearch

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeCluster answers the few index APIs the logger uses.
type fakeCluster struct {
	server      *httptest.Server
	indexExists bool
	searchReply string

	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeCluster(t *testing.T, indexExists bool) *fakeCluster {
	t.Helper()
	fc := &fakeCluster{indexExists: indexExists}
	fc.server = httptest.NewServer(http.HandlerFunc(fc.handle))
	t.Cleanup(fc.server.Close)
	return fc
}

func (fc *fakeCluster) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	fc.mu.Lock()
	fc.requests = append(fc.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	fc.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodHead:
		if fc.indexExists {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case r.Method == http.MethodPut:
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	case r.URL.Path == "/"+ExchangeIndex+"/_search":
		_, _ = io.WriteString(w, fc.searchReply)
	default:
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	}
}

func (fc *fakeCluster) Requests() []recordedRequest {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]recordedRequest(nil), fc.requests...)
}

func (fc *fakeCluster) config(enabled bool) Config {
	return Config{URL: fc.server.URL, Enabled: enabled, Transport: http.DefaultTransport}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name         string
		indexExists  bool
		enabled      bool
		wantRequests []string
	}{
		{name: "creates_missing_index", indexExists: false, enabled: true, wantRequests: []string{"HEAD /" + ExchangeIndex, "PUT /" + ExchangeIndex}},
		{name: "keeps_existing_index", indexExists: true, enabled: true, wantRequests: []string{"HEAD /" + ExchangeIndex}},
		{name: "disabled_skips_setup", enabled: false, wantRequests: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFakeCluster(t, tt.indexExists)

			client, err := NewClient(fc.config(tt.enabled))
			require.NoError(t, err)
			require.NotNil(t, client.GetClient())
			assert.Equal(t, tt.enabled, client.IsEnabled())

			var got []string
			for _, req := range fc.Requests() {
				got = append(got, req.Method+" "+req.Path)
			}
			assert.Equal(t, tt.wantRequests, got)
		})
	}
}

func TestNewClient_CreateMappingHasExchangeFields(t *testing.T) {
	fc := newFakeCluster(t, false)

	_, err := NewClient(fc.config(true))
	require.NoError(t, err)

	requests := fc.Requests()
	require.Len(t, requests, 2)

	var mapping map[string]any
	require.NoError(t, json.Unmarshal([]byte(requests[1].Body), &mapping))
	props := mapping["mappings"].(map[string]any)["properties"].(map[string]any)
	for _, field := range []string{"tenant_id", "operation", "invoice_number", "status_code", "valid"} {
		assert.Contains(t, props, field)
	}
}

func TestNewClient_UnreachableCluster(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(Config{URL: url, Enabled: true, Transport: http.DefaultTransport})
	assert.Error(t, err)
}
