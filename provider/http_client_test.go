package provider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransport_Post(t *testing.T) {
	var gotContentType, gotAgent, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAgent = r.Header.Get("User-Agent")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
			return
		}
		_, _ = w.Write([]byte("brq_statuscode=190"))
	}))
	defer srv.Close()

	transport := NewHTTPTransport(nil)

	body, err := transport.PostForm(context.Background(), srv.URL+"/nvp/", "brq_amount=1", 0)
	require.NoError(t, err)
	assert.Equal(t, "brq_statuscode=190", body)
	assert.Equal(t, ContentTypeForm, gotContentType)
	assert.Equal(t, "GoBuckaroo/1.0", gotAgent)
	assert.Equal(t, "brq_amount=1", gotBody)

	_, err = transport.PostXML(context.Background(), srv.URL+"/soap", "<Envelope/>", time.Second)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeXML, gotContentType)

	body, err = transport.PostForm(context.Background(), srv.URL+"/fail", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP error 502")
	assert.Equal(t, "upstream down", body)
}

func TestHTTPTransport_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	transport := NewHTTPTransportWithClient(srv.Client())

	_, err := transport.PostForm(context.Background(), srv.URL, "", 50*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCreateHTTPClientConfig(t *testing.T) {
	conf := CreateHTTPClientConfig(0)
	assert.Equal(t, defaultHTTPTimeout, conf.Timeout)
	assert.Equal(t, "GoBuckaroo/1.0", conf.DefaultHeaders["User-Agent"])
}
