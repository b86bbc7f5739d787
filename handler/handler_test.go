package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gobuckaroo/infra/middle"
	"github.com/mstgnz/gobuckaroo/infra/response"
	"github.com/stretchr/testify/require"
)

// withTenant marks the request as authenticated for tenantID
func withTenant(req *http.Request, tenantID string) *http.Request {
	return req.WithContext(middle.WithTenantID(req.Context(), tenantID))
}

// withURLParams attaches chi route parameters given as key, value pairs
func withURLParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// decodeResponse reads the response envelope, with Data decoded into data when non-nil
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data any) response.Response {
	t.Helper()

	var raw struct {
		response.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())

	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.Response
}
