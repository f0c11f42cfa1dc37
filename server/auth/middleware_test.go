package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAuthenticator string

func (s staticAuthenticator) Authenticate(_ context.Context, creds Credentials) (*Principal, error) {
	if creds.Token != string(s) {
		return nil, &Error{Type: ErrInvalidCredentials, Message: "invalid token"}
	}
	return &Principal{ID: "cli"}, nil
}

func TestMiddleware(t *testing.T) {
	var seen *Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetPrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Middleware(staticAuthenticator("s3cret"), "", "/healthz")(next)

	tests := []struct {
		name          string
		path          string
		header        string
		value         string
		wantStatus    int
		wantPrincipal bool
	}{
		{name: "valid token", path: "/tasks", header: DefaultHeader, value: "s3cret", wantStatus: http.StatusNoContent, wantPrincipal: true},
		{name: "missing token", path: "/tasks", wantStatus: http.StatusUnauthorized},
		{name: "wrong token", path: "/tasks", header: DefaultHeader, value: "nope", wantStatus: http.StatusUnauthorized},
		{name: "token in another header", path: "/tasks", header: "Authorization", value: "s3cret", wantStatus: http.StatusUnauthorized},
		{name: "public path", path: "/healthz", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantPrincipal {
				require.NotNil(t, seen)
				assert.Equal(t, "cli", seen.ID)
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}

func TestMiddleware_CustomHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(staticAuthenticator("abc"), "X-Chore-Key")(next)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("X-Chore-Key", "abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set(DefaultHeader, "abc")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetPrincipalFromContext_Empty(t *testing.T) {
	assert.Nil(t, GetPrincipalFromContext(context.Background()))
}
