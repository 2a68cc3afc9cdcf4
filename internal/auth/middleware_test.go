package auth_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quickinvoice/quickinvoice/internal/auth"
	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
	"github.com/quickinvoice/quickinvoice/internal/shared"
	_ "github.com/quickinvoice/quickinvoice/testing"
)

type stubRepo struct {
	hash      []byte
	accountID string
}

func (s *stubRepo) AccountForToken(ctx context.Context, hash []byte) (string, error) {
	if !bytes.Equal(hash, s.hash) {
		return "", httpx.ErrNotFound
	}
	return s.accountID, nil
}

func newProtected(t *testing.T) http.Handler {
	t.Helper()
	repo := &stubRepo{hash: auth.HashToken("secret-token"), accountID: "acc-1"}
	mw := auth.Middleware(auth.NewService(repo), nil)
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(shared.AccountFromContext(r.Context())))
	}))
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	res := httptest.NewRecorder()
	newProtected(t).ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "acc-1", res.Body.String())
}

func TestMiddlewareRejectsMissingOrUnknownToken(t *testing.T) {
	for _, header := range []string{"", "Bearer wrong", "Basic secret-token", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		res := httptest.NewRecorder()
		newProtected(t).ServeHTTP(res, req)
		require.Equal(t, http.StatusUnauthorized, res.Code, header)
		require.Contains(t, res.Header().Get("WWW-Authenticate"), "Bearer")
	}
}

func TestBearerToken(t *testing.T) {
	require.Equal(t, "abc", auth.BearerToken("Bearer abc"))
	require.Equal(t, "abc", auth.BearerToken("bearer  abc "))
	require.Empty(t, auth.BearerToken("Token abc"))
}
