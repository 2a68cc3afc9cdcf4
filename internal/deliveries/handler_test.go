package deliveries

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/quickinvoice/quickinvoice/internal/shared"
)

func TestHandlerLifecycle(t *testing.T) {
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), newTestService(newMemoryRepo()))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithAccount(req.Context(), "acc")))
		})
	})
	r.Route("/deliveries", handler.MountRoutes)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
		return rec
	}

	rec := do(http.MethodPost, "/deliveries", `{"pickupAddress":"Ikeja","deliveryAddress":"Lekki","receiverName":"Ada","receiverPhone":"0803"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var d Delivery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	require.Equal(t, StatusPending, d.Status)
	require.Equal(t, "/deliveries/"+d.ID, rec.Header().Get("Location"))

	require.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/deliveries", `{"pickupAddress":"Ikeja"}`).Code)

	rec = do(http.MethodPatch, "/deliveries/"+d.ID+"/status", `{"status":"in_transit"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"in_transit"`)

	require.Equal(t, http.StatusConflict, do(http.MethodPatch, "/deliveries/"+d.ID+"/status", `{"status":"pending"}`).Code)

	rec = do(http.MethodGet, "/deliveries?status=in_transit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Delivery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	require.Equal(t, http.StatusOK, do(http.MethodGet, "/deliveries/"+d.ID, "").Code)
	require.Equal(t, http.StatusNotFound, do(http.MethodGet, "/deliveries/nope", "").Code)
}
