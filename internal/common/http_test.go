package common_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-langganan/internal/common"
)

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5123"
	require.Equal(t, "10.0.0.9", common.ClientIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.4")
	require.Equal(t, "192.0.2.4", common.ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	require.Equal(t, "203.0.113.7", common.ClientIP(req))

	req.Header.Set("X-Forwarded-For", "garbage")
	require.Equal(t, "192.0.2.4", common.ClientIP(req))
}

func TestWriteErrorShapes(t *testing.T) {
	rr := httptest.NewRecorder()
	common.WriteError(rr, common.NotFound("bundle", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"bundle not found"}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	common.WriteError(rr, errors.New("pq: connection refused"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "connection refused")

	rr = httptest.NewRecorder()
	common.Data(rr, http.StatusCreated, map[string]int{"n": 1})
	require.Equal(t, http.StatusCreated, rr.Code)
	require.JSONEq(t, `{"data":{"n":1}}`, rr.Body.String())
}
