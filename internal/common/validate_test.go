package common_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-langganan/internal/common"
)

type checkoutPayload struct {
	PlanID string `json:"planId" validate:"required"`
	Cycle  string `json:"cycle" validate:"required,oneof=monthly annual"`
}

func TestDecodeJSONValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"planId":"p1","cycle":"weekly"}`))
	var p checkoutPayload
	err := common.DecodeJSON(req, &p)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "VALIDATION_FAILED", appErr.Code)
	fields := appErr.Details.(map[string]any)["fields"].(map[string]string)
	require.Equal(t, "must be one of monthly annual", fields["cycle"])
}

func TestDecodeJSONRejectsUnknownFieldsAndEmptyBody(t *testing.T) {
	var p checkoutPayload
	err := common.DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"planId":"p1","cycle":"monthly","x":1}`)), &p)
	require.Error(t, err)
	err = common.DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``)), &p)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "request body is required", appErr.Message)
}

func TestWriteErrorHidesInternalErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	common.WriteError(rr, errors.New("pq: connection refused"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.JSONEq(t, `{"error":{"code":"INTERNAL","message":"internal error"}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	common.WriteError(rr, common.NotFound("bundle", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "bundle not found")
}
