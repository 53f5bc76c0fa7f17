package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-langganan/internal/common"
)

func TestParsePagination(t *testing.T) {
	page, per := common.ParsePagination(httptest.NewRequest(http.MethodGet, "/?page=3&limit=500", nil), 20, 100)
	require.Equal(t, 3, page)
	require.Equal(t, 100, per)

	page, per = common.ParsePagination(httptest.NewRequest(http.MethodGet, "/?page=-1&limit=abc", nil), 20, 100)
	require.Equal(t, 1, page)
	require.Equal(t, 20, per)

	require.Equal(t, int32(40), common.Offset(3, 20))
	require.Equal(t, common.Pagination{Page: 1, PerPage: 20, TotalItems: 41, TotalPages: 3}, common.NewPagination(1, 20, 41))
}
