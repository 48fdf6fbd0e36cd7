package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/locafrota/locafrota/internal/shared"
)

func TestProblemUsesProblemJSONMediaType(t *testing.T) {
	rec := httptest.NewRecorder()
	Problem(rec, http.StatusConflict, "Conflict", "contract number already exists")

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var pd ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pd))
	require.Equal(t, "about:blank", pd.Type)
	require.Equal(t, "Conflict", pd.Title)
	require.Equal(t, http.StatusConflict, pd.Status)
	require.Equal(t, "contract number already exists", pd.Detail)
}

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("contract 9: %w", shared.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("duplicate: %w", shared.ErrConflict), http.StatusConflict},
		{fmt.Errorf("already paid: %w", shared.ErrInvalidState), http.StatusConflict},
		{fmt.Errorf("bad billing day: %w", shared.ErrValidation), http.StatusUnprocessableEntity},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, "error %v", tc.err)
	}
}

func TestDecodeJSONRejectsTrailingGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"} trailing`))
	var target struct {
		Name string `json:"name"`
	}
	require.Error(t, DecodeJSON(req, &target))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
	require.NoError(t, DecodeJSON(req, &target))
	require.Equal(t, "ok", target.Name)
}
