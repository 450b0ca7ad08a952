package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uuakee/xotc/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{"NotFound", domain.NewError(domain.ErrNotFound, "plan not found"), http.StatusNotFound, "not_found", "plan not found"},
		{"InvalidAmount", domain.NewError(domain.ErrInvalidAmount, "amount must be positive"), http.StatusBadRequest, "invalid_amount", "amount must be positive"},
		{"InsufficientFunds", domain.NewError(domain.ErrInsufficientFunds, "insufficient balance"), http.StatusUnprocessableEntity, "insufficient_funds", "insufficient balance"},
		{"ReplayConflict", domain.NewError(domain.ErrReplayConflict, "already processed"), http.StatusConflict, "replay_conflict", "already processed"},
		{"Gateway", domain.NewError(domain.ErrGateway, "provider unavailable"), http.StatusBadGateway, "gateway_error", "provider unavailable"},
		{"InternalHidesCause", domain.WrapError(domain.ErrInternal, "failed to load user", errors.New("dial tcp: refused")), http.StatusInternalServerError, "internal", "internal server error"},
		{"UntypedError", errors.New("boom"), http.StatusInternalServerError, "internal", "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			respondError(c, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantKind, body["error"])
			assert.Equal(t, tc.wantMsg, body["message"])
			assert.NotContains(t, rec.Body.String(), "dial tcp")
		})
	}
}
