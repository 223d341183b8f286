package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/faultline-dev/faultline/internal/errs"
)

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errs.Validation("bad input"), http.StatusBadRequest},
		{"not found", errs.NotFound("missing"), http.StatusNotFound},
		{"authorization", errs.Authorization("no"), http.StatusForbidden},
		{"conflict", errs.Conflict("busy"), http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(recorder)

			respondError(ctx, tt.err)
			require.Equal(t, tt.want, recorder.Code)
		})
	}
}
