package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"chronos/internal/service"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: bad dates", service.ErrValidation), http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: task x", service.ErrNotFound), http.StatusNotFound},
		{"lock busy", service.ErrLockBusy, http.StatusConflict},
		{"store", fmt.Errorf("load dataset: %w", service.ErrStoreUnavailable), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, "test", tt.err)
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}
