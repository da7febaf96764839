package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CaseLens/internal/testutil"
)

func statusHandler(code int, delay time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		w.WriteHeader(code)
		_, _ = w.Write([]byte("body"))
	})
}

func TestRequestLogging_Levels(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		delay     time.Duration
		wantLevel string
		wantMsg   string
	}{
		{"ok", http.StatusOK, 0, "info", "request completed"},
		{"client error", http.StatusNotFound, 0, "warn", "request completed with client error"},
		{"server error", http.StatusBadGateway, 0, "error", "request completed with server error"},
		{"slow", http.StatusOK, 20 * time.Millisecond, "warn", "slow request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := testutil.NewMockLogger()
			mw := RequestLogging(logger, LoggingConfig{SlowThreshold: 10 * time.Millisecond})
			w := httptest.NewRecorder()

			mw(statusHandler(tt.code, tt.delay)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/cases/C-1/groups?x=1", nil))

			msgs := logger.GetMessages()
			require.Len(t, msgs, 1)
			assert.Equal(t, tt.wantLevel, msgs[0].Level)
			assert.Equal(t, tt.wantMsg, msgs[0].Message)
			field := func(key string) interface{} {
				v, _ := msgs[0].Field(key)
				return v
			}
			assert.Equal(t, tt.code, field("status"))
			assert.Equal(t, "/api/v1/cases/C-1/groups", field("path"))
			assert.Equal(t, "x=1", field("query"))
			assert.Equal(t, 4, field("bytes"))
		})
	}
}

func TestRequestLogging_SkipPaths(t *testing.T) {
	logger := testutil.NewMockLogger()
	mw := RequestLogging(logger, DefaultLoggingConfig())
	w := httptest.NewRecorder()

	mw(statusHandler(http.StatusOK, 0)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, logger.GetMessages())
}
