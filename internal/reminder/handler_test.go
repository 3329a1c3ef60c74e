package reminder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRunner struct{ mock.Mock }

func (m *mockRunner) RunNow(ctx context.Context) ([]Report, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Report), args.Error(1)
}

func TestHandler_Run(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		reports    []Report
		err        error
		wantStatus int
	}{
		{"ok", []Report{{Name: "session_24h", Scanned: 2, Sent: 2}}, nil, http.StatusOK},
		{"lock held", nil, ErrSweepRunning, http.StatusConflict},
		{"failure", nil, errBoom, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(mockRunner)
			if tt.reports != nil {
				runner.On("RunNow", mock.Anything).Return(tt.reports, nil)
			} else {
				runner.On("RunNow", mock.Anything).Return(nil, tt.err)
			}

			router := gin.New()
			router.POST("/admin/reminders/run", NewHandler(runner).Run)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/reminders/run", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				var resp RunResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				require.Len(t, resp.Reports, 1)
				assert.Equal(t, 2, resp.Reports[0].Sent)
			}
			runner.AssertExpectations(t)
		})
	}
}
