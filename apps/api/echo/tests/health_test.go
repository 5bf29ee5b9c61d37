package tests

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/feedback/apps/api/echo"
	"github.com/trezcool/feedback/core"
)

func Test_home(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Feedback API!", rec.Body.String())
}

func Test_health(t *testing.T) {
	tests := []struct {
		name       string
		check      echoapi.StatusChecker
		wantCode   int
		wantStatus string
	}{
		{name: "no storage check", wantCode: http.StatusOK, wantStatus: "OK"},
		{
			name:     "storage up",
			check:    func(context.Context) error { return nil },
			wantCode: http.StatusOK, wantStatus: "OK",
		},
		{
			name:     "storage down",
			check:    func(context.Context) error { return errors.New("connection refused") },
			wantCode: http.StatusServiceUnavailable, wantStatus: "DOWN",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var app *echoapi.Server
			if tt.check != nil {
				app = setup(t, tt.check)
			} else {
				app = setup(t)
			}

			req, rec := newRequest(http.MethodGet, "/health")
			app.ServeHTTP(rec, req)

			var resp echoapi.HealthResponse
			unmarshal(t, rec, &resp)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, core.StorageMemory, resp.Storage)
			assert.False(t, resp.Timestamp.IsZero())
		})
	}
}

func Test_notFound(t *testing.T) {
	app := setup(t)
	runTests(t, app, []httpTest{
		{name: "unknown route", path: "/v1/nope", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Not Found"})},
	})
}
