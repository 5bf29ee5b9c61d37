package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/feedback/core"
)

const healthCheckTimeout = 2 * time.Second

type HealthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Storage   string    `json:"storage"`
}

func home(conf *core.Config) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "Welcome to "+conf.AppName+" API!")
	}
}

// health reports 503 when the storage cannot be reached.
func health(storage string, check StatusChecker) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		resp := HealthResponse{
			Status:    "OK",
			Message:   "Server is running",
			Timestamp: NowFunc().UTC(),
			Storage:   storage,
		}
		if check == nil {
			return ctx.JSON(http.StatusOK, resp)
		}

		c, cancel := context.WithTimeout(ctx.Request().Context(), healthCheckTimeout)
		defer cancel()
		if err := check(c); err != nil {
			resp.Status = "DOWN"
			resp.Message = "storage unreachable"
			return ctx.JSON(http.StatusServiceUnavailable, resp)
		}
		return ctx.JSON(http.StatusOK, resp)
	}
}
