package app

import (
	"context"
	"net/http"
	"time"

	"github.com/metinatakli/cinema-booking/internal/vcs"
)

func (app *Application) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "UP"
	code := http.StatusOK

	dependencies := app.pingDependencies(r.Context())
	for _, state := range dependencies {
		if state != "UP" {
			status = "DOWN"
			code = http.StatusServiceUnavailable
		}
	}

	resp := HealthcheckResponse{
		Status: status,
		SystemInfo: SystemInfo{
			Version:     vcs.Version(),
			Environment: app.config.Env,
		},
		Dependencies: dependencies,
	}

	err := app.writeJSON(w, code, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) pingDependencies(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	dependencies := make(map[string]string)

	if app.db != nil {
		dependencies["database"] = state(app.db.Ping(ctx))
	}

	if app.redis != nil {
		dependencies["redis"] = state(app.redis.Ping(ctx).Err())
	}

	return dependencies
}

func state(err error) string {
	if err != nil {
		return "DOWN"
	}

	return "UP"
}
