package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/evanrosales/shopsphere-backend/api/responses"
	"github.com/evanrosales/shopsphere-backend/pkg/config"
	"github.com/evanrosales/shopsphere-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ShopSphere-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks every dependency and reports per-component state. Any
// failing component flips the overall status and the HTTP code to 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		components := map[string]string{}
		healthy := true

		check := func(name string, p pinger) {
			if p == nil {
				components[name] = "skipped"
				return
			}
			if err := p.Ping(ctx); err != nil {
				components[name] = "unreachable"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "health."+name, err)
				}
				return
			}
			components[name] = "ok"
		}

		check("postgres", dbP)
		check("redis", redisP)

		w.Header().Set("X-ShopSphere-Env", cfg.App.Env)
		status := "ready"
		code := http.StatusOK
		if !healthy {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		responses.WriteSuccessStatus(w, code, map[string]any{
			"status":     status,
			"components": components,
		})
	}
}
