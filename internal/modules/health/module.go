package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"copy_bot/internal/models"
	"copy_bot/internal/modules/config"
	copier "copy_bot/internal/modules/copier/service"
	"copy_bot/internal/modules/health/service"
	"copy_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

type Config struct {
	Addr string // например ":8080"
}

func NewConfig(cfg *config.Config) Config {
	return Config{Addr: cfg.Service.HealthAddr}
}

func writeJSON(w http.ResponseWriter, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

type positionView struct {
	Symbol    string `json:"symbol"`
	Size      string `json:"size"`
	Direction string `json:"direction"`
}

func NewMux(state *service.State, rep service.Reporter) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: бутстрап прошёл, фид запущен
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		var lastBatch int64
		if t := state.LastBatch(); !t.IsZero() {
			lastBatch = t.Unix()
		}
		writeJSON(w, map[string]any{
			"ready":         state.Ready(),
			"wsConnected":   state.WSConnected(),
			"uptimeSec":     int64(state.Uptime().Seconds()),
			"lastBatchUnix": lastBatch,
			"uniqueFills":   rep.Processed(),
			"openPositions": len(rep.Positions()),
		})
	})

	mux.HandleFunc("/positions", func(w http.ResponseWriter, r *http.Request) {
		positions := rep.Positions()
		out := make([]positionView, 0, len(positions))
		for _, p := range positions {
			out = append(out, positionView{
				Symbol:    p.Symbol,
				Size:      p.Size.String(),
				Direction: models.DirectionName(p.Size),
			})
		}
		writeJSON(w, out)
	})

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux) {
	if cfg.Addr == "" {
		logger.Info("[HEALTH] HEALTH_ADDR empty, http server disabled")
		return
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("[HEALTH] serve: %v", err)
				}
			}()
			logger.Info("[HEALTH] listening on %s", cfg.Addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewConfig,
			func(e *copier.Engine) service.Reporter { return e },
			NewMux,
		),
		fx.Invoke(RunHTTP),
	)
}
