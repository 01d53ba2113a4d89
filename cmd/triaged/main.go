// Command triaged runs the alert-triage HTTP surface: POST an alert to
// /v1/triage and receive back a synthesized verdict from the specialist
// pool fan-out and the synthesis engine.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/config"
	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/adminserver"
	"github.com/charlieshreck/homelab-graph/pkg/llm"
	"github.com/charlieshreck/homelab-graph/pkg/metrics"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
	"github.com/charlieshreck/homelab-graph/pkg/specialists"
	"github.com/charlieshreck/homelab-graph/pkg/synthesis"
	"github.com/charlieshreck/homelab-graph/pkg/triage"
)

func main() {
	configPath := flag.String("config", "/etc/homelab-graph/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		println("failed to load config:", err.Error())
		os.Exit(1)
	}

	log := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpToolClient := httptool.NewRESTClient(cfg.HTTPTools, log)
	llmClient := llm.New(cfg.LLM)
	pool := specialists.Build(httpToolClient, llmClient, log)
	engine := synthesis.New(llmClient, cfg.DomainWeights, log)
	mc := metrics.New()
	orch := triage.New(pool, engine, mc, log)

	router := adminserver.New(mc, log)
	router.Post("/v1/triage", handleTriage(orch, log))

	srv := &http.Server{
		Addr:    ":" + cfg.Server.AdminPort,
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("triage server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func handleTriage(orch *triage.Orchestrator, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var alert specialists.Alert
		if err := json.NewDecoder(r.Body).Decode(&alert); err != nil {
			http.Error(w, "invalid alert payload", http.StatusBadRequest)
			return
		}

		report := orch.Triage(r.Context(), alert)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(report); err != nil {
			log.WithError(err).Error("failed to encode triage response")
		}
	}
}
