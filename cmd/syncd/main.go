// Command syncd runs the homelab graph sync engine: it periodically pulls
// from every configured source, merges the results into the graph store,
// links across sources, deduplicates, and sweeps stale/orphaned entities.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charlieshreck/homelab-graph/internal/config"
	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/adminserver"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/orchestrator"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
	"github.com/charlieshreck/homelab-graph/pkg/sources/k8sclient"
	"github.com/charlieshreck/homelab-graph/pkg/sources/proxmox"
	"github.com/charlieshreck/homelab-graph/pkg/sources/truenas"
)

func main() {
	configPath := flag.String("config", "/etc/homelab-graph/config.yaml", "path to the YAML config file")
	once := flag.Bool("once", false, "run exactly one sync cycle and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		println("failed to load config:", err.Error())
		os.Exit(1)
	}

	log := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := graph.NewNeo4jStore(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password, cfg.Graph.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to the graph store")
	}

	k8sClient, err := k8sclient.NewMultiClusterClient(cfg.Kubernetes)
	if err != nil {
		log.WithError(err).Fatal("failed to build the kubernetes client")
	}
	defer k8sClient.Close()

	proxmoxClient := proxmox.NewRESTClient(cfg.Proxmox)
	truenasClient := truenas.NewRESTClient(cfg.TrueNAS)
	httpToolClient := httptool.NewRESTClient(cfg.HTTPTools, log)

	orch := orchestrator.Build(cfg, store, k8sClient, proxmoxClient, truenasClient, httpToolClient, log)
	defer func() {
		if err := orch.Close(context.Background()); err != nil {
			log.WithError(err).Warn("failed to close the graph store cleanly")
		}
	}()

	if *once {
		report := orch.RunCycle(ctx)
		log.WithField("correlation_id", report.CorrelationID).Info("one-shot sync cycle complete")
		return
	}

	srv := &http.Server{
		Addr: ":" + cfg.Server.AdminPort,
		Handler: adminserver.NewWithTrigger(orch.Metrics(), log, func(triggerCtx context.Context) interface{} {
			return orch.RunCycle(triggerCtx)
		}),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("admin server stopped unexpectedly")
		}
	}()

	go orch.Run(ctx, cfg.Sync.Interval)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
