// fleetgate is the warehouse fleet orchestrator daemon. It admits transport
// orders over HTTP, decomposes them into per-robot jobs, drives the robots
// over rosbridge, and persists order state in Redis.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/andrescamacho/fleetgate/internal/adapters/httpapi"
	"github.com/andrescamacho/fleetgate/internal/adapters/metrics"
	"github.com/andrescamacho/fleetgate/internal/adapters/orderstore"
	"github.com/andrescamacho/fleetgate/internal/adapters/rosbridge"
	"github.com/andrescamacho/fleetgate/internal/adapters/routeoracle"
	appfleet "github.com/andrescamacho/fleetgate/internal/application/fleet"
	"github.com/andrescamacho/fleetgate/internal/application/orders"
	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
	"github.com/andrescamacho/fleetgate/internal/infrastructure/config"
	"github.com/andrescamacho/fleetgate/internal/infrastructure/logging"
	"github.com/andrescamacho/fleetgate/internal/infrastructure/pidfile"
)

const mirrorInterval = 2 * time.Second

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "fleetgate",
		Short: "Warehouse fleet orchestrator",
		Long:  "fleetgate admits transport orders, schedules them across a fleet of warehouse robots, and tracks their progress.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			return run(cfg)
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default: config.yaml)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logging.Setup(cfg.Logging)
	slog.Info("starting fleetgate", "robots", len(cfg.Fleet.Robots))

	if cfg.Server.PIDFile != "" {
		pf := pidfile.New(cfg.Server.PIDFile)
		if err := pf.Acquire(); err != nil {
			return err
		}
		defer func() {
			if err := pf.Release(); err != nil {
				slog.Warn("failed to release pid file", "error", err)
			}
		}()
	}

	// Order store.
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Store.Host, cfg.Store.Port),
		DB:       cfg.Store.DB,
		Password: cfg.Store.Password,
	})
	defer rdb.Close()
	store := orderstore.New(rdb)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	err := store.Ping(pingCtx)
	cancelPing()
	if err != nil {
		return fmt.Errorf("order store unreachable: %w", err)
	}

	// Route oracle.
	oracle, err := routeoracle.New(routeoracle.Config{
		DSN:     cfg.Oracle.DSN,
		GraphID: cfg.Oracle.GraphID,
		Timeout: cfg.Oracle.Timeout,
	})
	if err != nil {
		return fmt.Errorf("route oracle: %w", err)
	}
	defer oracle.Close()

	// Metrics.
	var registry *prometheus.Registry
	opts := appfleet.Options{AutoFreeOnDelivery: cfg.Fleet.AutoFreeOnDelivery}
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		opts.Metrics = metrics.NewCollector(registry)
	}

	// Fleet.
	specs := make([]appfleet.RobotSpec, 0, len(cfg.Fleet.Robots))
	for name, rc := range cfg.Fleet.Robots {
		specs = append(specs, appfleet.RobotSpec{
			Name:        name,
			Host:        rc.Host,
			Port:        rc.Port,
			CellHeights: rc.CellHeights,
		})
	}
	factory := func(spec appfleet.RobotSpec, sink domain.TelemetrySink) domain.RobotTransport {
		return rosbridge.New(spec.Name, spec.Host, spec.Port, sink)
	}
	updates := make(chan domain.Job, cfg.Fleet.UpdateBuffer)
	fleet := appfleet.NewFleetHandler(specs, factory, oracle, updates, opts)

	// Controller owns the update drainer.
	controller := orders.NewWarehouseController(updates, fleet, store, oracle)

	// Mirror robot snapshots into the store for dashboard consumers.
	mirrorCtx, stopMirror := context.WithCancel(context.Background())
	mirrorDone := make(chan struct{})
	go mirrorRobots(mirrorCtx, mirrorDone, fleet, store)

	// HTTP API.
	api := httpapi.NewServer(controller, fleet, store, store, registry)
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: api.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http api listening", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		slog.Error("http server failed", "error", err)
	}

	// Shutdown order: stop admitting, then the fleet, then the drainer, so
	// every terminal update published during teardown still reaches the store.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown incomplete", "error", err)
	}

	stopMirror()
	<-mirrorDone

	fleet.Shutdown()
	controller.Close()

	slog.Info("fleetgate stopped")
	return nil
}

// mirrorRobots periodically writes each robot's snapshot to the store. Best
// effort; failures are logged and the next tick retries.
func mirrorRobots(ctx context.Context, done chan<- struct{}, fleet *appfleet.FleetHandler, store *orderstore.Store) {
	defer close(done)
	ticker := time.NewTicker(mirrorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, snap := range fleet.GetRobots() {
				if err := store.MirrorRobot(ctx, snap); err != nil && ctx.Err() == nil {
					slog.Debug("robot mirror write failed", "robot", snap.Name, "error", err)
				}
			}
		}
	}
}
