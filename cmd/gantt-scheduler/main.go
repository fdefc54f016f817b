package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/gantt-scheduler/pkg/api"
	"github.com/cuemby/gantt-scheduler/pkg/attestation"
	"github.com/cuemby/gantt-scheduler/pkg/config"
	"github.com/cuemby/gantt-scheduler/pkg/events"
	"github.com/cuemby/gantt-scheduler/pkg/health"
	"github.com/cuemby/gantt-scheduler/pkg/hostmanager"
	"github.com/cuemby/gantt-scheduler/pkg/inventory"
	"github.com/cuemby/gantt-scheduler/pkg/liveness"
	"github.com/cuemby/gantt-scheduler/pkg/log"
	"github.com/cuemby/gantt-scheduler/pkg/metrics"
	"github.com/cuemby/gantt-scheduler/pkg/scheduler"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "gantt-scheduler",
	Short:   "Cluster workload placement scheduler",
	Long:    `gantt-scheduler selects compute hosts for new instances by filtering and weighing a live cache of host capacity and capabilities.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("gantt-scheduler version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))
	rootCmd.PersistentFlags().String("config", "", "Path to scheduler_config.yaml (defaults used if omitted)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Force JSON log output regardless of config")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler's gRPC API and metrics server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("data-dir", "./gantt-data", "Data directory for the BoltDB inventory fixture store (ignored when --inventory-address is set)")
	serveCmd.Flags().String("inventory-address", "", "Address of a remote gRPC inventory service; overrides the BoltDB fixture store")
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if logLevel, _ := cmd.Flags().GetString("log-level"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logJSON, _ := cmd.Flags().GetBool("log-json"); logJSON {
		cfg.LogJSON = true
	}
	log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})
	metrics.SetVersion(Version)

	logger := log.WithComponent("main")

	store, closeStore, err := openInventoryStore(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	liv := liveness.NewHeartbeatOracle(time.Duration(cfg.ServiceDownTime) * time.Second)

	var attestCache *attestation.Cache
	var closeAttestation func()
	if cfg.Trust.AttestationAPIURL != "" {
		svc, err := attestation.DialGRPC(attestation.DialOptions{
			Addr:   cfg.Trust.AttestationAPIURL,
			CAFile: cfg.Trust.AttestationServerCAFile,
		})
		if err != nil {
			return fmt.Errorf("dialing attestation service: %w", err)
		}
		attestCache = attestation.NewCache(svc, time.Duration(cfg.Trust.AttestationAuthTimeout)*time.Second)
		closeAttestation = func() { _ = svc.Close() }
	} else {
		closeAttestation = func() {}
		metrics.RegisterComponent("attestation", true, "not configured")
	}
	defer closeAttestation()

	manager := hostmanager.New(store, liv, attestCache, cfg.CPUAllocationRatio, cfg.RAMAllocationRatio)
	if err := manager.Refresh(context.Background()); err != nil {
		return fmt.Errorf("initial inventory refresh: %w", err)
	}
	metrics.RegisterComponent("inventory", true, "ready")

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	driver := scheduler.New(manager, cfg.SchedulerDefaultFilters, cfg.WeigherSpecs(), broker)
	server := api.NewServer(driver, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runRefreshLoop(ctx, manager)
	go runHealthProbes(ctx, cfg, store)

	http.Handle("/metrics", metrics.Handler())
	http.Handle("/health", metrics.HealthHandler())
	http.Handle("/ready", metrics.ReadyHandler())
	http.Handle("/live", metrics.LivenessHandler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddress}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.ListenAddress); err != nil {
			errCh <- fmt.Errorf("rpc server: %w", err)
		}
	}()
	metrics.RegisterComponent("api", true, "ready")

	logger.Info().
		Str("listen_address", cfg.ListenAddress).
		Str("metrics_address", cfg.MetricsAddress).
		Strs("filters", cfg.SchedulerDefaultFilters).
		Msg("gantt-scheduler is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("rpc server failed")
	}

	cancel()
	server.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	logger.Info().Msg("shutdown complete")
	return nil
}

// openInventoryStore picks a gRPC-backed production store when
// --inventory-address is set, falling back to a local BoltDB fixture
// store for standalone/development use.
func openInventoryStore(cmd *cobra.Command, cfg *config.Config) (inventory.Store, func(), error) {
	addr, _ := cmd.Flags().GetString("inventory-address")
	if addr == "" {
		addr = cfg.InventoryAddr
	} else {
		cfg.InventoryAddr = addr
	}
	if addr != "" {
		client, err := inventory.DialGRPC(addr)
		if err != nil {
			return nil, nil, fmt.Errorf("dialing inventory service: %w", err)
		}
		return client, func() { _ = client.Close() }, nil
	}

	dataDir, _ := cmd.Flags().GetString("data-dir")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating data dir %s: %w", dataDir, err)
	}
	store, err := inventory.NewBoltStore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening bolt inventory store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

// runRefreshLoop periodically re-pulls the inventory store into the host
// cache so long-running servers observe capacity/capability changes
// without a restart.
func runRefreshLoop(ctx context.Context, manager *hostmanager.Manager) {
	logger := log.WithComponent("main")
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := manager.Refresh(ctx); err != nil {
				metrics.InventoryRefreshFailuresTotal.Inc()
				logger.Warn().Err(err).Msg("inventory refresh failed")
			}
		}
	}
}

// runHealthProbes wires a TCP reachability check for the inventory
// service when it's remote, feeding pkg/metrics' readiness endpoint. The
// BoltDB fixture store has no network endpoint to probe, so it reports
// healthy unconditionally.
func runHealthProbes(ctx context.Context, cfg *config.Config, store inventory.Store) {
	if _, ok := store.(*inventory.GRPCClient); !ok {
		metrics.RegisterComponent("inventory", true, "local fixture store")
		return
	}
	checker := health.NewTCPChecker(cfg.InventoryAddr)
	probe := health.NewProbe("inventory", checker, health.DefaultConfig())
	probe.Run(ctx)
}
