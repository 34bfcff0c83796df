package cli

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/synnergy-chain/syncstore/cmd/adminserver"
	"github.com/synnergy-chain/syncstore/core"
	"github.com/synnergy-chain/syncstore/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a syncstore node: the sync protocol listener plus the admin HTTP surface",
	Run:   runServe,
}

var (
	serveEnv string
)

func init() {
	serveCmd.Flags().StringVar(&serveEnv, "env", envOrDefault("SYNC_ENV", ""), "config overlay to merge over default.yaml (SYNC_ENV)")
	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(serveEnv)
	bail(err)

	logger := core.NewLogger(cfg.Logging.Level, os.Stderr)

	var stores *core.Stores
	switch cfg.Backend.Kind {
	case "", "memory":
		stores = core.NewMemStores(nil)
	case "ipfs":
		stores, err = core.NewIPFSBackedStores(core.IPFSValueStoreConfig{
			Gateway:      cfg.Backend.IPFSGateway,
			HotCacheSize: cfg.Backend.CacheEntries,
		}, logger)
		bail(err)
	default:
		bail(fmt.Errorf("%w: backend kind %q", core.ErrUnsupportedBackend, cfg.Backend.Kind))
	}

	reg := prometheus.NewRegistry()
	metrics := core.NewMetrics(reg)
	broker := core.NewWatchBroker(stores.Keys, stores.Tags)
	syncEngine := core.NewSyncEngine(stores, broker, logger)
	mergeEngine := core.NewMergeEngine(stores, metrics, logger)
	core.RegisterLogResolver(mergeEngine)

	ln, err := net.Listen("tcp", cfg.Server.ListenAddr)
	bail(err)
	srv := core.NewServer(ln, stores, syncEngine, mergeEngine, broker, metrics, logger)

	admin := adminserver.New(cfg.Server.AdminListenAddr, stores, reg, logger)

	errCh := make(chan error, 2)
	go func() { errCh <- srv.Serve() }()
	go func() { errCh <- admin.ListenAndServe() }()

	logger.WithFields(logrus.Fields{
		"addr":       cfg.Server.ListenAddr,
		"admin_addr": cfg.Server.AdminListenAddr,
		"backend":    cfg.Backend.Kind,
	}).Info("syncstore: listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.WithError(err).Warn("server exited")
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
		srv.Close()
		admin.Close()
	}
}
