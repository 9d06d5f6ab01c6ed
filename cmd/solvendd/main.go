package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sadiqsaidu/solvend/config"
	"github.com/sadiqsaidu/solvend/core/events"
	"github.com/sadiqsaidu/solvend/core/state"
	"github.com/sadiqsaidu/solvend/core/types"
	"github.com/sadiqsaidu/solvend/native/reportmarket"
	"github.com/sadiqsaidu/solvend/native/vending"
	"github.com/sadiqsaidu/solvend/observability/logging"
	"github.com/sadiqsaidu/solvend/observability/metrics"
	"github.com/sadiqsaidu/solvend/storage"
)

// observer logs every program event and mirrors it into prometheus counters.
type observer struct {
	logger *slog.Logger
}

func (o observer) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	m := metrics.Vending()
	switch e := evt.(type) {
	case events.VoucherCreated:
		m.ObserveVoucherCreated()
	case events.VoucherRedeemed:
		m.ObserveVoucherRedeemed(strconv.FormatBool(e.IsFree))
	case events.ProgressIncremented:
		m.ObserveProgressIncrement()
	case events.ReportPurchased:
		m.ObserveReportPurchased(e.Kind)
	case events.EarningsClaimed:
		m.ObserveEarningsClaimed()
	}
	if payload, ok := evt.(interface{ Event() *types.Event }); ok {
		wire := payload.Event()
		keys := make([]string, 0, len(wire.Attributes))
		for key := range wire.Attributes {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		attrs := make([]any, 0, len(keys)+1)
		attrs = append(attrs, slog.String("type", wire.Type))
		for _, key := range keys {
			attrs = append(attrs, slog.String(key, wire.Attributes[key]))
		}
		o.logger.Info("event", attrs...)
		return
	}
	o.logger.Info("event", slog.String("type", evt.EventType()))
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("SOLVEND_ENV"))
	logger := logging.Setup("solvendd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if env != "" {
		cfg.Environment = env
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		logger.Error("Failed to open state database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	emitter := observer{logger: logger}

	vendingEngine := vending.NewEngine()
	vendingEngine.SetState(manager)
	vendingEngine.SetEmitter(emitter)

	marketEngine := reportmarket.NewEngine()
	marketEngine.SetState(manager)
	marketEngine.SetEmitter(emitter)

	if cfg.OwnerAddress != "" {
		owner, err := config.ParseAddress(cfg.OwnerAddress)
		if err != nil {
			logger.Error("Invalid owner address", slog.Any("error", err))
			os.Exit(1)
		}
		if _, err := vendingEngine.InitializeMachine(owner, cfg.Token, cfg.PriceMinor); err != nil {
			if !errors.Is(err, vending.ErrMachineExists) {
				logger.Error("Failed to initialize machine", slog.Any("error", err))
				os.Exit(1)
			}
		} else {
			logger.Info("Machine initialized",
				slog.String("token", cfg.Token),
				slog.Uint64("price", cfg.PriceMinor))
		}
	}
	if cfg.VaultAddress != "" {
		vault, err := config.ParseAddress(cfg.VaultAddress)
		if err != nil {
			logger.Error("Invalid vault address", slog.Any("error", err))
			os.Exit(1)
		}
		if _, err := marketEngine.InitializeTreasury(vault); err != nil {
			if !errors.Is(err, reportmarket.ErrTreasuryExists) {
				logger.Error("Failed to initialize treasury", slog.Any("error", err))
				os.Exit(1)
			}
		} else {
			logger.Info("Treasury initialized")
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Serving metrics", slog.String("addr", cfg.ListenAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", slog.Any("error", err))
	}
	logger.Info("Stopped")
}
