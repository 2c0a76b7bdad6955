// Command rewardsd serves the reward claim and state pointer API.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storyatlas/disburse"
	"github.com/storyatlas/disburse/config"
	"github.com/storyatlas/disburse/logger"
	"github.com/storyatlas/disburse/metrics"
	"github.com/storyatlas/disburse/pointer"
	"github.com/storyatlas/disburse/types"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog := logger.NewZapLogger(cfg.LogLevel)

	opts := []disburse.Option{
		disburse.WithLogger(zlog),
		disburse.WithMetrics(metrics.NewPrometheusRecorder()),
		disburse.WithTimeout(cfg.ClaimTimeout),
	}
	if cfg.PinningJWT != "" {
		pin, err := pointer.NewHTTPPinningClient(cfg.PinningBaseURL, cfg.PinningGatewayURL, cfg.PinningJWT)
		if err != nil {
			log.Fatalf("configure pinning client: %v", err)
		}
		opts = append(opts, disburse.WithPointerBackend(pin))
	}

	svc := disburse.New(opts...)
	defer svc.Close()

	if cfg.XRPL.Enabled {
		err := svc.AddChain(types.ClientConfig{
			Chain:        types.ChainXRPL,
			RPCURL:       cfg.XRPL.RPCURL,
			SignerSecret: cfg.XRPL.SignerSecret,
			Policy: types.ChainPolicy{
				UnitsPerPoint:    cfg.XRPL.UnitsPerPoint,
				MaxUnitsPerClaim: cfg.XRPL.MaxUnitsPerClaim,
				MinUnitsPerClaim: cfg.XRPL.MinUnitsPerClaim,
			},
		})
		if err != nil {
			log.Fatalf("attach xrpl backend: %v", err)
		}
	}
	if cfg.EVM.Enabled {
		err := svc.AddChain(types.ClientConfig{
			Chain:        types.ChainEVM,
			RPCURL:       cfg.EVM.RPCURL,
			ChainID:      cfg.EVM.ChainID,
			SignerSecret: cfg.EVM.SignerSecret,
			Policy: types.ChainPolicy{
				UnitsPerPoint:    cfg.EVM.UnitsPerPoint,
				MaxUnitsPerClaim: cfg.EVM.MaxUnitsPerClaim,
				MinUnitsPerClaim: cfg.EVM.MinUnitsPerClaim,
			},
		})
		if err != nil {
			log.Fatalf("attach evm backend: %v", err)
		}
	}

	server := NewServer(svc, zlog)
	srv := &http.Server{Addr: cfg.ListenAddress, Handler: server.Handler()}

	go func() {
		zlog.Info("rewardsd listening", map[string]any{"addr": cfg.ListenAddress})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	zlog.Info("shutting down rewardsd", nil)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Warn("graceful shutdown failed", map[string]any{"error": err.Error()})
	}
}
