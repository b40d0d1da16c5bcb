// TOS Pool - Reward Vault Engine node
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tos-network/tos-pool/internal/api"
	"github.com/tos-network/tos-pool/internal/config"
	"github.com/tos-network/tos-pool/internal/dlv"
	"github.com/tos-network/tos-pool/internal/newrelic"
	"github.com/tos-network/tos-pool/internal/notify"
	"github.com/tos-network/tos-pool/internal/profiling"
	"github.com/tos-network/tos-pool/internal/rewardvault"
	"github.com/tos-network/tos-pool/internal/storage"
	"github.com/tos-network/tos-pool/internal/telemetry"
	"github.com/tos-network/tos-pool/internal/util"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("TOS Pool v%s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := util.InitLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	util.Infof("TOS Pool v%s starting", version)

	redis, err := storage.NewRedisClient(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		util.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	var apiServer *api.Server
	var pprofServer *profiling.Server
	var nrAgent *newrelic.Agent

	if cfg.Profiling.Enabled {
		pprofServer = profiling.NewServer(&cfg.Profiling)
		if err := pprofServer.Start(); err != nil {
			util.Errorf("Failed to start pprof server: %v", err)
		}
	}

	if cfg.NewRelic.Enabled {
		nrAgent = newrelic.NewAgent(&cfg.NewRelic)
		if err := nrAgent.Start(); err != nil {
			util.Errorf("Failed to start New Relic agent: %v", err)
		}
	}

	// Initialize the reward vault engine over a Redis-backed DLV adapter.
	dlvAdapter, err := dlv.NewPersistentSimulator(redis)
	if err != nil {
		util.Fatalf("Failed to initialize reward vault adapter: %v", err)
	}
	vaultManager := rewardvault.New(dlvAdapter, rewardvault.Options{
		TickInterval:           cfg.Vault.TickInterval,
		ResultChannelCapacity:  cfg.Vault.ResultChannelCapacity,
		RatioSumToleranceLow:   cfg.Vault.RatioSumToleranceLow,
		RatioSumToleranceHigh:  cfg.Vault.RatioSumToleranceHigh,
		PostExpiryGrace:        cfg.Vault.PostExpiryGrace,
		MaxDistributionRetries: cfg.Vault.MaxDistributionRetries,
		RetryBackoff:           cfg.Vault.RetryBackoff,
		Claimant:               dlv.KeyPair{Public: []byte(cfg.Pool.FeeAddress)},
		RateSchedule: &rewardvault.RateSchedule{
			BaseRatePerByteDay: cfg.Vault.RateSchedule.BaseRatePerByteDay,
			RetrievalRate:      cfg.Vault.RateSchedule.RetrievalRate,
			OperationRate:      cfg.Vault.RateSchedule.OperationRate,
			UptimeMultiplier:   cfg.Vault.RateSchedule.UptimeMultiplier,
			RegionMultipliers:  cfg.Vault.RateSchedule.RegionMultipliers,
		},
		Reporter: telemetry.NewVaultReporter(nrAgent),
	})
	if err := vaultManager.Initialize(); err != nil {
		util.Fatalf("Failed to start reward vault engine: %v", err)
	}

	// Relay distribution outcomes to Discord/Telegram if configured.
	vaultNotifier := notify.NewNotifier(&notify.WebhookConfig{
		DiscordURL:   cfg.Notify.DiscordURL,
		TelegramBot:  cfg.Notify.TelegramBot,
		TelegramChat: cfg.Notify.TelegramChat,
		Enabled:      cfg.Notify.Enabled,
		PoolName:     cfg.Pool.Name,
		PoolURL:      cfg.Notify.PoolURL,
	})
	go func() {
		for result := range vaultManager.Results() {
			vaultNotifier.NotifyVaultDistribution(result.VaultID, result.Success, result.Error)
		}
	}()

	if cfg.API.Enabled {
		apiServer = api.NewServer(cfg, redis)
		apiServer.SetVaultManager(vaultManager)
		if err := apiServer.Start(); err != nil {
			util.Fatalf("Failed to start API server: %v", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	util.Info("Pool started successfully. Press Ctrl+C to stop.")

	<-sigChan
	util.Info("Shutting down...")

	if apiServer != nil {
		apiServer.Stop()
	}
	vaultManager.Stop()
	if pprofServer != nil {
		pprofServer.Stop()
	}
	if nrAgent != nil {
		nrAgent.Stop()
	}

	util.Info("Pool stopped")
}
