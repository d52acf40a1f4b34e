package main

import (
	"fmt"
	"os"

	"github.com/nurpe/rental-contracts/internal/config"
	"github.com/nurpe/rental-contracts/internal/db"
	"github.com/nurpe/rental-contracts/internal/dispatch"
	"github.com/nurpe/rental-contracts/internal/excel"
	httphandler "github.com/nurpe/rental-contracts/internal/http"
	"github.com/nurpe/rental-contracts/internal/lock"
	"github.com/nurpe/rental-contracts/internal/logger"
	"github.com/nurpe/rental-contracts/internal/repository"
	"github.com/nurpe/rental-contracts/internal/schedule"
	"github.com/nurpe/rental-contracts/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load business timezone")
	}

	contractRepo := repository.NewContractRepository(database)
	clientRepo := repository.NewClientRepository(database)
	vehicleRepo := repository.NewVehicleRepository(database)

	var locker lock.Locker
	switch cfg.Lock.Backend {
	case config.LockBackendRedis:
		redisLocker, err := lock.NewRedisLocker(lock.RedisConfig{
			Addr:     cfg.Lock.RedisAddr,
			Password: cfg.Lock.RedisPassword,
			DB:       cfg.Lock.RedisDB,
		}, cfg.Lock.TTL, cfg.Lock.Wait)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer redisLocker.Close()
		locker = redisLocker
	default:
		locker = lock.NewMemoryLocker(cfg.Lock.Wait)
	}

	var renamer dispatch.Renamer
	if cfg.SideEffects.FolderRenameURL != "" {
		renamer = dispatch.NewFolderClient(cfg.SideEffects.FolderRenameURL, cfg.SideEffects.Timeout)
	}
	webhooks := cfg.SideEffects.Webhooks
	dispatcher := dispatch.NewDispatcher(
		dispatch.NewWebhookClient(cfg.SideEffects.Timeout),
		renamer,
		dispatch.URLs{
			Activation:    webhooks.ActivationURL,
			Cancellation:  webhooks.CancellationURL,
			Handover:      webhooks.HandoverURL,
			Return:        webhooks.ReturnURL,
			DepositRefund: webhooks.DepositRefundURL,
		},
		cfg.SideEffects.Timeout,
		log,
	)

	calc := schedule.NewCalculator(loc, cfg.Contracts.BankAccount)
	contractService := service.NewContractService(contractRepo, clientRepo, vehicleRepo, calc, locker, excel.NewGenerator(), log)
	lifecycleService := service.NewLifecycleService(contractRepo, clientRepo, dispatcher, calc, log)

	handler := httphandler.NewHandler(contractService, lifecycleService, loc, log)
	router := httphandler.NewRouter(handler, log, cfg.Environment, cfg.HTTP.AllowedOrigins)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Str("lock_backend", cfg.Lock.Backend).Msg("starting contracts service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
