package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"symposium/cmd/buildCFG"
	"symposium/internal/api/api"
	"symposium/internal/consumerWorker"
	"symposium/internal/gateway"
	"symposium/internal/mailer"
	"symposium/internal/rabbit"
	"symposium/internal/repo"
	"symposium/internal/service"
	"symposium/internal/ticket"
)

func main() {
	zlog.Init()
	log := zlog.Logger

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", ""); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildCFG.BuildServerConfig(cfg, &log)

	masterDSN, slaveDSNs, poolOptions, err := buildCFG.BuildDBConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build DB config")
	}
	db, err := dbpg.New(masterDSN, slaveDSNs, poolOptions)
	if err != nil {
		log.Fatal().Msgf("failed to connect to DB: %v", err)
	}
	repository, err := repo.NewRepository(db, &log)
	if err != nil {
		log.Fatal().Msgf("failed to initialize repository: %v", err)
	}
	log.Info().Msg("Database connected successfully")

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot get working directory")
	}
	if err := repository.MigrateUp(filepath.Join(cwd, "migrations/postgres")); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("Migrations applied successfully")

	rabbitCfg, err := buildCFG.BuildRabbitConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load RabbitMQ config")
	}
	rmq, err := rabbit.NewRabbit(rabbitCfg, &log)
	if err != nil {
		log.Fatal().Msgf("failed to connect to RabbitMQ: %v", err)
	}
	defer rmq.Close()

	gwCfg, err := buildCFG.BuildRazorpayConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load Razorpay config")
	}
	svcCfg, err := buildCFG.BuildServiceConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load service config")
	}

	serviceInstance := service.NewService(
		repository,
		&log,
		gateway.NewRazorpay(gwCfg, &log),
		gateway.NewSignatures(gwCfg.KeySecret, gwCfg.WebhookSecret),
		ticket.NewSigner(buildCFG.BuildTicketSecret(cfg, &log)),
		rmq,
		svcCfg,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	reader := consumerWorker.NewReader(rmq, mailer.New(buildCFG.BuildMailerConfig(cfg, &log), &log), &log)
	reader.Start(workerCtx)

	app := api.NewRouters(&api.Routers{
		Service:     serviceInstance,
		Log:         &log,
		Limits:      buildCFG.BuildRateLimits(cfg, &log),
		CORSOrigins: serverCfg.CORSOrigins,
	})
	srv := &http.Server{
		Addr:              ":" + serverCfg.Port,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Msgf("Error shutting down server: %v", err)
	}

	cancelWorkers()
	reader.Stop()
	log.Info().Msg("Shutdown complete")
}
