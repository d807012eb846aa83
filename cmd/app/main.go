package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rental-booking-bot/internal/config"
	calAdapter "rental-booking-bot/internal/infra/adapters/calendar"
	oracleAdapter "rental-booking-bot/internal/infra/adapters/oracle"
	portalAdapter "rental-booking-bot/internal/infra/adapters/portal"
	waAdapter "rental-booking-bot/internal/infra/adapters/whatsapp"
	pg "rental-booking-bot/internal/infra/db/postgres"
	"rental-booking-bot/internal/infra/logging"
	"rental-booking-bot/internal/infra/metrics"
	red "rental-booking-bot/internal/infra/redis"
	"rental-booking-bot/internal/infra/sched"
	"rental-booking-bot/internal/infra/web"
	"rental-booking-bot/internal/infra/worker"
	"rental-booking-bot/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (verbose console logging)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, *devMode)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Repositories ----
	convRepo := red.NewConversationRepo(redisClient)
	locker := red.NewLocker(redisClient)
	apartmentRepo := pg.NewApartmentRepo(pool)
	bookingLogRepo := pg.NewBookingLogRepo(pool)

	// ---- Adapters ----
	oracle, err := oracleAdapter.NewOpenAIAdapter(cfg.Oracle.OpenAIKey, cfg.Oracle.Model)
	if err != nil {
		logger.Fatal().Err(err).Msg("oracle adapter")
	}

	signer := calAdapter.NewSigner(cfg.Calendar.SigningSecret)
	calendar, err := calAdapter.NewClient(cfg.Calendar.BaseURL, cfg.Calendar.Username, cfg.Calendar.Password, signer, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("calendar adapter")
	}

	browser := portalAdapter.NewBrowser()
	defer browser.Close()
	portal := portalAdapter.NewPortal(cfg.Portal.BaseURL, cfg.Portal.Login, cfg.Portal.Password,
		cfg.Portal.ServiceID, cfg.Portal.CookiePath, browser, logger)

	chat := waAdapter.NewClient(cfg.Chat.GatewayURL, cfg.Chat.Token, logger)

	// ---- Use cases ----
	bookingUC := usecase.NewBookingUseCase(calendar, bookingLogRepo, logger)
	paymentUC := usecase.NewPaymentUseCase(portal, cfg.Runtime.Dev, logger)

	timers := usecase.NewTimerTable()
	defer timers.Stop()

	dispatcher := usecase.NewDispatcher(
		convRepo, apartmentRepo, chat, oracle, bookingUC, paymentUC, timers, locker,
		usecase.DispatcherConfig{
			AdminChannelID:     cfg.Chat.AdminChannelID,
			NotifyDelay:        cfg.Booking.NotifyDelay,
			ExpireDelay:        cfg.Booking.ExpireDelay,
			RequiredPrepayment: cfg.Booking.RequiredPrepayment,
		},
		logger,
	)

	// ---- Background sweep ----
	expiryWorker := sched.NewExpiryWorker(cfg.Booking.SweepInterval, dispatcher, logger)
	go func() {
		if err := expiryWorker.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("expiry worker stopped")
		}
	}()

	// ---- Web ----
	dispatchPool := worker.NewPool(cfg.Web.Workers, logger)
	dispatchPool.Start(ctx)
	defer dispatchPool.Stop()

	server := web.NewServer(dispatcher, dispatchPool, convRepo, cfg.Web.APIKey, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Web.Port).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
