package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"riskdesk/internal/auth"
	"riskdesk/internal/config"
	cronrunner "riskdesk/internal/cron"
	"riskdesk/internal/db"
	"riskdesk/internal/handler"
	"riskdesk/internal/logger"
	"riskdesk/internal/notify"
	gormrepository "riskdesk/internal/repository/gorm"
	"riskdesk/internal/risk"
	"riskdesk/internal/service"
	"riskdesk/internal/stream"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("RD_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("RD_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Delivery channels. In-app and push are always on; Telegram, Discord and
	// email join when configured.
	channels := []notify.Channel{
		&notify.InAppChannel{Store: store},
	}
	if cfg.Notify.Push.Enabled {
		channels = append(channels, &notify.PushChannel{Store: store, Config: cfg.Notify.Push})
	}
	if cfg.Notify.Telegram.Enabled && cfg.Notify.Telegram.Token != "" {
		tg, err := notify.NewTelegramChannel(cfg.Notify.Telegram)
		if err != nil {
			logger.Warn("telegram channel init failed", zap.Error(err))
		} else {
			channels = append(channels, tg)
		}
	}
	if cfg.Notify.Discord.Enabled {
		channels = append(channels, &notify.DiscordChannel{Config: cfg.Notify.Discord})
	}
	dispatcher := notify.NewDispatcher(logger, cfg.Notify.QueueSize, cfg.Notify.Timeout, channels...)
	go func() {
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("notification dispatcher stopped", zap.Error(err))
		}
	}()

	evaluator := risk.Evaluator{
		WarnUsagePct: cfg.Risk.WarnUsagePct,
		CloseHourUTC: cfg.Risk.TradingDayCloseHourUTC,
	}
	lockController := &service.LockController{Repo: store, Logger: logger, Events: dispatcher}
	dailyResetSvc := &service.DailyResetService{
		Repo:                    store,
		Logger:                  logger,
		Flags:                   settingsSvc,
		AlertRetentionDays:      cfg.Risk.AlertRetentionDays,
		PsychologyRetentionDays: cfg.Risk.PsychologyRetentionDays,
	}
	deadlineSvc := &service.DeadlineMonitorService{Repo: store, Logger: logger, Flags: settingsSvc, Events: dispatcher}
	inactivitySvc := &service.InactivityMonitorService{Repo: store, Logger: logger, Flags: settingsSvc, Events: dispatcher}
	emailClient := &notify.EmailClient{Config: cfg.Notify.Email}
	otpSvc := &auth.OTPService{Repo: store, Logger: logger, Email: emailClient, Config: cfg.Auth}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	breakerHandler := &handler.BreakerHandler{
		Repo:       store,
		Controller: lockController,
		Eval:       evaluator,
		Flags:      settingsSvc,
	}
	breakerHandler.Register(engine)
	jobsHandler := &handler.JobsHandler{
		DailyReset: dailyResetSvc,
		Deadline:   deadlineSvc,
		Inactivity: inactivitySvc,
	}
	jobsHandler.Register(engine)
	accountHandler := &handler.AccountHandler{Repo: store}
	accountHandler.Register(engine)
	signalHandler := &handler.SignalHandler{Repo: store}
	signalHandler.Register(engine)
	notificationHandler := &handler.NotificationHandler{Repo: store}
	notificationHandler.Register(engine)
	withdrawalHandler := &handler.WithdrawalHandler{Repo: store}
	withdrawalHandler.Register(engine)
	authHandler := &handler.AuthHandler{OTP: otpSvc}
	authHandler.Register(engine)
	settingsHandler := &handler.SystemSettingsHandler{Settings: settingsSvc}
	settingsHandler.Register(engine)
	if cfg.Stream.Enabled {
		streamHandler := &stream.StatusStreamHandler{
			Repo:         store,
			Logger:       logger,
			Flags:        settingsSvc,
			PushInterval: cfg.Stream.PushInterval,
		}
		streamHandler.Register(engine)
	}

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add("daily_reset", cfg.Cron.DailyReset, func(ctx context.Context) {
			sum, err := dailyResetSvc.RunOnce(ctx)
			if err != nil {
				logger.Warn("cron daily reset failed", zap.Error(err))
				return
			}
			logger.Info("cron daily reset ok",
				zap.Int("processed", sum.Processed),
				zap.Int("created", sum.DailyStatsCreated),
				zap.Int("scaled", sum.ScalingUpdates),
				zap.String("date", sum.Date),
			)
		}); err != nil {
			logger.Warn("cron register daily reset failed", zap.Error(err))
		}
		if _, err := cronRunner.Add("deadline_monitor", cfg.Cron.DeadlineMonitor, func(ctx context.Context) {
			sum, err := deadlineSvc.RunOnce(ctx)
			if err != nil {
				logger.Warn("cron deadline monitor failed", zap.Error(err))
				return
			}
			if sum.AlertsSent > 0 {
				logger.Info("cron deadline monitor ok",
					zap.Int("checked", sum.AccountsChecked),
					zap.Int("alerts", sum.AlertsSent),
				)
			}
		}); err != nil {
			logger.Warn("cron register deadline monitor failed", zap.Error(err))
		}
		if _, err := cronRunner.Add("inactivity_monitor", cfg.Cron.InactivityMonitor, func(ctx context.Context) {
			sum, err := inactivitySvc.RunOnce(ctx)
			if err != nil {
				logger.Warn("cron inactivity monitor failed", zap.Error(err))
				return
			}
			if sum.WarningsSent > 0 || sum.AccountsFailed > 0 {
				logger.Info("cron inactivity monitor ok",
					zap.Int("checked", sum.AccountsChecked),
					zap.Int("warnings", sum.WarningsSent),
					zap.Int("failed", sum.AccountsFailed),
				)
			}
		}); err != nil {
			logger.Warn("cron register inactivity monitor failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
