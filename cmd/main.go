package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/fund_tracker_bot/config"
	"github.com/KotFed0t/fund_tracker_bot/data"
	"github.com/KotFed0t/fund_tracker_bot/data/cache"
	"github.com/KotFed0t/fund_tracker_bot/data/session"
	"github.com/KotFed0t/fund_tracker_bot/internal/externalApi/assetsApi"
	"github.com/KotFed0t/fund_tracker_bot/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/fund_tracker_bot/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/fund_tracker_bot/internal/scheduler"
	"github.com/KotFed0t/fund_tracker_bot/internal/service/exportService"
	"github.com/KotFed0t/fund_tracker_bot/internal/service/holdingsViewModel"
	"github.com/KotFed0t/fund_tracker_bot/internal/service/sessionGate"
	"github.com/KotFed0t/fund_tracker_bot/internal/tgbot"
	"github.com/KotFed0t/fund_tracker_bot/internal/transport/telegram"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.String("logLevel", cfg.LogLevel), slog.String("assetsApiUrl", cfg.API.AssetsApi.Url))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient, err := data.NewRedisClient(ctx, cfg)
	if err != nil {
		slog.Error("Error while connecting Redis", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	assetsApiClient := assetsApi.New(cfg)

	gate := sessionGate.New(assetsApiClient)
	views := holdingsViewModel.NewRegistry(assetsApiClient, redisCache)
	gate.OnSessionEnd(views.Close)

	sched, err := scheduler.New()
	if err != nil {
		slog.Error("error while creating scheduler", slog.String("err", err.Error()))
		os.Exit(1)
	}

	var exporter *exportService.ExportService
	if cfg.GoogleDrive.Enabled {
		googleCloudStorage, err := googleDriveApi.New(ctx, cfg)
		if err != nil {
			slog.Error("error while creating google drive client", slog.String("err", err.Error()))
			os.Exit(1)
		}
		exporter = exportService.New(cfg, xlsxGenerator.New(), googleCloudStorage)

		err = sched.NewIntervalJob("delete old drive files", googleCloudStorage.DeleteOldFiles, cfg.Jobs.DeleteOldFilesInterval, true)
		if err != nil {
			os.Exit(1)
		}
	} else {
		exporter = exportService.New(cfg, xlsxGenerator.New(), nil)
	}

	sched.Start()
	defer sched.Stop()

	tgController := telegram.NewController(cfg, gate, views, exporter, redisSession)

	tgBot, err := tgbot.New(cfg, tgController, redisSession)
	if err != nil {
		os.Exit(1)
	}
	tgBot.Start()
	defer tgBot.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
