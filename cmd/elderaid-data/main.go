package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elderaid/common/logger"
	mqttcommon "elderaid/common/mqtt"
	rediscommon "elderaid/common/redis"
	"elderaid/internal/aggregator"
	"elderaid/internal/chat"
	"elderaid/internal/config"
	"elderaid/internal/events"
	"elderaid/internal/geocode"
	httpapi "elderaid/internal/httpapi"
	"elderaid/internal/media"
	"elderaid/internal/reminder"
	"elderaid/internal/service"
	"elderaid/internal/store"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "elderaid-data")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting elderaid-data service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(ctx, redisClient); err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	repos, db := service.OpenRepositories(cfg, redisClient, log)
	// 结构性变化（药品、联系人、设置）先删除看板缓存，再发布到 Redis Streams
	cache := aggregator.NewCacheManager(store.NewRedisKV(redisClient), cfg.Dashboard.CacheTTL, log)
	publisher := aggregator.NewEvictingPublisher(events.NewStreamPublisher(redisClient, cfg.Events.Stream, log), cache, log)

	// 服药提醒：MQTT 可用时推送到设备，否则只记录日志
	var mqttClient *mqttcommon.Client
	var reminders service.ReminderScheduler
	var scheduler *reminder.Scheduler
	if cfg.Reminder.Enabled {
		var notifier reminder.Notifier = reminder.NewLogNotifier(log)
		if cfg.MQTT.Enabled {
			if c, err := mqttcommon.NewClient(&cfg.MQTT.MQTTConfig, log); err == nil {
				mqttClient = c
				notifier = reminder.NewMQTTNotifier(c, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS, log)
			} else {
				log.Warn("MQTT enabled but connection failed, reminders will only be logged", zap.Error(err))
			}
		}
		notifier = service.NewNotificationGate(repos.Preferences, notifier, log)
		scheduler = reminder.NewScheduler(cfg.Reminder.Location(), notifier, log)
		if _, err := service.RestoreReminders(ctx, repos, scheduler, log); err != nil {
			log.Warn("Failed to restore medication reminders", zap.Error(err))
		}
		scheduler.Start()
		reminders = scheduler
	}

	var photos media.Store
	if cfg.ObjectStore.Enabled {
		if s, err := media.NewMinioStore(&cfg.ObjectStore.ObjectStoreConfig); err != nil {
			log.Warn("Object store enabled but client creation failed, uploads disabled", zap.Error(err))
		} else if err := s.EnsureBucket(ctx); err != nil {
			log.Warn("Object store bucket unavailable, uploads disabled", zap.Error(err))
		} else {
			photos = s
		}
	}

	var geocoder geocode.Geocoder
	if cfg.Geocode.Enabled {
		geocoder = geocode.NewNominatimClient(cfg.Geocode.BaseURL, cfg.Geocode.UserAgent, cfg.Geocode.Timeout, log)
	}

	var responder chat.Responder = chat.NewRulesResponder()
	if cfg.Chat.Responder == "llm" {
		if cfg.Chat.LLM.APIKey == "" {
			log.Warn("LLM responder selected without API key, using rules responder")
		} else {
			responder = chat.NewLLMResponder(chat.LLMConfig{
				BaseURL: cfg.Chat.LLM.BaseURL,
				APIKey:  cfg.Chat.LLM.APIKey,
				Model:   cfg.Chat.LLM.Model,
				Timeout: cfg.Chat.LLM.Timeout,
			}, log)
		}
	}

	loc := cfg.Reminder.Location()

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoutes()
	router.RegisterMedicationRoutes(httpapi.NewMedicationHandler(
		service.NewMedicationService(repos.Medications, repos.Status, reminders, publisher, log), loc, log))
	router.RegisterContactRoutes(httpapi.NewContactHandler(
		service.NewContactService(repos.Contacts, publisher, log), log))
	router.RegisterMemoryRoutes(httpapi.NewMemoryHandler(
		service.NewMemoryService(repos.Memories, photos, publisher, log), log))
	router.RegisterChatRoutes(httpapi.NewChatHandler(
		service.NewChatService(repos.Chat, repos.Status, responder, cfg.Chat.HistoryLimit, publisher, log), 50, log))
	router.RegisterStatusRoutes(httpapi.NewStatusHandler(
		service.NewStatusService(repos.Status, repos.Preferences, geocoder, publisher, log), log))
	router.RegisterPreferencesRoutes(httpapi.NewPreferencesHandler(
		service.NewPreferencesService(repos.Preferences, publisher, log), log))
	router.RegisterDashboardRoutes(httpapi.NewDashboardHandler(
		service.NewDashboardService(repos, cfg.Dashboard.RecentWindow, log), cache, loc, log))
	router.RegisterReportRoutes(httpapi.NewReportHandler(
		service.NewReportService(repos.Medications, log), loc, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Error("HTTP server error", zap.Error(err))
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}

	log.Info("Service stopped")
}
