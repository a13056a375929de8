package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/ruokas/lovos-dashboard-sub000/internal/alerting"
	"github.com/ruokas/lovos-dashboard-sub000/internal/bedstate"
	"github.com/ruokas/lovos-dashboard-sub000/internal/common/database"
	logpkg "github.com/ruokas/lovos-dashboard-sub000/internal/common/logger"
	mqttcommon "github.com/ruokas/lovos-dashboard-sub000/internal/common/mqtt"
	rediscommon "github.com/ruokas/lovos-dashboard-sub000/internal/common/redis"
	"github.com/ruokas/lovos-dashboard-sub000/internal/config"
	"github.com/ruokas/lovos-dashboard-sub000/internal/consumer"
	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
	httpapi "github.com/ruokas/lovos-dashboard-sub000/internal/http"
	"github.com/ruokas/lovos-dashboard-sub000/internal/ingest"
	"github.com/ruokas/lovos-dashboard-sub000/internal/notify"
	"github.com/ruokas/lovos-dashboard-sub000/internal/reporting"
	"github.com/ruokas/lovos-dashboard-sub000/internal/repository"
	"github.com/ruokas/lovos-dashboard-sub000/internal/scheduler"
	"github.com/ruokas/lovos-dashboard-sub000/internal/service"
	"github.com/ruokas/lovos-dashboard-sub000/internal/settings"
	"github.com/ruokas/lovos-dashboard-sub000/internal/store"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	log, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "lovos-dashboard")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting lovos-dashboard service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 数据库（可选）：不可用时任务和 KPI 使用本地内存
	var db *sql.DB
	if cfg.DatabaseEnabled {
		db, err = database.NewPostgresDB(&cfg.Database)
		if err != nil {
			log.Warn("Database unavailable, running in local mode", zap.Error(err))
			db = nil
		}
	}

	// Redis（可选）：设置、视图缓存、告警流、床位事件流
	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient = rediscommon.NewRedisClient(&cfg.Redis)
		if err := rediscommon.Ping(ctx, redisClient); err != nil {
			log.Warn("Redis unavailable, using in-memory KV", zap.Error(err))
			_ = rediscommon.Close(redisClient)
			redisClient = nil
		}
	}
	var kv store.KV = store.NewMemoryKV()
	if redisClient != nil {
		kv = store.NewRedisKV(redisClient)
	}

	// MQTT（可选）：告警发布 + 床位事件订阅
	var mqttClient *mqttcommon.Client
	if cfg.MQTTEnabled {
		mqttClient, err = mqttcommon.NewClient(&cfg.MQTT, log)
		if err != nil {
			log.Warn("MQTT unavailable, alerts and MQTT bed events disabled", zap.Error(err))
			mqttClient = nil
		}
	}

	prov := settings.NewProvider(kv, cfg.Dashboard.SettingsKey, log)
	prov.Load(ctx)

	beds := bedstate.NewBuilder()
	tracker := alerting.NewTracker(alerting.Markers{
		Cleaning:  cfg.Alerting.CleaningMarker,
		SLABreach: cfg.Alerting.SLABreachMarker,
	})

	var remoteTasks repository.TaskRepository
	var remoteBeds reporting.RemoteBeds
	if db != nil {
		remoteTasks = repository.NewPostgresTaskRepository(db)
		remoteBeds = repository.NewBedStatsRepository(db, nil, log)
	}
	gateway := repository.NewTaskGateway(remoteTasks, repository.NewMemoryTaskRepo(), cfg.Dashboard.RemoteTimeout, log)

	aggregator := reporting.NewAggregator(remoteBeds, beds, func() alerting.Thresholds {
		return prov.Get().Thresholds()
	}, cfg.Dashboard.RemoteTimeout, kv, log)

	var templates []domain.RecurringTemplate
	if cfg.Scheduler.TemplatesFile != "" {
		templates, err = scheduler.LoadTemplatesFile(cfg.Scheduler.TemplatesFile)
		if err != nil {
			log.Fatal("Failed to load recurring templates", zap.String("file", cfg.Scheduler.TemplatesFile), zap.Error(err))
		}
		log.Info("Loaded recurring templates", zap.Int("count", len(templates)))
	}

	svc := service.NewDashboardService(service.Deps{
		RowSource:  newRowSource(cfg, log),
		Beds:       beds,
		Tracker:    tracker,
		Tasks:      store.NewTaskStore(),
		Gateway:    gateway,
		Templates:  templates,
		Settings:   prov,
		Publisher:  newPublisher(cfg, redisClient, mqttClient, log),
		Aggregator: aggregator,
		KV:         kv,
	}, service.Options{
		LookaheadDays:    cfg.Scheduler.LookaheadDays,
		RetentionMinutes: cfg.Scheduler.RetentionMinutes,
		ViewCacheKey:     cfg.Dashboard.ViewCacheKey,
	}, log)

	// 床位事件入口
	if mqttClient != nil {
		if err := consumer.NewMQTTBedEvents(beds, log).Subscribe(mqttClient, cfg.Events.MQTTTopic, cfg.MQTT.QoS); err != nil {
			log.Error("Failed to subscribe to MQTT bed events", zap.Error(err))
		}
	}

	errChan := make(chan error, 3)
	if redisClient != nil && cfg.Events.Stream != "" {
		eventConsumer := consumer.NewEventConsumer(
			redisClient,
			beds,
			log,
			cfg.Events.Stream,
			cfg.Events.ConsumerGroup,
			cfg.Events.ConsumerName,
			int64(cfg.Events.BatchSize),
		)
		go func() {
			if err := eventConsumer.Start(ctx); err != nil {
				errChan <- err
			}
		}()
	}

	// 启动轮询刷新
	go func() {
		if err := svc.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	router := httpapi.NewRouter(log)
	router.RegisterDashboardRoutes(httpapi.NewDashboardHandler(svc, aggregator, log))
	router.RegisterSettingsRoutes(httpapi.NewSettingsHandler(prov, log))
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// 监听系统信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		log.Error("Service error", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down HTTP server", zap.Error(err))
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if redisClient != nil {
		if err := rediscommon.Close(redisClient); err != nil {
			log.Error("Error closing redis connection", zap.Error(err))
		}
	}
	if db != nil {
		if err := database.Close(db); err != nil {
			log.Error("Error closing database connection", zap.Error(err))
		}
	}

	log.Info("Service stopped")
}

// newRowSource CSV_URL 优先，其次 XLSX_PATH
func newRowSource(cfg *config.Config, log *zap.Logger) ingest.RowSource {
	switch {
	case cfg.Ingest.CSVURL != "":
		return ingest.NewCSVSource(cfg.Ingest.CSVURL, cfg.Ingest.Timeout, cfg.Ingest.Retries, log)
	case cfg.Ingest.XLSXPath != "":
		return ingest.NewXLSXSource(cfg.Ingest.XLSXPath, cfg.Ingest.XLSXSheet, log)
	default:
		log.Info("No row source configured, bed state comes from events only")
		return nil
	}
}

func newPublisher(cfg *config.Config, redisClient *redis.Client, mqttClient *mqttcommon.Client, log *zap.Logger) notify.Publisher {
	pubs := notify.Multi{notify.NewLogPublisher(log)}
	if mqttClient != nil && cfg.Alerting.MQTTAlertTopic != "" {
		pubs = append(pubs, notify.NewMQTTPublisher(mqttClient, cfg.Alerting.MQTTAlertTopic, cfg.MQTT.QoS))
	}
	if redisClient != nil && cfg.Alerting.AlertStream != "" {
		pubs = append(pubs, notify.NewStreamPublisher(redisClient, cfg.Alerting.AlertStream))
	}
	return pubs
}
