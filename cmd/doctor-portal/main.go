package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"doctor-portal/common/caselogic"
	"doctor-portal/common/database"
	logpkg "doctor-portal/common/logger"
	mqttcommon "doctor-portal/common/mqtt"
	rediscommon "doctor-portal/common/redis"
	"doctor-portal/internal/apiclient"
	"doctor-portal/internal/config"
	"doctor-portal/internal/consumer"
	httpapi "doctor-portal/internal/http"
	"doctor-portal/internal/repository"
	"doctor-portal/internal/service"
	"doctor-portal/internal/session"

	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "doctor-portal")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting doctor-portal service",
		zap.String("backend", cfg.Backend.BaseURL),
		zap.String("chat_claim_policy", string(cfg.Portal.ChatClaimPolicy)),
		zap.Duration("sla_target", cfg.Portal.SLATarget),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Redis（会话与未读数缓存）
	redisClient, err := rediscommon.Connect(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	checks := []httpapi.HealthCheck{{
		Name:  "redis",
		Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}}

	// 2. PostgreSQL 审计日志（可选）
	var (
		db    *sql.DB
		audit service.AuditRecorder
	)
	if cfg.DatabaseEnabled {
		db, err = database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer database.Close(db)

		auditRepo := repository.NewAuditRepository(db, logger)
		if err := auditRepo.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to ensure audit schema", zap.Error(err))
		}
		audit = auditRepo
		checks = append(checks, httpapi.HealthCheck{Name: "postgres", Check: db.PingContext})
	}

	// 3. 后端客户端与会话
	client := apiclient.NewClient(cfg.Backend, logger)
	sessions := session.NewManager(
		client,
		session.NewRedisStore(redisClient, cfg.Portal.SessionKeyPrefix),
		cfg.Portal.SessionRefreshBefore,
		logger,
	)
	client.OnUnauthorized(sessions.InvalidateCredentials)

	// 4. 业务服务
	annotator := service.NewAnnotator(cfg.Portal.SLATarget, caselogic.EditPolicy{
		RenewOnUpdate: cfg.Portal.EditRenewOnUpdate,
	})
	cases := service.NewCaseService(client, annotator, service.CaseServiceOptions{
		ChatPolicy:   cfg.Portal.ChatClaimPolicy,
		MessageLimit: cfg.Portal.MessagePageSize,
		Audit:        audit,
	}, logger)
	tracker := service.NewUnreadTracker(client, sessions, service.NewRedisKVStore(redisClient), cfg.Portal.UnreadPollInterval, logger)
	defer tracker.Close()
	sessions.OnInvalidate(tracker.Untrack)

	// 5. MQTT 病例事件（可选）
	if cfg.MQTTEnabled {
		mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, logger)
		if err != nil {
			logger.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		defer mqttClient.Disconnect()

		events := consumer.NewCaseEventConsumer(mqttClient, tracker, cfg.CaseEventTopic, logger)
		go func() {
			if err := events.Start(ctx); err != nil {
				logger.Error("Case event consumer failed", zap.Error(err))
			}
		}()
		defer events.Stop()
	}

	// 6. HTTP
	handler := httpapi.NewPortalHandler(httpapi.Deps{
		Sessions:  sessions,
		Cases:     cases,
		Dashboard: service.NewDashboardService(client, annotator, logger),
		Exporter:  service.NewHistoryExporter(client, annotator, logger),
		Unread:    tracker,
		Settings: httpapi.Settings{
			SLATargetMinutes:   int(cfg.Portal.SLATarget.Minutes()),
			ChatClaimPolicy:    cfg.Portal.ChatClaimPolicy,
			EditWindowMinutes:  int(caselogic.DiagnosisEditWindow.Minutes()),
			EditRenewOnUpdate:  cfg.Portal.EditRenewOnUpdate,
			UnreadPollSeconds:  int(cfg.Portal.UnreadPollInterval.Seconds()),
			MessagePollSeconds: int(cfg.Portal.MessagePollInterval.Seconds()),
			MessagePageSize:    cfg.Portal.MessagePageSize,
		},
		Checks: checks,
	}, logger)
	srv := httpapi.NewServer(cfg.HTTP.Addr, handler.Handler(), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// 等待信号或错误
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", zap.Error(err))
	}

	logger.Info("Service stopped")
}
