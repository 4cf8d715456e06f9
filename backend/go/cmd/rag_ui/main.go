package main

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/internal/database/minio"
	"RagDesk/backend/go/internal/database/mysql"
	"RagDesk/backend/go/internal/discovery/etcd"
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/internal/rag_ui/api"
	"RagDesk/backend/go/internal/rag_ui/auth"
	"RagDesk/backend/go/internal/rag_ui/service"
	"RagDesk/backend/go/internal/rag_ui/store"
	httpserver "RagDesk/backend/go/pkg/http"
	"RagDesk/backend/go/pkg/logger"
	"RagDesk/backend/go/pkg/ragclient"
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"
)

const (
	serviceName  = "rag_ui"
	mirrorPrefix = "uploads"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// 2. 初始化 Logger
	logger.InitFromString(cfg.Logger.Level)
	appLogger := logger.New(serviceName, "", "")

	hub, err := logger.InitSentry(cfg.Sentry, cfg.App.Version, serviceName)
	if err != nil && !errors.Is(err, logger.ErrSentryDisabled) {
		appLogger.Warn(fmt.Sprintf("Sentry disabled: %v", err))
	}
	defer logger.FlushSentry(hub)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 本地存储
	files, err := store.NewFileStore(cfg.UI.UploadDir)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to prepare upload directory: %v", err))
	}
	cfgStore := store.NewConfigStore(cfg.UI.ConfigFile)
	appLogger.Info(fmt.Sprintf("Uploads in %s, settings in %s", files.Dir(), cfgStore.Path()))

	// 4. 可选组件: MinIO 镜像, MySQL 文件登记
	var deps service.Deps
	if cfg.Databases.MinIO.Endpoint != "" {
		mc, err := minio.GetClient(ctx, &cfg.Databases.MinIO)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to connect to MinIO: %v", err))
		}
		deps.Mirror = store.NewMinIOMirror(mc, cfg.Databases.MinIO.Bucket, mirrorPrefix)
		appLogger.Info(fmt.Sprintf("Uploads mirrored to bucket %s", cfg.Databases.MinIO.Bucket))
	}
	if cfg.Databases.MySQL.Address != "" {
		db, err := mysql.GetDB(&cfg.Databases.MySQL, &models.UploadedFile{})
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to connect to MySQL: %v", err))
		}
		defer mysql.Close()
		registry, err := store.NewGormFileRegistry(db)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to prepare file registry: %v", err))
		}
		deps.Registry = registry
		appLogger.Info("Upload registry on MySQL enabled")
	}

	// 5. 后端地址: etcd 发现优先, 否则使用固定地址
	clientOpts := []httpserver.ClientOption{
		httpserver.WithTimeout(config.ParseDuration(cfg.UI.BackendTimeout, 30*time.Second)),
	}
	var backend service.BackendProvider
	if len(cfg.Databases.Etcd.Endpoints) > 0 {
		sd, err := etcd.NewServiceDiscovery(cfg.Databases.Etcd.Endpoints, appLogger)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to create service discovery client: %v", err))
		}
		defer sd.Close()
		resolver := sd.NewResolver(cfg.Server.ServiceName)
		if err := resolver.Refresh(ctx); err != nil {
			appLogger.Warn(fmt.Sprintf("No %s instance yet: %v", cfg.Server.ServiceName, err))
		}
		go resolver.Watch(ctx)
		backend = service.NewDiscoveredBackend(resolver, cfg.Middleware.CircuitBreaker, clientOpts...)
		appLogger.Info(fmt.Sprintf("Resolving backend %s through etcd", cfg.Server.ServiceName))
	} else {
		client, err := ragclient.New(cfg.UI.BackendURL, cfg.Middleware.CircuitBreaker, clientOpts...)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to create backend client: %v", err))
		}
		backend = service.StaticBackend{B: client}
		appLogger.Info(fmt.Sprintf("Backend at %s", client.BaseURL()))
	}

	authn, err := auth.New(cfg.Auth)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Invalid auth configuration: %v", err))
	}
	if authn.Enabled() {
		appLogger.Info(fmt.Sprintf("Login required, %d account(s) configured", len(cfg.Auth.Accounts)))
	}

	svc := service.NewUIService(files, cfgStore, backend, deps, appLogger)

	// 6. HTTP 服务器
	srv, err := httpserver.NewServer(cfg,
		httpserver.WithAddress(cfg.Server.UIAddr),
		httpserver.WithLogger(appLogger),
		httpserver.WithSentry(hub),
	)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to create HTTP server: %v", err))
	}
	api.RegisterRoutes(srv.Engine(), api.NewAPI(svc, authn, appLogger,
		api.WithTitle(cfg.UI.Title),
		api.WithMaxUploadMB(cfg.UI.MaxUploadMB),
	))

	if err := srv.Run(ctx); err != nil {
		appLogger.Error(fmt.Sprintf("UI server stopped with error: %v", err))
	}
	appLogger.Info("RAG UI stopped")
}
