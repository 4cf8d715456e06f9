package main

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/internal/database/kafka"
	"RagDesk/backend/go/internal/database/mongo"
	"RagDesk/backend/go/internal/database/redis"
	"RagDesk/backend/go/internal/discovery/etcd"
	"RagDesk/backend/go/internal/engine"
	"RagDesk/backend/go/internal/rag_backend/api"
	"RagDesk/backend/go/internal/rag_backend/cache"
	"RagDesk/backend/go/internal/rag_backend/publisher"
	"RagDesk/backend/go/internal/rag_backend/service"
	"RagDesk/backend/go/internal/rag_backend/store"
	"RagDesk/backend/go/internal/task"
	grpcserver "RagDesk/backend/go/pkg/grpc"
	httpserver "RagDesk/backend/go/pkg/http"
	"RagDesk/backend/go/pkg/logger"
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"
)

const serviceName = "rag_backend"

func main() {
	// 1. 加载配置
	cfgPath := config.Path()
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// 2. 初始化 Logger
	logger.InitFromString(cfg.Logger.Level)
	appLogger := logger.New(serviceName, "", "")
	appLogger.Info(fmt.Sprintf("Configuration loaded from %s", cfgPath))

	// 前端保存的配置在下次启动时生效
	if applied, err := cfg.ApplyRAGConfig(cfg.UI.ConfigFile); err != nil {
		appLogger.Warn(fmt.Sprintf("Ignoring saved RAG config %s: %v", cfg.UI.ConfigFile, err))
	} else if applied {
		appLogger.Info(fmt.Sprintf("Applied saved RAG config %s", cfg.UI.ConfigFile))
	}

	hub, err := logger.InitSentry(cfg.Sentry, cfg.App.Version, serviceName)
	if err != nil && !errors.Is(err, logger.ErrSentryDisabled) {
		appLogger.Warn(fmt.Sprintf("Sentry disabled: %v", err))
	}
	defer logger.FlushSentry(hub)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 初始化 RAG 引擎
	eng, err := engine.Build(ctx, cfg, hub, appLogger)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to build RAG engine: %v", err))
	}
	defer func() {
		if err := eng.Close(); err != nil {
			appLogger.Error(fmt.Sprintf("Failed to close RAG engine cleanly: %v", err))
		}
	}()
	appLogger.Info(fmt.Sprintf("RAG engine ready, working dir %s", cfg.Processing.WorkingDir))

	// 4. 可选组件: 查询缓存, 任务归档, 任务事件
	deps := service.Deps{}
	runnerDeps := service.RunnerDeps{Sentry: hub}

	var rdb *goredis.Client
	if cfg.Databases.Redis.Address != "" {
		rdb, err = redis.GetClient(ctx, &cfg.Databases.Redis)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to connect to Redis: %v", err))
		}
		defer redis.Close()
		appLogger.Info(fmt.Sprintf("Query cache L2 on Redis %s", cfg.Databases.Redis.Address))
	}
	queryCache, err := cache.NewTiered(cfg.Cache.Capacity, config.ParseDuration(cfg.Cache.TTL, 10*time.Minute),
		rdb, cfg.Cache.RedisPrefix, appLogger)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to create query cache: %v", err))
	}
	deps.Cache = queryCache
	runnerDeps.Cache = deps.Cache

	if cfg.Databases.MongoDB.Address != "" {
		mc, err := mongo.GetClient(&cfg.Databases.MongoDB)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to connect to MongoDB: %v", err))
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongo.Close(closeCtx)
		}()
		coll, err := mongo.TaskCollection(ctx, mc, &cfg.Databases.MongoDB)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to prepare task collection: %v", err))
		}
		archive := store.NewMongoTaskArchive(coll)
		deps.Archive, runnerDeps.Archive = archive, archive
		appLogger.Info("Task archive on MongoDB enabled")
	}

	if len(cfg.Databases.Kafka.Brokers) > 0 {
		kc, err := kafka.GetClient(&cfg.Databases.Kafka)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to create kafka client: %v", err))
		}
		pub := publisher.NewTaskEventPublisher(kc, appLogger)
		defer func() {
			if err := pub.Close(); err != nil {
				appLogger.Error(fmt.Sprintf("Failed to close task event publisher cleanly: %v", err))
			}
		}()
		deps.Events, runnerDeps.Events = pub, pub
		appLogger.Info(fmt.Sprintf("Task events published to %s", cfg.Databases.Kafka.TaskTopic))
	}

	// 5. 任务注册表与 worker 池
	registry := task.NewRegistry(
		task.WithTTL(config.ParseDuration(cfg.Processing.TaskTTL, 0)),
		task.WithLogger(appLogger),
	)
	pool := task.NewPool(cfg.Processing.Workers, cfg.Processing.QueueSize, appLogger)
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()
	pool.Start(workCtx)

	deps.Runner = service.NewRunner(eng, runnerDeps, appLogger)
	docService := service.NewDocumentService(eng, registry, pool, deps, appLogger)

	// 6. HTTP 与 gRPC 服务器
	httpSrv, err := httpserver.NewServer(cfg,
		httpserver.WithAddress(cfg.Server.BackendAddr),
		httpserver.WithLogger(appLogger),
		httpserver.WithSentry(hub),
	)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to create HTTP server: %v", err))
	}
	api.RegisterRoutes(httpSrv.Engine(), api.NewAPI(docService, appLogger,
		api.WithDefaults(cfg.Processing.OutputDir, cfg.Processing.ParseMethod, cfg.Query.DefaultMode)))

	grpcSrv, err := grpcserver.NewServer(cfg,
		grpcserver.WithAddress(cfg.Server.GRPCAddr),
		grpcserver.WithLogger(appLogger),
	)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to create gRPC server: %v", err))
	}
	grpcSrv.SetServing(serviceName, true)

	// 7. 注册到 etcd
	if len(cfg.Databases.Etcd.Endpoints) > 0 {
		sd, err := etcd.NewServiceDiscovery(cfg.Databases.Etcd.Endpoints, appLogger)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to create service discovery client: %v", err))
		}
		defer sd.Close()
		reg, err := sd.Register(ctx, cfg.Server.ServiceName, cfg.Server.AdvertiseAddr, cfg.Databases.Etcd.LeaseTTL)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to register %s: %v", cfg.Server.ServiceName, err))
		}
		defer func() {
			deregCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := reg.Deregister(deregCtx); err != nil {
				appLogger.Warn(fmt.Sprintf("Failed to deregister: %v", err))
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpSrv.Run(gctx) })
	g.Go(func() error { return grpcSrv.Run(gctx) })
	g.Go(func() error {
		registry.Run(gctx, config.ParseDuration(cfg.Processing.SweepInterval, time.Minute))
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error(fmt.Sprintf("Server stopped with error: %v", err))
	}

	// 8. 等待进行中的任务结束
	appLogger.Info("Draining worker pool...")
	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pool.Shutdown(drainCtx); err != nil {
		appLogger.Warn(fmt.Sprintf("Worker pool did not drain: %v", err))
	}
	appLogger.Info("RAG backend stopped")
}
