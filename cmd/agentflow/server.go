// Package main provides the AgentFlow server implementation.
package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ariavoice/control-plane/api/handlers"
	"github.com/ariavoice/control-plane/config"
	"github.com/ariavoice/control-plane/configplane"
	"github.com/ariavoice/control-plane/gateway"
	"github.com/ariavoice/control-plane/internal/metrics"
	"github.com/ariavoice/control-plane/internal/server"
	"github.com/ariavoice/control-plane/internal/telemetry"
	"github.com/ariavoice/control-plane/llm"
	"github.com/ariavoice/control-plane/llm/circuitbreaker"
	"github.com/ariavoice/control-plane/llm/cost"
	"github.com/ariavoice/control-plane/llm/factory"
	"github.com/ariavoice/control-plane/llm/providers"
	"github.com/ariavoice/control-plane/search"
	"github.com/ariavoice/control-plane/semantic"
	"github.com/ariavoice/control-plane/smarthome"
)

// =============================================================================
// 🖥️ Server 结构（重构版）
// =============================================================================

// Server 是 AgentFlow 的主服务器
type Server struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	otel       *telemetry.Providers
	db         *gorm.DB

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// Handlers
	healthHandler      *handlers.HealthHandler
	chatHandler        *gateway.ChatHandler
	responsesHandler   *gateway.ResponsesHandler
	modelsHandler      *gateway.ModelsHandler
	configPlaneHandler *configplane.Handler
	configPlaneCache   *configplane.Cache
	gatewayServer      *gateway.Server

	// 指标收集器
	metricsCollector *metrics.Collector

	// 热更新管理器
	hotReloadManager *config.HotReloadManager
	configAPIHandler *config.ConfigAPIHandler

	redisClient *redis.Client
	satellites  *gateway.LiveStateAPI
	costSink    cost.Sink

	wg sync.WaitGroup
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, configPath string, logger *zap.Logger, otel *telemetry.Providers, db *gorm.DB) *Server {
	return &Server{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		otel:       otel,
		db:         db,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标收集器
	s.metricsCollector = metrics.NewCollector("agentflow", s.logger)

	// 2. 初始化 Handlers
	if err := s.initHandlers(); err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	// 3. 初始化热更新管理器
	if err := s.initHotReloadManager(); err != nil {
		return fmt.Errorf("failed to init hot reload manager: %w", err)
	}

	// 4. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 5. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("hot_reload_enabled", s.configPath != ""),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initHandlers 初始化所有 handlers，wiring the Gateway, Semantic Cache,
// Parallel Search Engine, Smart-Home Controller and Configuration Plane
// into one HTTP surface.
func (s *Server) initHandlers() error {
	s.healthHandler = handlers.NewHealthHandler(s.logger)

	provider := s.buildLLMProvider()
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig(), s.logger)
	admission := gateway.NewAdmission(float64(s.cfg.Server.RateLimitRPS)*60, breaker, s.logger)
	router := gateway.NewIntentRouter(false, nil)

	cache := s.buildSemanticCache()
	searchEngine := s.buildSearchEngine()
	homeController := s.buildSmartHomeController()
	rooms := s.buildRoomDetector()

	s.chatHandler = gateway.NewChatHandler(provider, admission, router, cache, searchEngine, homeController, rooms, s.logger)
	s.configPlaneHandler = s.buildConfigPlaneHandler()
	s.buildCostSink()
	s.responsesHandler = gateway.NewResponsesHandler(s.chatHandler, s.logger)
	s.modelsHandler = gateway.NewModelsHandler(s.configPlaneCache, s.logger)

	s.gatewayServer = gateway.NewServer(s.chatHandler, s.responsesHandler, s.modelsHandler, s.configPlaneHandler, s.healthHandler, s.logger)

	s.logger.Info("Handlers initialized")
	return nil
}

// buildCostSink wires the per-call usage sink when a database is
// available, degrading to no recording (not a startup failure) otherwise
// -- the same "feature disabled" pattern main.go already uses for the API
// key store.
func (s *Server) buildCostSink() {
	if s.db == nil || s.configPlaneCache == nil {
		return
	}
	if err := cost.InitSchema(s.db); err != nil {
		s.logger.Warn("usage record schema migration failed, cost tracking disabled", zap.Error(err))
		return
	}
	descriptors, err := s.configPlaneCache.BackendDescriptors()
	if err != nil {
		s.logger.Warn("backend descriptors unavailable, cost tracking uses zero pricing", zap.Error(err))
	}
	sink := cost.NewGORMSink(s.db, 4, s.logger)
	s.costSink = sink
	s.chatHandler.SetCostSink(sink, cost.NewTable(descriptors))
}

// buildLLMProvider resolves the default provider by name through the
// provider factory -- the same construction path config-plane backends use
// for per-model dispatch -- so any built-in provider (openai, anthropic,
// gemini, deepseek, qwen, glm, grok, kimi, mistral, minimax, hunyuan,
// doubao, llama) or an OpenAI-compatible one is selectable purely through
// config, with no server.go changes required to add a new backend.
func (s *Server) buildLLMProvider() llm.Provider {
	name := s.cfg.LLM.DefaultProvider
	if name == "" {
		name = "openai"
	}
	base, err := factory.NewProviderFromConfig(name, factory.ProviderConfig{
		APIKey:  s.cfg.LLM.APIKey,
		BaseURL: s.cfg.LLM.BaseURL,
		Timeout: s.cfg.LLM.Timeout,
	}, s.logger)
	if err != nil {
		s.logger.Warn("default LLM provider construction failed, falling back to openai", zap.String("provider", name), zap.Error(err))
		base, _ = factory.NewProviderFromConfig("openai", factory.ProviderConfig{
			APIKey:  s.cfg.LLM.APIKey,
			BaseURL: s.cfg.LLM.BaseURL,
			Timeout: s.cfg.LLM.Timeout,
		}, s.logger)
	}
	return providers.NewRetryableProvider(base, providers.RetryConfig{MaxRetries: s.cfg.LLM.MaxRetries}, s.logger)
}

func (s *Server) buildSemanticCache() *semantic.Cache {
	if s.cfg.Redis.Addr == "" {
		return nil
	}
	s.redisClient = redis.NewClient(&redis.Options{
		Addr:         s.cfg.Redis.Addr,
		Password:     s.cfg.Redis.Password,
		DB:           s.cfg.Redis.DB,
		PoolSize:     s.cfg.Redis.PoolSize,
		MinIdleConns: s.cfg.Redis.MinIdleConns,
	})
	return semantic.NewCache(s.redisClient, 512, s.logger)
}

func (s *Server) buildSearchEngine() *search.Engine {
	client := &http.Client{Timeout: 5 * time.Second}
	registry := map[search.ProviderName]search.Provider{
		search.ProviderDuckDuckGo: search.NewDuckDuckGoProvider(client, s.logger),
	}
	if s.cfg.Search.SerpAPIKey != "" {
		registry[search.ProviderBrave] = search.NewBraveProvider(s.cfg.Search.SerpAPIKey, client, s.logger)
	}
	searchRouter := search.NewRouter(registry)
	fusion := search.NewFusion(s.logger)
	return search.NewEngine(searchRouter, fusion, search.DefaultConfig(), s.logger)
}

func (s *Server) buildSmartHomeController() *smarthome.Controller {
	if s.cfg.HomeAssistant.BaseURL == "" {
		return nil
	}
	api := gateway.NewHomeAssistantClient(s.cfg.HomeAssistant.BaseURL, s.cfg.HomeAssistant.Token, nil, s.logger)
	return smarthome.NewController(api, s.logger)
}

func (s *Server) buildRoomDetector() *gateway.RoomDetector {
	if s.cfg.HomeAssistant.BaseURL == "" {
		return nil
	}
	stateAPI := gateway.NewHomeAssistantClient(s.cfg.HomeAssistant.BaseURL, s.cfg.HomeAssistant.Token, nil, s.logger)
	if s.cfg.HomeAssistant.WebSocketURL != "" {
		s.satellites = gateway.NewLiveStateAPI(s.cfg.HomeAssistant.WebSocketURL, s.cfg.HomeAssistant.Token, s.logger)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.satellites.Run(context.Background()); err != nil {
				s.logger.Warn("home assistant satellite stream stopped", zap.Error(err))
			}
		}()
		return gateway.NewRoomDetector(s.satellites, s.cfg.HomeAssistant.RoomDetectionCache, s.logger)
	}
	return gateway.NewRoomDetector(stateAPI, s.cfg.HomeAssistant.RoomDetectionCache, s.logger)
}

func (s *Server) buildConfigPlaneHandler() *configplane.Handler {
	store, err := configplane.NewFileStore(s.configPath)
	if err != nil {
		s.logger.Warn("configplane file store unavailable, admin routes disabled", zap.Error(err))
		return nil
	}
	cachePlane := configplane.NewCache(store, 30*time.Second, s.logger)
	s.configPlaneCache = cachePlane
	return configplane.NewHandler(cachePlane, store, s.logger)
}

// initHotReloadManager 初始化热更新管理器
func (s *Server) initHotReloadManager() error {
	opts := []config.HotReloadOption{
		config.WithHotReloadLogger(s.logger),
	}

	if s.configPath != "" {
		opts = append(opts, config.WithConfigPath(s.configPath))
	}

	s.hotReloadManager = config.NewHotReloadManager(s.cfg, opts...)

	// 注册配置变更回调
	s.hotReloadManager.OnChange(func(change config.ConfigChange) {
		s.logger.Info("Configuration changed",
			zap.String("path", change.Path),
			zap.String("source", change.Source),
			zap.Bool("requires_restart", change.RequiresRestart),
		)
	})

	// 注册配置重载回调
	s.hotReloadManager.OnReload(func(oldConfig, newConfig *config.Config) {
		s.logger.Info("Configuration reloaded")
		s.cfg = newConfig
	})

	// 启动热更新管理器
	ctx := context.Background()
	if err := s.hotReloadManager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start hot reload manager: %w", err)
	}

	// 创建配置 API 处理器
	s.configAPIHandler = config.NewConfigAPIHandler(s.hotReloadManager)

	return nil
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动 HTTP 服务器（使用新的 handlers）
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// ========================================
	// 健康检查与版本端点（覆盖 Gateway 默认的 /health 路径）
	// ========================================
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// ========================================
	// Gateway：LLM 路由、语义缓存、并行搜索、智能家居、配置平面、指标
	// 兜底路由，除上面显式注册的路径外全部转发给 Gateway 的 mux。
	// ========================================
	mux.Handle("/", s.gatewayServer.Handler())

	// ========================================
	// 配置热更新 API（与 Gateway 的 /config 管理面并存，路径不重叠）
	// ========================================
	if s.configAPIHandler != nil {
		s.configAPIHandler.RegisterRoutes(mux)
		s.logger.Info("Configuration API registered")
	}

	// ========================================
	// 构建中间件链
	// ========================================
	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}
	handler := Chain(mux,
		Recovery(s.logger),
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(context.Background(), float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger),
		APIKeyAuth(s.cfg.Server.APIKeys, skipAuthPaths, s.cfg.Server.AllowQueryAPIKey, s.logger),
	)

	// ========================================
	// 使用 internal/server.Manager
	// ========================================
	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout, // 2x ReadTimeout
		MaxHeaderBytes:  1 << 20,                        // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	// 使用 httpManager 的 WaitForShutdown（它会监听信号）
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	// 执行清理
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 1. 停止热更新管理器
	if s.hotReloadManager != nil {
		if err := s.hotReloadManager.Stop(); err != nil {
			s.logger.Error("Hot reload manager shutdown error", zap.Error(err))
		}
	}

	// 2. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 3. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 4. 关闭 Redis 连接
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Redis client close error", zap.Error(err))
		}
	}

	// 5. 停止用量记录 sink
	if s.costSink != nil {
		s.costSink.Close()
	}

	// 6. 等待所有 goroutine 完成
	s.wg.Wait()

	s.logger.Info("Graceful shutdown completed")
}
