package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"testhub_backend/internal/config"
	"testhub_backend/internal/controller"
	"testhub_backend/internal/repository"
	"testhub_backend/internal/service"
	"testhub_backend/pkg/configwatcher"
	"testhub_backend/pkg/database"
	"testhub_backend/pkg/logger"
	"testhub_backend/pkg/monitoring"
	"testhub_backend/pkg/security"
	"testhub_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	// ConfigFile is watched for engine settings when engine.hot_reload is on.
	ConfigFile string

	services        *services
	scheduler       *Scheduler
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	tests     *repository.TestRepository
	attempts  *repository.AttemptRepository
	directory *repository.StudentDirectoryRepository
	cache     *repository.AnalyticsCache
}

type services struct {
	attempts  *service.TestAttemptService
	authoring *service.TestAuthoringService
}

type controllers struct {
	studentTest *controller.StudentTestController
	teacherTest *controller.TeacherTestController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	repos := &repositories{
		tests:     repository.NewTestRepository(db),
		attempts:  repository.NewAttemptRepository(db),
		directory: repository.NewStudentDirectoryRepository(db),
	}
	if rdb != nil {
		repos.cache = repository.NewAnalyticsCache(rdb, time.Duration(cfg.Redis.CacheTTL)*time.Second)
	}
	return repos
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB) *services {
	// 未启用 Redis 时不传入缓存，避免 typed nil
	var cache service.AnalyticsCache
	if repos.cache != nil {
		cache = repos.cache
	}

	s := &services{
		attempts:  service.NewTestAttemptService(db, repos.tests, repos.attempts, repos.directory, cache, cfg.Engine),
		authoring: service.NewTestAuthoringService(repos.tests),
	}

	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.attempts.UpdateEngineConfig(newCfg.Engine)
	})
	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		studentTest: controller.NewStudentTestController(s.attempts),
		teacherTest: controller.NewTeacherTestController(s.authoring, s.attempts),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Error("Failed to initialize database", zap.Error(err))
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		logger.Log.Error("Failed to migrate database", zap.Error(err))
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app, nil
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Error("Failed to initialize redis", zap.Error(err))
		return nil, err
	}
	app.Redis = rdb

	repos := app.initRepositories(db, rdb, cfg)
	app.services = app.initServices(repos, cfg, db)
	controllers := app.initControllers(app.services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing", zap.Error(err))
			return nil, err
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	return app, nil
}

func (a *App) startBackgroundTasks(ctx context.Context) {
	if a.Config.Engine.SweepEnabled {
		a.scheduler = NewScheduler(a.services.attempts)
		if err := a.scheduler.Start(a.Config.Engine.SweepIntervalMinutes); err != nil {
			logger.Log.Error("Failed to schedule sweep", zap.Error(err))
		}
	}

	if a.Config.Engine.HotReload && a.ConfigFile != "" {
		go func() {
			if err := configwatcher.WatchConfig(ctx, a.ConfigFile, a.applyConfig); err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	a.startBackgroundTasks(bgCtx)

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	stopBackground()
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}

	log.Println("Server exiting")
}
