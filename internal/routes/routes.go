package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"production-system/internal/controllers"
	"production-system/internal/repositories"
	"production-system/internal/services"
	"production-system/pkg/clock"
	"production-system/pkg/config"
	"production-system/pkg/middleware"
	"production-system/pkg/service"
)

func InitRouter(
	e *echo.Echo,
	dbConn *pgxpool.Pool,
	redisClient *redis.Client,
	jwtSvc service.JWTService,
	logger *zap.Logger,
	cfg *config.Config,
) {
	logger.Info("InitRouter: создание маршрутов")

	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(jwtSvc, logger)
	txManager := repositories.NewTxManager(dbConn)
	clk := clock.System()

	// Репозитории
	orderRepo := repositories.NewOrderRepository(dbConn, logger)
	scheduleRepo := repositories.NewScheduleRepository(dbConn, logger)
	batchRepo := repositories.NewBatchRepository(dbConn, logger)
	stepRepo := repositories.NewStepRepository(dbConn, logger)
	franchiseRepo := repositories.NewFranchiseRepository(dbConn, logger)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)
	standardRepo := repositories.NewCachedStandardRepository(
		repositories.NewStandardRepository(dbConn, logger),
		cacheRepo,
		cfg.Production.StandardCacheTTL,
		logger,
	)
	traceRepo := repositories.NewTraceRepository(dbConn, logger)
	analyticsRepo := repositories.NewAnalyticsRepository(dbConn, logger)

	// Сервисы
	orderService := services.NewOrderService(orderRepo, batchRepo, franchiseRepo, standardRepo, txManager, clk, logger)
	scheduleService := services.NewScheduleService(scheduleRepo, txManager, cfg.Production, logger)
	schedulingService := services.NewSchedulingService(orderRepo, standardRepo, orderService, scheduleService, cfg.Production, logger)
	batchService := services.NewBatchService(batchRepo, stepRepo, orderRepo, txManager, cfg.Production, clk, logger)
	stepService := services.NewStepService(stepRepo, batchRepo, clk, logger)
	qualityService := services.NewQualityService(traceRepo, batchRepo, clk, logger)
	analyticsService := services.NewAnalyticsService(analyticsRepo, franchiseRepo, standardRepo, logger)

	// Контроллеры
	orderController := controllers.NewOrderController(orderService, logger)
	scheduleController := controllers.NewScheduleController(scheduleService, schedulingService, logger)
	batchController := controllers.NewBatchController(batchService, stepService, logger)
	stepController := controllers.NewStepController(stepService, logger)
	qualityController := controllers.NewQualityController(qualityService, logger)
	analyticsController := controllers.NewAnalyticsController(analyticsService, logger)

	secureGroup := api.Group("", authMW.Auth)

	runOrderRouter(secureGroup, orderController)
	runScheduleRouter(secureGroup, scheduleController)
	runBatchRouter(secureGroup, batchController)
	runStepRouter(secureGroup, stepController)
	runQualityRouter(secureGroup, qualityController)
	runAnalyticsRouter(secureGroup, analyticsController)

	logger.Info("InitRouter: маршруты созданы")
}
