// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"envportal-go/internal/catalog"
	"envportal-go/internal/config"
	"envportal-go/internal/handler"
	"envportal-go/internal/middleware"
	"envportal-go/internal/model"
	"envportal-go/internal/repository"
	"envportal-go/internal/service"
	"envportal-go/pkg/database"
	"envportal-go/pkg/kafka"
	"envportal-go/pkg/log"
	"envportal-go/pkg/storage"
	"envportal-go/pkg/token"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、MinIO 和 Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	kafka.InitProducer(cfg.Kafka)

	// 3.1 按需迁移核心表（制品表、用户表与基础参照表）并补齐类别种子数据
	if cfg.Database.MySQL.AutoMigrate {
		if err := database.AutoMigrate(database.DB); err != nil {
			log.Fatalf("数据库迁移失败: %v", err)
		}
		seedCategories(database.DB)
		log.Info("数据库迁移完成")
	}

	// 4. 初始化 Repository
	userRepository := repository.NewUserRepository(database.DB)
	artifactRepository := repository.NewArtifactRepository(database.DB)
	refKeyRepository := repository.NewRefKeyRepository(database.DB)

	// 5. 初始化类别目录与表结构解析器
	categoryCatalog := catalog.New()
	schemaResolver := catalog.NewSchemaResolver(
		database.DB,
		database.RDB,
		time.Duration(cfg.Catalog.SchemaCacheTTLSeconds)*time.Second,
	)

	// 6. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	userService := service.NewUserService(userRepository, jwtManager)
	stagingService := service.NewStagingService(artifactRepository, refKeyRepository, categoryCatalog, schemaResolver)
	approvalService := service.NewApprovalService(
		database.DB,
		artifactRepository,
		refKeyRepository,
		categoryCatalog,
		schemaResolver,
		kafka.NewPublisher(),
	)
	previewService := service.NewPreviewService(artifactRepository)

	// 7. 初始化 Handler
	userHandler := handler.NewUserHandler(userService)
	authHandler := handler.NewAuthHandler(userService)
	categoryHandler := handler.NewCategoryHandler(categoryCatalog)
	artifactHandler := handler.NewArtifactHandler(
		stagingService,
		approvalService,
		previewService,
		cfg.MinIO,
		cfg.Server.MaxUploadSizeMB,
	)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", authHandler.RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由 (公开访问)
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			// 需要认证的路由 (仅限登录用户访问)
			authed := users.Group("/")
			authed.Use(middleware.AuthMiddleware(jwtManager, userService))
			{
				authed.GET("/me", userHandler.GetProfile)
			}
		}

		// 类别目录，登录用户可查
		categories := apiV1.Group("/categories")
		categories.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			categories.GET("", categoryHandler.List)
		}

		// Artifact 路由组：上传暂存与预览对登录用户开放，
		// 审批/驳回需要审批权限，删除仅限管理员
		artifacts := apiV1.Group("/artifacts")
		artifacts.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			artifacts.POST("", artifactHandler.Stage)
			artifacts.GET("/pending", artifactHandler.ListPending)
			artifacts.GET("/:id/preview", artifactHandler.Preview)

			decisions := artifacts.Group("/")
			decisions.Use(middleware.ReviewerAuthMiddleware())
			{
				decisions.POST("/:id/approve", artifactHandler.Approve)
				decisions.POST("/:id/reject", artifactHandler.Reject)
			}

			admin := artifacts.Group("/")
			admin.Use(middleware.AdminAuthMiddleware())
			{
				admin.DELETE("/:id", artifactHandler.Delete)
			}
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}

// seedCategories 幂等补齐主/子类别参照数据：子类别名即类别目录里的类别标识，
// 暂存时据此推导所属主类别。已存在的行不会被改写。
func seedCategories(db *gorm.DB) {
	seeds := map[string][]string{
		"空气": {"SO2", "NO2", "CO", "O3", "TSP", "PM10", "PM25"},
		"噪音": {"DayNoise", "NightNoise", "Vibration"},
		"气象": {"WindSpeed", "WindDirection"},
		"水质": {"SeaWater", "GroundWater", "Effluent"},
		"改善": {
			"TreePlanting", "GreenRoof", "NoiseBarrier", "SilentPiling", "DustScreen",
			"WaterRecycle", "SolarPanel", "WasteSorting", "EcoPond", "LowCarbon",
		},
	}

	for mainName, subNames := range seeds {
		var main model.MainCategory
		if err := db.Where(model.MainCategory{Name: mainName}).FirstOrCreate(&main).Error; err != nil {
			log.Warnf("seedCategories: 主类别 %q 写入失败: %v", mainName, err)
			continue
		}
		for _, subName := range subNames {
			sub := model.SubCategory{Name: subName, MainCategoryID: main.ID}
			if err := db.Where(model.SubCategory{Name: subName}).FirstOrCreate(&sub).Error; err != nil {
				log.Warnf("seedCategories: 子类别 %q 写入失败: %v", subName, err)
			}
		}
	}
}
