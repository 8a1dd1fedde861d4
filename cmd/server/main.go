// Package main 是服务端的入口点
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"echo-companion-server/internal/cache"
	"echo-companion-server/internal/config"
	"echo-companion-server/internal/handler"
	"echo-companion-server/internal/middleware"
	"echo-companion-server/internal/model"
	"echo-companion-server/internal/repository"
	"echo-companion-server/internal/service"
	"echo-companion-server/pkg/jwt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// 加载配置
	cfg, err := config.Load("./configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// 初始化数据库
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}

	// 自动迁移数据库表
	if err := autoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化 Redis
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		log.Fatalf("Failed to init redis: %v", err)
	}

	// 初始化 JWT 服务
	jwtService := jwt.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.AccessExpire,
		cfg.JWT.RefreshExpire,
	)

	// 初始化 Repository 层
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	checkinRepo := repository.NewCheckInRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// 初始化 Service 层
	aiService := service.NewAIService(cfg)
	authService := service.NewAuthService(userRepo, redisCache, jwtService)
	profileService := service.NewProfileService(profileRepo)
	checkinService := service.NewCheckInService(checkinRepo)
	quoteService := service.NewQuoteService(profileRepo, redisCache, aiService)
	sessionService := service.NewSessionService(sessionRepo, messageRepo, checkinRepo, aiService)
	chatService := service.NewChatService(profileRepo, sessionRepo, checkinRepo, aiService)
	billingService := service.NewBillingService(profileRepo, cfg)

	// 初始化 Handler 层
	authHandler := handler.NewAuthHandler(authService)
	profileHandler := handler.NewProfileHandler(profileService)
	checkinHandler := handler.NewCheckInHandler(checkinService)
	quoteHandler := handler.NewQuoteHandler(quoteService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	chatHandler := handler.NewChatHandler(chatService)
	billingHandler := handler.NewBillingHandler(billingService)

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	router := gin.New()

	// 全局中间件
	router.Use(gin.Recovery())                   // 恢复 panic
	router.Use(middleware.RequestIDMiddleware()) // 请求 ID
	router.Use(middleware.LoggerMiddleware())    // 请求日志
	router.Use(middleware.CORSMiddleware())      // CORS

	// 注册路由
	registerRoutes(router, jwtService, redisCache,
		authHandler, profileHandler, checkinHandler, quoteHandler,
		sessionHandler, chatHandler, billingHandler)

	// 创建 HTTP 服务器
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// 流式聊天的响应持续时间较长，写超时放宽
		WriteTimeout: 120 * time.Second,
	}

	// 在 goroutine 中启动服务器
	go func() {
		log.Printf("Server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// 创建关闭上下文，设置超时
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// 关闭 Redis 连接
	if err := redisCache.Close(); err != nil {
		log.Printf("Failed to close redis: %v", err)
	}

	log.Println("Server exited")
}

// initDatabase 初始化数据库连接
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	// 构建 DSN (Data Source Name)
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		cfg.MySQL.Username,
		cfg.MySQL.Password,
		cfg.MySQL.Host,
		cfg.MySQL.Port,
		cfg.MySQL.Database,
		cfg.MySQL.Charset,
	)

	// 配置 GORM logger
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.Server.Mode == "release" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	// 连接数据库
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 获取底层 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MySQL.MaxLifetime) * time.Second)

	log.Println("Database connected successfully")
	return db, nil
}

// autoMigrate 自动迁移数据库表
func autoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.AutoMigrate(
		&model.User{},
		&model.Profile{},
		&model.CheckIn{},
		&model.Session{},
		&model.Message{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}

// registerRoutes 注册所有路由
func registerRoutes(
	router *gin.Engine,
	jwtService *jwt.JWTService,
	redisCache *cache.RedisCache,
	authHandler *handler.AuthHandler,
	profileHandler *handler.ProfileHandler,
	checkinHandler *handler.CheckInHandler,
	quoteHandler *handler.QuoteHandler,
	sessionHandler *handler.SessionHandler,
	chatHandler *handler.ChatHandler,
	billingHandler *handler.BillingHandler,
) {
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	// 认证相关（无需登录）
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// 支付回调（无需登录，验签）
	api.POST("/billing/webhook", billingHandler.Webhook)

	// 以下路由均需要登录
	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(jwtService, redisCache))
	{
		authed.POST("/auth/logout", authHandler.Logout)

		// 用户画像
		authed.GET("/profile", profileHandler.GetProfile)
		authed.PUT("/profile", profileHandler.SaveProfile)

		// 每日打卡
		authed.POST("/checkins", checkinHandler.Submit)
		authed.GET("/checkins", checkinHandler.Timeline)

		// 每日金句
		authed.GET("/quotes/today", quoteHandler.Today)

		// 会话与消息
		authed.POST("/sessions", sessionHandler.Open)
		authed.GET("/sessions", sessionHandler.List)
		authed.GET("/sessions/:id/messages", sessionHandler.ListMessages)
		authed.POST("/sessions/:id/summary", sessionHandler.Summarize)
		authed.POST("/messages", sessionHandler.AppendMessage)

		// 聊天
		authed.POST("/chat", chatHandler.Chat)
	}
}
