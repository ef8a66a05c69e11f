package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/classroom-api/internal/changefeed"
	"github.com/yourusername/classroom-api/internal/config"
	"github.com/yourusername/classroom-api/internal/domain/repository"
	"github.com/yourusername/classroom-api/internal/handler"
	"github.com/yourusername/classroom-api/internal/middleware"
	memRepo "github.com/yourusername/classroom-api/internal/repository/memory"
	pgRepo "github.com/yourusername/classroom-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/classroom-api/internal/repository/redis"
	"github.com/yourusername/classroom-api/internal/service"
	syncService "github.com/yourusername/classroom-api/internal/service/sync"
	ws "github.com/yourusername/classroom-api/internal/websocket"
	"github.com/yourusername/classroom-api/pkg/auth"
	"github.com/yourusername/classroom-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Фид изменений и кеш: Redis для мультиинстансного режима,
	// внутрипроцессные реализации для одиночного
	var feed changefeed.Feed
	var cacheRepo repository.CacheRepository
	if cfg.Redis.Enabled {
		redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
		if err != nil {
			log.Printf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		log.Println("Successfully connected to Redis")

		feed, err = changefeed.NewRedisFeed(redisClient)
		if err != nil {
			log.Printf("Failed to initialize RedisFeed: %v", err)
			os.Exit(1)
		}
		cacheRepo, err = redisRepo.NewCacheRepo(redisClient)
		if err != nil {
			log.Printf("Failed to initialize CacheRepo: %v", err)
			os.Exit(1)
		}
	} else {
		log.Println("Redis отключен: фид изменений и кеш работают внутри процесса")
		feed = changefeed.NewMemoryFeed()
		cacheRepo = memRepo.NewCacheRepo()
	}

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	sessionRepo := pgRepo.NewSessionRepo(db)
	answerRepo := pgRepo.NewAnswerRepo(db)

	// Загружаем колоду презентации
	deckService, err := service.NewDeckService(cfg.Deck.Path)
	if err != nil {
		log.Printf("Failed to load deck: %v", err)
		os.Exit(1)
	}

	// JWT
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// Корневой контекст приложения для горутин сервисов
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализируем сервисы
	authService := service.NewAuthService(userRepo, jwtService)
	sessionService := service.NewSessionService(sessionRepo, cacheRepo)
	answerService := service.NewAnswerService(answerRepo, userRepo, deckService.Deck(), feed)
	synchronizer := syncService.NewSynchronizer(sessionRepo, deckService.Deck(), feed)

	// WebSocket-хаб и мониторы сессий
	hub := ws.NewHub()
	monitors := syncService.NewMonitorManager(ctx, sessionRepo, answerRepo, synchronizer, feed, hub)
	hub.SetRoomChangeCallback(func(sessionID string, occupied bool) {
		monitors.RoomChanged(sessionID, occupied)
		if !occupied {
			answerService.ReleaseSession(sessionID)
		}
	})
	go hub.Run(ctx)

	clientConfig := ws.DefaultClientConfig()
	if cfg.WebSocket.ClientSendBuffer > 0 {
		clientConfig.BufferSize = cfg.WebSocket.ClientSendBuffer
	}
	if cfg.WebSocket.PongWaitSec > 0 {
		clientConfig.PongWait = time.Duration(cfg.WebSocket.PongWaitSec) * time.Second
	}
	if cfg.WebSocket.PingIntervalSec > 0 {
		clientConfig.PingInterval = time.Duration(cfg.WebSocket.PingIntervalSec) * time.Second
	}
	if cfg.WebSocket.MaxMessageSize > 0 {
		clientConfig.MaxMessageSize = cfg.WebSocket.MaxMessageSize
	}

	// Инициализируем обработчики
	authHandler := handler.NewAuthHandler(authService)
	sessionHandler := handler.NewSessionHandler(sessionService, deckService, synchronizer, monitors, answerRepo)
	answerHandler := handler.NewAnswerHandler(answerService, sessionService)
	deckHandler := handler.NewDeckHandler(deckService)
	wsHandler := handler.NewWSHandler(hub, monitors, sessionService, jwtService, clientConfig)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	// Инициализируем роутер Gin
	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		// Production: не доверять прокси-заголовкам
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)

			authedAuth := authGroup.Group("/")
			authedAuth.Use(authMiddleware.RequireAuth())
			{
				authedAuth.GET("/me", authHandler.GetMe)
			}
		}

		// Колода презентации (без ключей правильных ответов)
		authedAPI := api.Group("")
		authedAPI.Use(authMiddleware.RequireAuth())
		{
			authedAPI.GET("/deck", deckHandler.Get)

			sessions := authedAPI.Group("/sessions")
			{
				sessions.POST("", sessionHandler.Create)
				sessions.GET("/code/:code", sessionHandler.ResolveCode)

				withID := sessions.Group("/:id")
				{
					withID.GET("", sessionHandler.Get)

					// Управление и наблюдение хоста
					withID.PUT("/advance", sessionHandler.Advance)
					withID.PUT("/retreat", sessionHandler.Retreat)
					withID.GET("/deck", sessionHandler.Deck)
					withID.GET("/answers", sessionHandler.Answers)
					withID.GET("/tally", sessionHandler.Tally)
					withID.GET("/export", sessionHandler.Export)

					// Участники
					withID.POST("/answers", answerHandler.Submit)
					withID.GET("/my-answers", answerHandler.MyAnswers)
				}
			}
		}
	}

	// WebSocket маршрут комнаты сессии
	router.GET("/ws/sessions/:id", wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Останавливаем мониторы до закрытия фида: их подписки должны
	// завершиться штатно, а не через разорванный транспорт
	monitors.StopAll()
	cancel()

	if err := feed.Close(); err != nil {
		log.Printf("Error closing change feed: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
