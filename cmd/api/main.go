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

	"github.com/azamalidev/Kick-Expert-sub000/internal/config"
	"github.com/azamalidev/Kick-Expert-sub000/internal/handler"
	"github.com/azamalidev/Kick-Expert-sub000/internal/middleware"
	postgresrepo "github.com/azamalidev/Kick-Expert-sub000/internal/repository/postgres"
	redisrepo "github.com/azamalidev/Kick-Expert-sub000/internal/repository/redis"
	"github.com/azamalidev/Kick-Expert-sub000/internal/service"
	"github.com/azamalidev/Kick-Expert-sub000/internal/service/competition"
	"github.com/azamalidev/Kick-Expert-sub000/internal/websocket"
	"github.com/azamalidev/Kick-Expert-sub000/pkg/auth"
	"github.com/azamalidev/Kick-Expert-sub000/pkg/database"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Не удалось загрузить конфигурацию: %v", err)
	}

	// PostgreSQL + миграции
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Не удалось подключиться к базе данных: %v", err)
	}
	if err := database.MigrateDB(db); err != nil {
		log.Fatalf("Не удалось применить миграции: %v", err)
	}

	// Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Не удалось подключиться к Redis: %v", err)
	}

	// Репозитории
	competitionRepo := postgresrepo.NewCompetitionRepo(db)
	sessionRepo := postgresrepo.NewSessionRepo(db)
	answerRepo := postgresrepo.NewAnswerRepo(db)
	resultRepo := postgresrepo.NewResultRepo(db)
	questionRepo := postgresrepo.NewQuestionRepo(db)
	userRepo := postgresrepo.NewUserRepo(db)
	registrationRepo := postgresrepo.NewRegistrationRepo(db)
	flaggedRepo := postgresrepo.NewFlaggedActionRepo(db)
	cacheRepo, err := redisrepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Fatalf("Не удалось создать репозиторий кеша: %v", err)
	}

	// JWT
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Fatalf("Не удалось создать JWT сервис: %v", err)
	}

	// WebSocket-хаб объявлений
	hub := websocket.NewHub()
	go hub.Run()

	// Почта призёрам
	var emailService service.EmailService
	if cfg.Email.Enabled {
		emailService, err = service.NewResendEmailService(cfg.Email.APIKey, cfg.Email.FromAddress)
		if err != nil {
			log.Fatalf("Не удалось создать email сервис: %v", err)
		}
	} else {
		emailService = &service.NoopEmailService{}
	}

	// Конфигурация движка соревнований
	engineConfig := competition.DefaultConfig()
	if cfg.Competition.SlotDurationSec > 0 {
		engineConfig.SlotDurationSec = cfg.Competition.SlotDurationSec
	}
	if cfg.Competition.ResyncIntervalSec > 0 {
		engineConfig.ResyncInterval = time.Duration(cfg.Competition.ResyncIntervalSec) * time.Second
	}
	if cfg.Competition.StipendStarter > 0 {
		engineConfig.StipendStarter = cfg.Competition.StipendStarter
	}
	if cfg.Competition.StipendPro > 0 {
		engineConfig.StipendPro = cfg.Competition.StipendPro
	}
	if cfg.Competition.StipendElite > 0 {
		engineConfig.StipendElite = cfg.Competition.StipendElite
	}

	// Сервисы
	statsService := service.NewStatsService(cacheRepo)
	questionService := service.NewQuestionService(questionRepo)
	rankingService := service.NewRankingService(db, engineConfig, sessionRepo, resultRepo, userRepo, registrationRepo, cacheRepo, emailService, hub)
	authService := service.NewAuthService(userRepo, jwtService)

	engineDeps := &competition.Dependencies{
		CompetitionRepo:  competitionRepo,
		SessionRepo:      sessionRepo,
		AnswerRepo:       answerRepo,
		QuestionRepo:     questionRepo,
		RegistrationRepo: registrationRepo,
		FlaggedRepo:      flaggedRepo,
		CacheRepo:        cacheRepo,
		Notifier:         hub,
		Stats:            statsService,
	}
	competitionManager := service.NewCompetitionManager(engineConfig, engineDeps, questionService, rankingService)
	competitionManager.StartSweeper(15 * time.Second)

	// Обработчики
	authHandler := handler.NewAuthHandler(authService)
	competitionHandler := handler.NewCompetitionHandler(competitionRepo, registrationRepo, questionService, rankingService, competitionManager)
	wsHandler := handler.NewWSHandler(hub, jwtService)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	// Роутер
	router := gin.Default()
	if err := router.SetTrustedProxies(nil); err != nil {
		log.Printf("Warning: failed to set trusted proxies: %v", err)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		competitions := api.Group("/competitions")
		{
			competitions.GET("", competitionHandler.ListCompetitions)

			withID := competitions.Group("/:id")
			withID.Use(middleware.CompetitionID())
			{
				withID.GET("", competitionHandler.GetCompetition)
				withID.GET("/winners", competitionHandler.GetWinners)
				// Токен проверяется в самом обработчике: браузерный
				// WebSocket не передаёт заголовок Authorization
				withID.GET("/ws", wsHandler.Subscribe)

				authed := withID.Group("")
				authed.Use(authMiddleware.RequireAuth())
				{
					authed.POST("/register", competitionHandler.Register)
					authed.POST("/enter", competitionHandler.Enter)
					authed.GET("/questions", competitionHandler.GetQuestions)
					authed.POST("/answers", competitionHandler.SubmitAnswer)
					authed.GET("/leaderboard", competitionHandler.GetLeaderboard)
					authed.GET("/leaderboard/export", competitionHandler.ExportLeaderboard)
					authed.GET("/my-result", competitionHandler.GetMyResult)
				}
			}
		}
	}

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	competitionManager.StopSweeper()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
