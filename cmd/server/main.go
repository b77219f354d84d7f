package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"retro-assist/internal/config"
	"retro-assist/internal/handler"
	"retro-assist/internal/logger"
	"retro-assist/internal/middleware"
	"retro-assist/internal/model"
	"retro-assist/internal/service"
)

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config-dev.yaml)")
	flag.Parse()

	cfg := config.Load(*configFile)
	logger.Init(cfg.Log)
	middleware.JWTSecret = []byte(cfg.Auth.JWTSecret)

	db, err := cfg.OpenGormDB()
	if err != nil {
		slog.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	err = db.AutoMigrate(
		&model.Member{}, &model.Team{}, &model.MemberTeam{},
		&model.RetroRoom{}, &model.Retrospect{}, &model.MemberRetro{},
		&model.Answer{}, &model.MemberAnswer{},
	)
	if err != nil {
		slog.Error("db migrate failed", "err", err)
		os.Exit(1)
	}

	aiSvc := service.NewAIService(cfg.OpenAI)
	authSvc := service.NewAuthService(db)
	retroSvc := service.NewRetrospectService(db, os.Getenv("INVITATION_BASE_URL"))
	analysisSvc := service.NewAnalysisService(db, aiSvc)

	authH := handler.NewAuthHandler(authSvc)
	retroH := handler.NewRetrospectHandler(retroSvc)
	analysisH := handler.NewAnalysisHandler(analysisSvc)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.POST("/api/login", authH.Login)
	api := r.Group("/api", middleware.JWTAuth())
	api.POST("/retrospectives", retroH.Create)
	api.GET("/retrospectives/:id", retroH.Get)
	api.POST("/retrospectives/:id/answers", retroH.SubmitAnswers)
	api.POST("/retrospectives/:id/analysis", analysisH.Analyze)

	slog.Info("server starting", "addr", cfg.Addr())
	if err := r.Run(cfg.Addr()); err != nil {
		slog.Error("server failed", "err", err)
	}
}
