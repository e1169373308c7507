package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lockedin-service/internal/db"
	"lockedin-service/internal/handlers"
	"lockedin-service/internal/middleware"
	"lockedin-service/internal/observability"
	"lockedin-service/internal/rabbitmq"
	"lockedin-service/internal/repositories"
	"lockedin-service/internal/telemetry"
	"lockedin-service/internal/ws"
)

func main() {
	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	amqpURL := getEnv("AMQP_URL", "")
	publisher := rabbitmq.NewPublisher(amqpURL, getEnv("AMQP_EXCHANGE", "lockedin.events"))
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	audit := telemetry.NewAuditEmitter(
		publisher,
		getEnv("AUDIT_ROUTING_KEY", "audit.lockedin"),
		"lockedin-service",
		getEnv("ENVIRONMENT", "development"),
	)

	if amqpURL != "" {
		if wsPublisher, err := observability.NewAMQPPublisher(amqpURL, getEnv("WS_EVENTS_EXCHANGE", "lockedin.ws_events")); err != nil {
			log.Printf("ws event publisher disabled: %v", err)
		} else {
			observability.SetPublisher(wsPublisher)
			defer wsPublisher.Close()
		}
	}

	userRepo := repositories.NewUserRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	streakRepo := repositories.NewStreakRepo(database)
	violationRepo := repositories.NewViolationRepo(database)

	hub := ws.NewHub()

	authHandler := handlers.NewAuthHandler(userRepo, audit)
	groupHandler := handlers.NewGroupHandler(groupRepo, streakRepo, audit)
	violationHandler := handlers.NewViolationHandler(userRepo, groupRepo, violationRepo, hub, audit)
	wsHandler := ws.NewWebSocketHandler(hub)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(observability.HTTPMetricsMiddleware())

	router.POST("/register", authHandler.Register)
	router.POST("/login", authHandler.Login)

	router.POST("/groups", groupHandler.CreateGroup)
	router.POST("/groups/join", groupHandler.JoinGroup)
	router.GET("/groups/:user_id", groupHandler.ListGroups)
	router.GET("/leaderboard/:group_id", groupHandler.Leaderboard)
	router.POST("/reset-streak", groupHandler.ResetStreak)

	router.POST("/violation", violationHandler.ReportVisit)

	router.GET("/ws", wsHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, getEnv("ENABLE_DEBUG_ROUTES", "") == "true")

	port := getEnv("PORT", "3456")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
