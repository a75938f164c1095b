package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"drafts-service/internal/auth"
	"drafts-service/internal/db"
	"drafts-service/internal/drafts"
	"drafts-service/internal/handlers"
	"drafts-service/internal/middleware"
	"drafts-service/internal/observability"
	"drafts-service/internal/rabbitmq"
	"drafts-service/internal/repositories"
	"drafts-service/internal/telemetry"
	"drafts-service/internal/ws"
)

func main() {
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, "drafts-service", getEnv("OTLP_ENDPOINT", ""))
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	publisher := rabbitmq.NewPublisher(getEnv("AMQP_URL", ""), getEnv("AMQP_EXCHANGE", "drafts.events"))
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Printf("event publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))

	audit := telemetry.NewAuditEmitter(publisher, "audit.drafts", "drafts-service", getEnv("ENVIRONMENT", "development"))

	verifier := auth.NewVerifier([]byte(getEnv("JWT_SECRET", "dev-secret")))

	draftRepo := repositories.NewDraftRepo(database)
	userRepo := repositories.NewUserRepo(database)
	streamRepo := repositories.NewStreamRepo(database)
	recipientRepo := repositories.NewRecipientRepo(database)

	hub := ws.NewHub()
	service := drafts.NewService(draftRepo, userRepo, streamRepo, recipientRepo, hub)

	draftHandler := handlers.NewDraftHandler(service, audit)
	draftWS := ws.NewDraftWebSocketHandler(hub, verifier)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("drafts-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)
	syncGuard := middleware.DraftsSyncGuard(userRepo)

	draftRoutes := router.Group("/drafts", authMiddleware, syncGuard)
	draftRoutes.GET("", draftHandler.ListDrafts)
	draftRoutes.POST("", draftHandler.CreateDrafts)
	draftRoutes.PATCH("/:draft_id", draftHandler.EditDraft)
	draftRoutes.DELETE("/:draft_id", draftHandler.DeleteDraft)

	router.GET("/ws/drafts", draftWS.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	handlers.RegisterDebugRoutes(router, audit, getEnv("DEBUG_ROUTES", "") == "true")

	go serveGRPCHealth(getEnv("GRPC_PORT", "8094"))

	port := getEnv("PORT", "8093")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// serveGRPCHealth exposes the standard gRPC health endpoint for probes.
func serveGRPCHealth(port string) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		log.Printf("grpc health listen failed: %v", err)
		return
	}

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	healthServer := health.NewServer()
	healthServer.SetServingStatus("drafts-service", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	if err := server.Serve(listener); err != nil {
		log.Printf("grpc health server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
