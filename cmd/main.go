package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"github.com/joho/godotenv"

	"invoicely/internal/analytics"
	"invoicely/internal/caching"
	"invoicely/internal/handlers"
	"invoicely/internal/jobs/background"
	"invoicely/internal/middleware"
	"invoicely/internal/migrate"
	"invoicely/internal/repositories"
	"invoicely/internal/services"
	"invoicely/pkg/database"
)

const version = "1.0.0"

func main() {
	// Local development config; missing .env is fine in production
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := database.NewPool(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := migrate.Apply(context.Background(), pool); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: JWT_SECRET not set, using generated secret")
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if redisDBStr := os.Getenv("REDIS_DB"); redisDBStr != "" {
		if db, err := strconv.Atoi(redisDBStr); err == nil {
			redisDB = db
		}
	}

	minioEndpoint := os.Getenv("MINIO_ENDPOINT")
	if minioEndpoint == "" {
		minioEndpoint = "localhost:9000"
	}
	minioAccessKey := os.Getenv("MINIO_ACCESS_KEY")
	if minioAccessKey == "" {
		minioAccessKey = "minioadmin" // Default for development
	}
	minioSecretKey := os.Getenv("MINIO_SECRET_KEY")
	if minioSecretKey == "" {
		minioSecretKey = "minioadmin" // Default for development
	}
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	storageSvc, err := services.NewMinioStorageService(minioEndpoint, minioAccessKey, minioSecretKey, useSSL)
	if err != nil {
		log.Fatalf("Failed to initialize storage service: %v", err)
	}

	cacheSvc := caching.NewRedisCacheService(redisAddr, redisPassword, redisDB)

	userRepo := repositories.NewUserRepo(pool)
	invoiceRepo := repositories.NewInvoiceRepo(pool)

	authSvc := services.NewAuthService(cacheSvc, jwtSecret, 3600, 30*24*3600)
	invoiceSvc := services.NewInvoiceService(invoiceRepo, cacheSvc)
	analyticsSvc := analytics.NewAnalyticsService(invoiceRepo, cacheSvc)

	scheduler, err := background.NewJobScheduler(analyticsSvc, userRepo)
	if err != nil {
		log.Fatalf("Failed to create job scheduler: %v", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("Failed to stop scheduler: %v", err)
		}
	}()

	authHandlers := handlers.NewAuthHandlers(userRepo, authSvc, cacheSvc)
	invoiceHandlers := handlers.NewInvoiceHandlers(invoiceSvc, analyticsSvc, storageSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc)

	e := echo.New()

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)

	// Authentication routes
	e.POST("/register", authHandlers.Register)
	e.POST("/auth/login", authHandlers.Login)
	e.POST("/auth/refresh", authHandlers.Refresh)

	// Protected routes
	protected := e.Group("")
	protected.Use(echojwt.WithConfig(middleware.JWTConfig(jwtSecret)))

	protected.GET("/me", authHandlers.Me)

	protected.GET("/invoices", invoiceHandlers.ListInvoices)
	protected.POST("/invoices", invoiceHandlers.CreateInvoice)
	protected.GET("/invoices/summary", invoiceHandlers.GetSummary)
	protected.GET("/invoices/:id", invoiceHandlers.GetInvoice)
	protected.PUT("/invoices/:id", invoiceHandlers.UpdateInvoice)
	protected.PATCH("/invoices/:id", invoiceHandlers.UpdateInvoiceStatus)
	protected.DELETE("/invoices/:id", invoiceHandlers.DeleteInvoice)
	protected.POST("/invoices/:id/pdf", invoiceHandlers.GenerateInvoicePDF)

	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Fatalf("Invalid port %s: %v", portStr, err)
	}

	log.Printf("Invoicely server v%s starting on port %d", version, port)

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", port)))
}
