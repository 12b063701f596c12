package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/taskpilot/taskpilot/internal/auth"
	"github.com/taskpilot/taskpilot/internal/config"
	"github.com/taskpilot/taskpilot/internal/db"
	"github.com/taskpilot/taskpilot/internal/handlers"
	"github.com/taskpilot/taskpilot/internal/ratelimit"
	"github.com/taskpilot/taskpilot/internal/repository"
	"github.com/taskpilot/taskpilot/internal/service"
)

func main() {
	// 1. Load configuration
	cfg := config.LoadConfig()
	log.Println("✓ Configuration loaded")

	// 2. Initialize database connection
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DBUrl)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer pool.Close()

	// 3. Pick the rate-limit backend
	var limiter ratelimit.Store
	switch cfg.RateLimitBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal("Failed to connect to redis:", err)
		}
		limiter = ratelimit.NewRedisStore(client)
		log.Println("✓ Redis rate limiter connected")
	default:
		limiter = ratelimit.NewMemoryStore()
		log.Println("✓ In-memory rate limiter active")
	}

	// 4. Pick the mail backend
	var mailer service.Mailer
	if cfg.UseFakeMail {
		mailer = service.NewFakeMailer()
		log.Println("✓ Fake mailer active (OTP mail kept in memory)")
	} else {
		mailer = service.NewSMTPMailer(cfg.MailHost, cfg.MailPort, cfg.MailUsername, cfg.MailPassword, cfg.MailFrom)
	}

	// 5. Initialize layers
	tokens := auth.NewTokenService(cfg.SecretKey)

	userRepo := repository.NewUserRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	resetRepo := repository.NewResetRepository(pool)

	// Prune stale reset records in the background.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := resetRepo.DeleteExpired(ctx); err != nil {
				log.Printf("[CLEANUP] failed to prune reset records: %v", err)
			} else if n > 0 {
				log.Printf("[CLEANUP] pruned %d expired reset records", n)
			}
		}
	}()

	authService := service.NewAuthService(userRepo, resetRepo, tokens, mailer, limiter)
	taskService := service.NewTaskService(taskRepo)

	authHandler := handlers.NewAuthHandler(authService, tokens, limiter)
	taskHandler := handlers.NewTaskHandler(taskService, tokens, limiter)
	healthHandler := handlers.NewHealthHandler(pool)

	// 6. Setup Gin router
	router := gin.Default()

	authHandler.RegisterRoutes(router)
	taskHandler.RegisterRoutes(router)
	healthHandler.RegisterRoutes(router)

	// 7. Start server with graceful shutdown
	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	go func() {
		log.Println("🚀 Server starting on", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("✓ Server exited")
}
