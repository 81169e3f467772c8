package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	intconfig "parkometr/internal/config"
	intdb "parkometr/internal/db"
	router "parkometr/internal/http"
	"parkometr/internal/services"

	"github.com/gin-gonic/gin"
)

func main() {
	env := intconfig.LoadEnv()
	if err := env.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	db, err := intconfig.ConnectDB(env)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer intconfig.CloseDB()

	if err := bootstrap(env, db); err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}

	r := router.NewRouter(env)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("parkometr listening on %s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}

// bootstrap prepares the schema, spots and admin account when configured to.
func bootstrap(env intconfig.Env, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if env.DBAutoMigrate {
		if err := intdb.EnsureSchema(ctx, db); err != nil {
			return err
		}
		n, err := intdb.SeedSpots(ctx, db, env.SeedFloors, env.SeedPerFloor)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Printf("seeded %d parking spots", n)
		}
	}

	if env.AdminLogin != "" && env.AdminPassword != "" {
		created, err := services.AccountService{DB: db}.EnsureAdmin(ctx, env.AdminLogin, env.AdminPassword)
		if err != nil {
			return err
		}
		if created {
			log.Printf("created admin account %q", env.AdminLogin)
		}
	}
	return nil
}
