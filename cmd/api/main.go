package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-auth-otp/internal/application/dynamiccode"
	"github.com/go-auth-otp/internal/config"
	"github.com/go-auth-otp/internal/infrastructure/dynamo"
	"github.com/go-auth-otp/internal/infrastructure/hasher"
	jwtinfra "github.com/go-auth-otp/internal/infrastructure/jwt"
	"github.com/go-auth-otp/internal/infrastructure/memstore"
	redisinfra "github.com/go-auth-otp/internal/infrastructure/redis"
	"github.com/go-auth-otp/internal/infrastructure/sns"
	"github.com/go-auth-otp/internal/pkg/clock"
	transporthttp "github.com/go-auth-otp/internal/transport/http"
	"github.com/go-auth-otp/internal/transport/http/handler"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("dynamodb: %v", err)
	}
	tables := []dynamo.TableDef{dynamo.UsersTable(cfg.DynamoTables.Users)}
	if cfg.DynamicCode.Backend == "dynamo" {
		tables = append(tables, dynamo.DynamicCodesTable(cfg.DynamoTables.DynamicCodes))
	}
	if err := dynamo.Bootstrap(ctx, dynamoClient, tables...); err != nil {
		slog.Warn("dynamodb bootstrap incomplete", "err", err)
	}

	clk := clock.New()
	jwtProvider, err := jwtinfra.NewProvider(cfg.JWT, clk)
	if err != nil {
		log.Fatalf("jwt: %v", err)
	}
	bcrypt := hasher.NewBcrypt(cfg.BcryptCost)

	checks := map[string]handler.Checker{}
	var backend dynamiccode.Backend
	switch cfg.DynamicCode.Backend {
	case "redis":
		rdb, err := redisinfra.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		backend = redisinfra.NewDynamicCodeRepo(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	case "dynamo":
		backend = dynamo.NewDynamicCodeRepo(dynamoClient, cfg.DynamoTables.DynamicCodes)
	case "memory":
		mem := memstore.NewDynamicCodeRepo(clk)
		go mem.Run(ctx)
		backend = mem
	default:
		log.Fatalf("unknown DYNAMIC_CODE_BACKEND %q", cfg.DynamicCode.Backend)
	}

	var codeSender transporthttp.CodeSender = sns.LogSender{}
	if cfg.OTPDelivery == "sns" {
		sender, err := sns.NewSender(ctx, cfg)
		if err != nil {
			log.Fatalf("sns: %v", err)
		}
		codeSender = sender
	}

	deps := &transporthttp.Deps{
		UserRepo:     dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users, clk),
		CodeStore:    dynamiccode.NewStore(backend, bcrypt, clk),
		Hasher:       bcrypt,
		CodeSender:   codeSender,
		JWTProvider:  jwtProvider,
		HealthChecks: checks,
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "code_backend", cfg.DynamicCode.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	stop()
	slog.Info("server stopped")
}
