package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/activity"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/throttle"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-admin-auth-go")

	// init db
	db, err := database.Open(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.EnsureSchema(ctx, db); err != nil {
		sugar.Fatalf("ensure schema: %v", err)
	}

	clock := clockwork.NewRealClock()
	sessCfg := session.ConfigFromEnv()
	sugar.Infow("session config", "idle_timeout", sessCfg.IdleTimeout, "secure_cookie", sessCfg.Secure)

	audit := activity.NewService(db, clock, sugar)
	hasher := user.BcryptHasher{Cost: utilities.EnvInt("BCRYPT_COST", user.DefaultBcryptCost)}
	users := user.NewUserService(db, hasher, audit, clock, sugar)
	th := throttle.NewService(db, throttle.ConfigFromEnv(), clock)
	sessions := session.NewService(db, sessCfg, clock, sugar)

	// expired session cleanup
	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go sessions.RunReaper(reaperCtx, sessCfg.ReapInterval)

	handler := router.RegisterRoutes(sugar, db, router.Services{
		Users:    users,
		Auth:     auth.NewService(users, th, sessions, audit, sugar),
		Sessions: sessions,
		Throttle: th,
		Activity: audit,
	}, router.Options{
		TrustProxyHeaders: utilities.EnvBool("TRUST_PROXY_HEADERS", false),
	})
	srv := &http.Server{
		Addr:              utilities.EnvString("HTTP_ADDR", "0.0.0.0:8431"),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// run server in background
	go func() {
		sugar.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")
	stopReaper()

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// shutdown http server
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
