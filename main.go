package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/activity"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/utilities"
)

// Bootstrap: applies the schema and seeds the single super_admin from
// SUPER_ADMIN_* env. Safe to run repeatedly.
func main() {
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting bootstrap")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	// init db
	db, err := database.Open(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		sugar.Fatalf("ensure schema: %v", err)
	}

	clock := clockwork.NewRealClock()
	hasher := user.BcryptHasher{Cost: utilities.EnvInt("BCRYPT_COST", user.DefaultBcryptCost)}
	users := user.NewUserService(db, hasher, activity.NewService(db, clock, sugar), clock, sugar)

	u, created, err := users.BootstrapSuperAdmin(ctx, user.CreateAdminInput{
		Username: os.Getenv("SUPER_ADMIN_USERNAME"),
		Name:     os.Getenv("SUPER_ADMIN_NAME"),
		Email:    os.Getenv("SUPER_ADMIN_EMAIL"),
		Password: os.Getenv("SUPER_ADMIN_PASSWORD"),
	})
	if err != nil {
		sugar.Fatalf("bootstrap super admin: %v", err)
	}
	if !created {
		sugar.Info("super admin already exists; nothing to do")
		return
	}
	sugar.Infow("super admin created", "user_id", u.ID, "username", u.Username)
}
