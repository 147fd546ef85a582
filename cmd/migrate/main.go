package main // schema migration and seeding entry point

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/lessons-api/internal/config"
	"github.com/iliyamo/lessons-api/internal/database"
	"github.com/iliyamo/lessons-api/internal/logging"
	"github.com/iliyamo/lessons-api/internal/repository"
)

func main() {
	seed := flag.Bool("seed", false, "create the default admin and user accounts")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, "lessons-migrate")

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Error("database unavailable", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := database.Migrate(ctx, db); err != nil {
		log.Error("migration failed", "err", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if !*seed {
		return
	}
	n, err := database.Seed(ctx, repository.NewUserRepo(db), database.DefaultSeedUsers, cfg.BcryptCost)
	if err != nil {
		log.Error("seeding failed", "created", n, "err", err)
		os.Exit(1)
	}
	log.Info("seeded users", "created", n)
}
