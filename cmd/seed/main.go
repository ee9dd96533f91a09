package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/manuelcattigobetti/provaANPI/config"
	"github.com/manuelcattigobetti/provaANPI/internal/application"
	"github.com/manuelcattigobetti/provaANPI/internal/domain/entity"
	pginfra "github.com/manuelcattigobetti/provaANPI/internal/infrastructure/postgres"
	"github.com/manuelcattigobetti/provaANPI/pkg/helpers"
)

// Seeds the first administrator so the portal has someone able to manage
// users. Safe to re-run: an existing email is reported, not overwritten.
func main() {
	surname := flag.String("surname", "", "administrator surname")
	givenName := flag.String("given-name", "", "administrator given name")
	dob := flag.String("date-of-birth", "", "date of birth, YYYY-MM-DD")
	email := flag.String("email", "", "administrator email")
	flag.Parse()

	if *surname == "" || *givenName == "" || *dob == "" || *email == "" {
		flag.Usage()
		log.Fatal("all flags are required")
	}

	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := pginfra.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema bootstrap failed: %v", err)
	}

	users := application.NewUserService(pginfra.NewUserRepository(pool), nil, logger)
	u, err := users.Create(ctx, application.UserInput{
		Surname:     *surname,
		GivenName:   *givenName,
		DateOfBirth: *dob,
		Email:       *email,
		Level:       entity.LevelAdmin,
	})
	switch {
	case err == application.ErrEmailTaken:
		logger.Infof("administrator %s already exists, nothing to do", *email)
	case err != nil:
		log.Fatalf("seed failed: %v", err)
	default:
		logger.Infof("administrator created with id %d", u.ID)
	}
}
