package router

import (
	"github.com/manuelcattigobetti/provaANPI/internal/application"
	"github.com/manuelcattigobetti/provaANPI/internal/container"
	"github.com/manuelcattigobetti/provaANPI/internal/infrastructure/elastic"
	pginfra "github.com/manuelcattigobetti/provaANPI/internal/infrastructure/postgres"
	handlers "github.com/manuelcattigobetti/provaANPI/internal/interface/http"
	"github.com/manuelcattigobetti/provaANPI/internal/router/modules"
)

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()

	repo := pginfra.NewUserRepository(container.GetPGPool())
	index := elastic.NewUserIndex(container.GetES(), cfg.ESUsersIndex, container.GetLogger())

	users := application.NewUserService(repo, index, container.GetLogger())

	// Typed nil guard: a missing broker must stay nil behind the interface.
	var pub application.Publisher
	if rp := container.GetRabbitPub(); rp != nil {
		pub = rp
	}
	challenges := application.NewChallengeService(
		pub,
		container.GetAudit(),
		container.GetLogger(),
		cfg.ChallengeTTL,
		cfg.VerifyLoginURL,
		cfg.ExposeVerifyLink,
	)

	authHandler := handlers.NewAuthHandler(
		users, challenges,
		container.GetSessions(), container.GetCookies(),
		container.GetAudit(), container.GetLogger(),
	)
	userHandler := handlers.NewUserHandler(users, container.GetAudit(), container.GetLogger())

	r.Add(modules.NewAuthModule(authHandler))
	r.Add(modules.NewUserModule(userHandler))
}
