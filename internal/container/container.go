package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/manuelcattigobetti/provaANPI/config"
	"github.com/manuelcattigobetti/provaANPI/internal/audit"
	"github.com/manuelcattigobetti/provaANPI/internal/session"
	"github.com/manuelcattigobetti/provaANPI/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client

	sessionMgr *session.Manager
	cookieMgr  *helpers.CookieManager
	auditLog   *audit.Logger

	rabbitPub *helpers.RabbitPublisher
	esClient  *elasticsearch.Client
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config  { return cfg }
func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger  { return logger }
func SetPGPool(p *pgxpool.Pool)  { pgPool = p }
func GetPGPool() *pgxpool.Pool   { return pgPool }
func SetRedis(r *redis.Client)   { redisClient = r }
func GetRedis() *redis.Client    { return redisClient }

func SetSessions(m *session.Manager)        { sessionMgr = m }
func GetSessions() *session.Manager         { return sessionMgr }
func SetCookies(m *helpers.CookieManager)   { cookieMgr = m }
func GetCookies() *helpers.CookieManager    { return cookieMgr }
func SetAudit(a *audit.Logger)              { auditLog = a }
func GetAudit() *audit.Logger               { return auditLog }

func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }
