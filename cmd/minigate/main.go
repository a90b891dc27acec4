package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/layer-3/minigate/adapters/ens"
	"github.com/layer-3/minigate/adapters/events"
	"github.com/layer-3/minigate/adapters/identity"
	"github.com/layer-3/minigate/adapters/noncestore"
	"github.com/layer-3/minigate/adapters/oracle"
	"github.com/layer-3/minigate/adapters/sessions"
	"github.com/layer-3/minigate/adapters/verifier"
	"github.com/layer-3/minigate/config"
	"github.com/layer-3/minigate/db"
	"github.com/layer-3/minigate/logger"
	"github.com/layer-3/minigate/ports"
	"github.com/layer-3/minigate/service"
	transport "github.com/layer-3/minigate/transport/http"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	ctx := context.Background()

	// Generate a new ECDSA key pair (you would normally load this from somewhere secure)
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		zlog.Fatal("generate session signing key", zap.Error(err))
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zlog.Fatal("parse Redis URL", zap.Error(err))
	}
	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zlog.Fatal("connect to Redis", zap.Error(err))
	}

	pg, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("connect to Postgres", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(pg); err != nil {
		zlog.Fatal("run migrations", zap.Error(err))
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		zlog.Fatal("create event publisher", zap.Error(err))
	}

	var personhood ports.PersonhoodOracle = oracle.Static(false)
	if cfg.PersonhoodOracleURL != "" {
		personhood = oracle.NewHTTPOracle(cfg.PersonhoodOracleURL)
	}

	var names ports.NameResolver
	if cfg.ENSResolverURL != "" {
		names = ens.NewHTTPResolver(cfg.ENSResolverURL)
	}

	identities := identity.NewPostgresStore(pg)
	issuer := sessions.NewJWTIssuer(signKey, cfg.SessionTTL)

	authService := service.NewAuthService(
		noncestore.NewRedisStore(redisClient),
		identities,
		verifier.NewEIP191Verifier(),
		personhood,
		names,
		issuer,
		events.NewWatermillPublisher(publisher),
		zlog,
		service.Options{
			Domain:      cfg.Domain,
			EmailDomain: cfg.EmailDomain,
			Anonymous:   cfg.Anonymous,
			NonceTTL:    cfg.NonceTTL,
		},
	)

	router := transport.SetupRouter(authService, identities, issuer, zlog)

	zlog.Info("listening", zap.String("addr", cfg.ListenAddr))
	if err := router.Run(cfg.ListenAddr); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
