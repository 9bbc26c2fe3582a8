package main

// @title           Latchkey Core API
// @version         1.0
// @description     Pluggable authentication core. Latchkey Core validates credentials and issues session, JWT, and opaque API tokens over interchangeable storage backends.

// @contact.name   Latchkey OSS
// @contact.url    https://github.com/latchkey-io/latchkey-core/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Token issued by an authenticator. Format: "Bearer {token}"

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/latchkey-io/latchkey-core/internal/adapters/driven/auth"
	"github.com/latchkey-io/latchkey-core/internal/adapters/driven/postgres"
	redisadapter "github.com/latchkey-io/latchkey-core/internal/adapters/driven/redis"
	"github.com/latchkey-io/latchkey-core/internal/adapters/driving/http"
	"github.com/latchkey-io/latchkey-core/internal/config"
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driven"
	"github.com/latchkey-io/latchkey-core/internal/core/schemes"
	"github.com/latchkey-io/latchkey-core/internal/observability"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	log.Printf("latchkey-core %s starting", version)

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize Sentry: %v", err)
	}
	defer observability.FlushSentry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ===== Credential primitives =====
	verifier := auth.NewVerifierWithCost(cfg.BcryptCost)
	cipher, err := auth.NewCipher([]byte(cfg.EncryptionKey))
	if err != nil {
		log.Fatalf("Failed to create token cipher: %v", err)
	}

	factory := schemes.NewFactory(cipher)

	// ===== Storage backends =====
	// The first connected backend doubles as the user registry for setup.
	var (
		registry    driven.UserRegistry
		primary     string
		dbPinger    http.Pinger
		redisPinger http.Pinger
	)

	if cfg.DatabaseURL != "" {
		log.Println("Connecting to PostgreSQL...")
		db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.DatabaseURL))
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		// Initialize schema (idempotent)
		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		log.Println("PostgreSQL connected and schema initialized")

		serializer := postgres.NewSerializer(db, verifier)
		factory.RegisterSerializer("postgres", serializer)
		registry = serializer
		primary = "postgres"
		dbPinger = db
	}

	if cfg.RedisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer client.Close()
		log.Println("Redis connected")

		serializer := redisadapter.NewSerializer(client, verifier)
		factory.RegisterSerializer("redis", serializer)
		if registry == nil {
			registry = serializer
			primary = "redis"
		}
		redisPinger = serializer
	}

	// ===== Authenticator registry =====
	authenticators, defaultName, err := config.LoadAuthenticators(cfg.AuthenticatorsFile, primary)
	if err != nil {
		log.Fatalf("Failed to load authenticators: %v", err)
	}
	for name, ac := range authenticators {
		if err := factory.Validate(ac); err != nil {
			log.Fatalf("Invalid authenticator %q: %v", name, err)
		}
	}
	log.Printf("Authenticators loaded: %d configured, default=%s", len(authenticators), defaultName)

	// ===== HTTP server =====
	serverCfg := http.Config{
		Host:    cfg.Host,
		Port:    cfg.Port,
		Version: version,
	}
	server := http.NewServer(serverCfg, factory, authenticators, defaultName, registry, verifier, dbPinger, redisPinger)

	log.Printf("API server starting on :%d", cfg.Port)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
