package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/cyberauditpro/cyberaudit/adapters/events"
	"github.com/cyberauditpro/cyberaudit/adapters/identity/gotrue"
	"github.com/cyberauditpro/cyberaudit/adapters/identity/memory"
	"github.com/cyberauditpro/cyberaudit/adapters/remoteconfig"
	"github.com/cyberauditpro/cyberaudit/adapters/store"
	"github.com/cyberauditpro/cyberaudit/adapters/tokenizer"
	"github.com/cyberauditpro/cyberaudit/config"
	"github.com/cyberauditpro/cyberaudit/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newRedisClient(cfg config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func usesRedis(cfg config.Config) bool {
	return cfg.LeadStore == "redis" || cfg.Events == "redis"
}

func newTokenizer(cfg config.Config) (ports.Tokenizer, error) {
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		// Only the memory identity backend gets here; its tokens never leave the process
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
	}
	return tokenizer.NewJWTTokenizer(secret), nil
}

func newIdentityBackend(cfg config.Config, tok ports.Tokenizer) ports.IdentityBackend {
	if cfg.Identity == "memory" {
		return memory.NewBackend(tok)
	}
	return gotrue.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
}

func newConfigBackend(cfg config.Config) ports.ConfigBackend {
	switch {
	case cfg.RelayConfigFile != "":
		return remoteconfig.NewFileBackend(cfg.RelayConfigFile)
	case cfg.SupabaseURL != "":
		return remoteconfig.NewFunctionsClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	default:
		return nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newLeadStore(ctx context.Context, cfg config.Config, redisClient *redis.Client) (ports.LeadStore, io.Closer, error) {
	switch cfg.LeadStore {
	case "redis":
		return store.NewRedisLeadStore(redisClient), nopCloser{}, nil
	case "memory":
		return store.NewMemoryLeadStore(), nopCloser{}, nil
	default:
		s, err := store.OpenSQLiteLeadStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
}

func newRevocationStore(redisClient *redis.Client) ports.Store {
	if redisClient != nil {
		return store.NewRedisStore(redisClient)
	}
	return store.NewMemoryStore()
}

func newPublisher(cfg config.Config, redisClient *redis.Client, logger *zap.Logger) (message.Publisher, error) {
	wmLogger := events.NewZapLogger(logger)
	if cfg.Events == "redis" {
		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			wmLogger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis publisher: %w", err)
		}
		return publisher, nil
	}
	return gochannel.NewGoChannel(gochannel.Config{}, wmLogger), nil
}
