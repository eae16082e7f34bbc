package service

import (
	"database/sql"

	"elderaid/common/database"
	"elderaid/internal/config"
	"elderaid/internal/repository"
	"elderaid/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// OpenRepositories 按 STORAGE_BACKEND 选择存储；postgres 连接失败时回退到 KV
// 返回的 *sql.DB 在使用 KV 时为 nil
func OpenRepositories(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) (repository.Repositories, *sql.DB) {
	kvRepos := repository.NewKVRepository(store.NewRedisKV(redisClient)).Repositories()

	switch cfg.Storage.Backend {
	case "kv":
		logger.Info("Using KV storage backend")
		return kvRepos, nil
	case "postgres":
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			logger.Warn("DB connection failed, falling back to KV storage", zap.Error(err))
			return kvRepos, nil
		}
		logger.Info("Using PostgreSQL storage backend")
		return repository.NewPostgresRepositories(db), db
	default:
		logger.Warn("Unknown storage backend, using KV storage", zap.String("backend", cfg.Storage.Backend))
		return kvRepos, nil
	}
}
