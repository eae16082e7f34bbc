package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"elderaid/common/database"
	"elderaid/common/logger"
	"elderaid/internal/config"

	"go.uber.org/zap"
)

const defaultSchemaFile = "db/schema.sql"

func main() {
	schemaFile := defaultSchemaFile
	if len(os.Args) > 1 {
		schemaFile = os.Args[1]
	}

	cfg := config.Load()
	log, err := logger.NewLogger(cfg.Log.Level, "console", "elderaid-migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	content, err := os.ReadFile(schemaFile)
	if err != nil {
		log.Fatal("Failed to read schema file", zap.String("file", schemaFile), zap.Error(err))
	}

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Cannot connect to database", zap.Error(err))
	}
	defer db.Close()

	log.Info("Connected to database", zap.String("database", cfg.Database.Database))

	statements := splitStatements(string(content))
	for i, stmt := range statements {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_, err := db.ExecContext(ctx, stmt)
		cancel()
		if err != nil {
			log.Fatal("Failed to execute statement",
				zap.Int("index", i+1),
				zap.String("statement", preview(stmt)),
				zap.Error(err),
			)
		}
		log.Info("Statement executed", zap.Int("index", i+1), zap.Int("total", len(statements)))
	}

	log.Info("Migration completed", zap.String("file", schemaFile))
}

// splitStatements 去掉 "--" 行注释后按分号拆分
func splitStatements(sql string) []string {
	var b strings.Builder
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var out []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func preview(stmt string) string {
	return stmt[:min(100, len(stmt))]
}
