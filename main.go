// Command patternrush-server is the global scoreboard: a small JSON API over
// SQLite with optional accounts and a live websocket feed.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/patternrush/assets"
	"github.com/robalobadob/patternrush/internal/database"
	"github.com/robalobadob/patternrush/internal/httpserver"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	dbPath := getEnv("DB_PATH", "./data/leaderboard.db")
	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dbPath).Msg("failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	srv := httpserver.New(db, httpserver.ConfigFromEnv())
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Str("db", dbPath).Msg("starting scoreboard server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
