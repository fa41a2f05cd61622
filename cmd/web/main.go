// Admin stats endpoint: a small read-only HTTP surface over the same
// SQLite file the bot writes. Run it next to the bot, not instead of
// it.
package main

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"snapsell-bot/internal/store"
)

func main() {
	_ = godotenv.Load()

	dbPath := getEnv("SNAPSELL_DB_PATH", "snapsell.db")
	addr := getEnv("WEB_ADDR", ":8080")
	if !strings.HasPrefix(addr, ":") && !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	token := strings.TrimSpace(os.Getenv("STATS_TOKEN"))

	db, err := store.Open(store.Options{
		Path:      dbPath,
		FreeLimit: getEnvInt("FREE_GENERATIONS", 3),
	})
	if err != nil {
		panic(err)
	}
	defer db.Close()

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			e.Logger.Infof("%s %s - %d - %.2fms",
				v.Method,
				v.URI,
				v.Status,
				float64(v.Latency.Microseconds())/1000.0,
			)
			return nil
		},
	}))

	e.GET("/api/stats", func(c echo.Context) error {
		if token != "" {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if auth != "Bearer "+token {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
		}

		st, err := db.Stats()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, st)
	})

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
	})

	e.Logger.Fatal(e.Start(addr))
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
