package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"taskman/pkg/session"

	"github.com/gin-gonic/gin"
)

var (
	sessionCodec *session.Codec
	blacklist    *session.Blacklist
)

func main() {
	// Auto-load ./.env if present (no external dependency) before reading vars
	loadDotEnv()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("APP_ENV") != "development" {
			log.Fatal("JWT_SECRET is not set; refusing to start with a default secret outside development")
		}
		secret = "dev-insecure-secret-change"
		log.Println("warning: JWT_SECRET not set, using development fallback")
	}

	ttl := envDuration("TOKEN_TTL", 24*time.Hour)
	retention := envDuration("REVOKE_RETENTION", 24*time.Hour)
	// A revoked token must stay blacklisted until its own expiry has passed.
	if retention < ttl {
		log.Fatalf("REVOKE_RETENTION (%s) must be at least TOKEN_TTL (%s)", retention, ttl)
	}
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid BCRYPT_COST: %v", err)
		}
		bcryptCost = cost
	}

	// Support a lightweight migrate command: `./taskman migrate`
	// It runs AutoMigrate and exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		fmt.Println("migration completed")
		return
	}

	initDB()
	initAuth([]byte(secret), ttl, retention)
	defer blacklist.Close()
	initMetrics(blacklist)

	r := gin.Default()
	r.Use(requestIDMiddleware(), metricsMiddleware())
	setupRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}
	r.Run(":" + port)
}

// initAuth wires the session codec and blacklist globals. Split out so the
// integration tests can build the same runtime.
func initAuth(secret []byte, ttl, retention time.Duration) {
	sessionCodec = session.NewCodec(secret, ttl)
	blacklist = session.NewBlacklist(retention)
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return d
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
