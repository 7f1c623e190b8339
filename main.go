package main

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"autoops-api/api"
	"autoops-api/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tasksTableName := os.Getenv("TASKS_TABLE")
	usersTableName := os.Getenv("USERS_TABLE")
	welcomeQueueName := os.Getenv("WELCOME_QUEUE")
	if connStr == "" || tasksTableName == "" || usersTableName == "" || welcomeQueueName == "" {
		log.Fatal("missing storage config")
	}
	store, err := storage.New(connStr, tasksTableName, usersTableName, welcomeQueueName)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	rc := redis.NewClient(redisOpts)
	cacheTTL := 5 * time.Minute
	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid CACHE_TTL: %v", err)
		}
		cacheTTL = d
	}
	cached := storage.NewCache(store, rc, cacheTTL)

	var auth *api.Auth
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		auth = api.NewAuth([]byte(secret))
	} else {
		jwksURL := os.Getenv("AUTH_JWKS_URL")
		if jwksURL == "" {
			log.Fatal("missing auth config: set JWT_SECRET or AUTH_JWKS_URL")
		}
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewJWKSAuth(jwks, os.Getenv("AUTH_AUDIENCE"), os.Getenv("AUTH_ISSUER"))
	}

	tp := sdktrace.NewTracerProvider()
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warnf("tracer shutdown: %v", err)
		}
	}()
	otel.SetTracerProvider(tp)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(api.GzipRequestMiddleware())
	e.Use(echoprometheus.NewMiddleware("autoops_api"))
	e.GET("/metrics", echoprometheus.NewHandler())

	logger := log.New()
	api.Register(e, cached, auth, auth, logger)

	listenAddr := ":3001"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
