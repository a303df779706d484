package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v7"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	gateway "github.com/plateful/plateful/apigateway"
	"github.com/plateful/plateful/models"
	"github.com/plateful/plateful/recipes"
	"github.com/plateful/plateful/spoonacular"
	"github.com/plateful/plateful/store"
	"github.com/plateful/plateful/users"
	"github.com/plateful/plateful/utils"
)

var logrusLogger = logrus.New()

// GetMainEngine function responsible for getting all of our routes to be delivered for gin
func GetMainEngine(cfg models.Config, db *gorm.DB, redisClient *redis.Client, auth *gateway.JWTAuth, spoon *spoonacular.Client) *gin.Engine {
	route := gin.New()
	route.HandleMethodNotAllowed = true
	route.Use(gin.Recovery())
	route.Use(gateway.RequestID())
	route.Use(gateway.RequestLogger(logrusLogger, logSampling))
	route.Use(gateway.Instrumentation())
	route.Use(gateway.OptionsMiddleware)

	limiter := &gateway.RateLimiter{Redis: redisClient, Logger: logrusLogger}
	authLimit := gateway.RateLimit{Name: "auth", PerMinute: cfg.AuthRatePerMinute, Burst: cfg.AuthBurst}
	recipeLimit := gateway.RateLimit{Name: "recipes", PerMinute: cfg.RecipeRatePerMinute, Burst: cfg.RecipeBurst}

	usersService := users.Service{Db: db, Logger: logrusLogger, Config: cfg, Auth: auth}
	recipesService := recipes.Service{Db: db, Logger: logrusLogger, Config: cfg, Spoon: spoon}

	route.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	route.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRoutes := route.Group("/api/auth", limiter.Middleware(authLimit))
	authRoutes.POST("/register", usersService.Register)
	authRoutes.POST("/login", usersService.Login)
	authRoutes.POST("/google", usersService.GoogleAuth)
	authRoutes.GET("/profile", auth.AuthMiddleware(), usersService.Profile)

	recipeRoutes := route.Group("/api/recipes", limiter.Middleware(recipeLimit))
	recipeRoutes.GET("", recipesService.GetAllRecipes)
	recipeRoutes.GET("/search", recipesService.SearchRecipes)
	recipeRoutes.POST("/save", auth.AuthMiddleware(), recipesService.SaveRecipe)
	recipeRoutes.GET("/saved", auth.AuthMiddleware(), recipesService.ListSaved)
	recipeRoutes.DELETE("/saved/:id", auth.AuthMiddleware(), recipesService.DeleteSaved)
	recipeRoutes.PUT("/saved/order", auth.AuthMiddleware(), recipesService.ReorderSaved)
	recipeRoutes.GET("/:id", recipesService.GetRecipeByID)

	return route
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		logrusLogger.Fatalf("could not load config: %v", err)
	}
	configureLogger(cfg)

	if cfg.JWTSecret == "" {
		logrusLogger.Fatal("jwt_secret is required")
	}
	if len(cfg.SpoonacularKeys) == 0 {
		logrusLogger.Warn("no spoonacular api keys configured, recipe discovery will fail")
	}

	db, err := store.Open(cfg.DatabasePath, cfg.IsDebug)
	if err != nil {
		logrusLogger.Fatalf("could not open database: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		logrusLogger.Fatalf("could not migrate database: %v", err)
	}

	redisClient := utils.GetRedis(cfg.RedisAddress)
	if err := redisClient.Ping().Err(); err != nil {
		logrusLogger.WithField("error", err.Error()).Warn("redis unavailable, rate limiting disabled")
		redisClient = nil
	}

	auth := &gateway.JWTAuth{Key: []byte(cfg.JWTSecret)}
	spoon := spoonacular.NewClient(cfg.SpoonacularKeys, logrusLogger)
	if cfg.SpoonacularURL != "" {
		spoon.BaseURL = cfg.SpoonacularURL
	}

	if !cfg.IsDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := GetMainEngine(cfg, db, redisClient, auth, spoon)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrusLogger.Infof("plateful listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrusLogger.Fatalf("server error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrusLogger.Errorf("graceful shutdown failed: %v", err)
	}
}
