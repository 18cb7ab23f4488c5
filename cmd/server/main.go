package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/agroshop-api/internal/apperr"
	"github.com/iliyamo/agroshop-api/internal/config"
	"github.com/iliyamo/agroshop-api/internal/database"
	"github.com/iliyamo/agroshop-api/internal/handler"
	"github.com/iliyamo/agroshop-api/internal/middleware"
	"github.com/iliyamo/agroshop-api/internal/queue"
	"github.com/iliyamo/agroshop-api/internal/repository"
	"github.com/iliyamo/agroshop-api/internal/router"
)

func main() {
	// Load .env if present; in production the variables come from the
	// environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional; rate limiting and response caching degrade to
	// pass-through middleware when it is unavailable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and caching disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	products := repository.NewProductRepo(db)
	sales := repository.NewSaleRepo(db)
	purchases := repository.NewPurchaseRepo(db)
	debts := repository.NewDebtRepo(db)
	dashboard := repository.NewDashboardRepo(db)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	authorize := middleware.Authorize(cfg.JWTSecret, tokens, users)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), limiter, authorize)
	router.RegisterAPI(e, authorize,
		handler.NewProductHandler(products),
		handler.NewSaleHandler(sales, products),
		handler.NewPurchaseHandler(purchases, products),
		handler.NewDebtHandler(debts),
	)
	router.RegisterAdmin(e, authorize, handler.NewAdminHandler(users, tokens))
	router.RegisterDashboard(e, authorize, cache, handler.NewDashboardHandler(dashboard))

	// Background consumer for low-stock alerts. Runs its own reconnect loop.
	go func() {
		if err := queue.StartStockConsumer(); err != nil {
			log.Printf("stock consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
