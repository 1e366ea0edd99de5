package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"auction-marketplace/internal/api/handlers"
	"auction-marketplace/internal/config"
	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/infrastructure/leader"
	"auction-marketplace/internal/infrastructure/mysql"
	"auction-marketplace/internal/infrastructure/redis"
	"auction-marketplace/internal/infrastructure/websocket"
	"auction-marketplace/internal/services"
	"auction-marketplace/pkg/logger"
)

func main() {
	log := logger.New()
	log.Info("Starting auction marketplace service")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Error("Failed to connect to MySQL", "error", err)
		os.Exit(1)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}(db)

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		log.Error("Failed to ping MySQL", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to MySQL")

	// Repositories
	auctionRepo := mysql.NewMySQLAuctionRepository(db)
	winnerRepo := mysql.NewMySQLWinnerRepository(db)
	historyRepo := mysql.NewMySQLHistoryRepository(db)
	userDirectory := mysql.NewMySQLUserDirectory(db)

	// Redis based components
	statusCache := redis.NewStatusCache(rdb)
	eventPublisher := redis.NewEventPublisher(rdb)
	eventSubscriber := redis.NewEventSubscriber(rdb, log)

	// WebSocket hub
	connManager := websocket.NewConnectionManager(log)
	wsNotifier := websocket.NewWebSocketNotifier(connManager)

	// Services
	clock := domain.RealClock{}
	winnerRecorder := services.NewWinnerRecorder(auctionRepo, winnerRepo, userDirectory,
		wsNotifier, eventPublisher, log)
	historyRecorder := services.NewHistoryRecorder(historyRepo, userDirectory, clock, log)
	bidEngine := services.NewBidEngine(auctionRepo, winnerRecorder, historyRecorder,
		eventPublisher, clock, cfg.Bidding.MaxAdmissionRetries, log)
	auctionManager := services.NewAuctionManager(auctionRepo, winnerRecorder, winnerRepo,
		historyRepo, statusCache, eventPublisher, clock, log)
	sweepElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL)
	sweeper := services.NewExpirySweeper(auctionRepo, winnerRecorder, statusCache,
		eventPublisher, sweepElection, cfg.Instance.ID, clock, cfg.Sweeper.Interval, log)

	// Fan published events out to live websocket watchers.
	subscriberCtx, stopSubscriber := context.WithCancel(context.Background())
	defer stopSubscriber()
	go func() {
		err := eventSubscriber.SubscribeToEvents(subscriberCtx, func(event *domain.AuctionEvent) error {
			if err := connManager.BroadcastToAuction(event.AuctionID, event); err != nil {
				return err
			}
			if event.Type == domain.EventAuctionEnded {
				return connManager.CloseAndUnregisterConnections(event.AuctionID)
			}
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event subscriber exited", "error", err)
		}
	}()

	// Handlers
	auctionHandler := handlers.NewAuctionHandler(auctionManager, log)
	bidHandler := handlers.NewBidHandler(bidEngine, auctionManager, log)
	wsHandlers := handlers.NewWebSocketHandlers(bidEngine, auctionRepo, connManager, clock, log)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","host":"${host}","method":"${method}","uri":"${uri}","status":${status},"error":"${error}","latency_human":"${latency_human}"}` + "\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"X-User-ID",
		},
	}))

	// API routes
	api := e.Group("/api/v1")
	api.POST("/auctions", auctionHandler.CreateAuction)
	api.GET("/auctions", auctionHandler.ListAuctions)
	api.GET("/auctions/:id", auctionHandler.GetAuction)
	api.PUT("/auctions/:id", auctionHandler.UpdateAuction)
	api.PUT("/auctions/:id/endtime", auctionHandler.UpdateEndTime)
	api.DELETE("/auctions/:id", auctionHandler.DeleteAuction)
	api.POST("/auctions/:id/bid", bidHandler.PlaceBid)
	api.POST("/auctions/:id/end", auctionHandler.EndAuctionNow)
	api.GET("/auctions/:id/status", auctionHandler.GetStatus)
	api.GET("/auctions/:id/winner", auctionHandler.GetWinner)
	api.GET("/users/me/bids", bidHandler.ParticipatedBids)
	api.GET("/users/me/auctions/bids", bidHandler.SellerBidHistory)
	api.GET("/users/me/winners", bidHandler.WinnerNotifications)
	api.GET("/ws/auctions/:id", wsHandlers.HandleConnection)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auction-marketplace",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Background expiry sweep
	if err := sweeper.Start(context.Background()); err != nil {
		log.Error("Failed to start expiry sweeper", "error", err)
		os.Exit(1)
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting HTTP server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sweeper.Stop(); err != nil {
		log.Error("Failed to stop expiry sweeper", "error", err)
	}
	if err := sweepElection.ReleaseLeadership(ctx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release sweep leadership", "error", err)
	}
	stopSubscriber()

	if err := e.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Auction marketplace service stopped")
}
