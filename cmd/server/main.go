package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tokokirim-be/internal/cache"
	"tokokirim-be/internal/cart"
	"tokokirim-be/internal/config"
	"tokokirim-be/internal/db"
	"tokokirim-be/internal/logger"
	"tokokirim-be/internal/order"
	"tokokirim-be/internal/payment"
	"tokokirim-be/internal/shipment"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	redisClient := cache.InitRedis(cfg)
	defer redisClient.Close()

	store := cache.NewRedisStore(redisClient)
	locker := cache.NewRedisLocker(redisClient)

	cartSvc := cart.NewService(store, locker, cfg.CartTTL, cfg.CartLockWait)

	paymentRepo := payment.NewRepository(database)

	shipmentRepo := shipment.NewRepository(database)
	shipmentSvc := shipment.NewService(shipmentRepo)

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo, cartSvc, paymentRepo, shipmentSvc)

	// The HTTP layer mounts on top of these services; the core itself
	// only needs them wired and alive.
	_ = orderSvc

	logger.L().Info("tokokirim core ready",
		zap.String("env", cfg.AppEnv),
		zap.String("port", cfg.AppPort),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L().Info("shutting down")
}
