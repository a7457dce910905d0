package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fekuna/omnipos-asset-scan-service/config"
	"github.com/fekuna/omnipos-asset-scan-service/internal/app"
	"github.com/fekuna/omnipos-asset-scan-service/internal/logger"
	"github.com/fekuna/omnipos-asset-scan-service/internal/middleware"
	scanH "github.com/fekuna/omnipos-asset-scan-service/internal/record/handler"
	scanListenerPkg "github.com/fekuna/omnipos-asset-scan-service/internal/record/listener"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Store, lock, catalog, forwarder, search index and use case
	application, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Could not initialize application", zap.Error(err))
	}
	defer application.Close()

	// 4. Handlers
	scanHandler := scanH.NewScanHandler(application.UseCase, appLogger)

	// 5. gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	lis, err := net.Listen("tcp", port)
	if err != nil {
		appLogger.Fatal("failed to listen", zap.Error(err))
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.RecoveryInterceptor(appLogger),
			middleware.ContextInterceptor(cfg.Server.DeviceID),
			middleware.AuthInterceptor([]byte(cfg.Auth.SecretKey), cfg.Auth.Required),
			middleware.LoggingInterceptor(appLogger),
		),
	)
	scanH.RegisterScanServiceServer(grpcServer, scanHandler)
	reflection.Register(grpcServer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("Starting gRPC server", zap.String("port", port))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})

	// 6. Scan listener
	if cfg.Kafka.Enabled {
		reader := scanListenerPkg.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.ScanTopic, cfg.Kafka.GroupID)
		defer reader.Close()
		appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.ScanTopic))

		scanListener := scanListenerPkg.NewScanListener(reader, application.UseCase, appLogger)
		g.Go(func() error {
			scanListener.Start(gctx)
			return nil
		})
	}

	// Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("server exited with error", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
