package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ubuntu-network/api/internal/config"
	"github.com/ubuntu-network/api/internal/handlers"
	"github.com/ubuntu-network/api/internal/middleware"
	"github.com/ubuntu-network/api/internal/repository"
	"github.com/ubuntu-network/api/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
	}

	dynamoClient, err := initDynamoDB(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize DynamoDB")
	}

	redisClient := initRedis(cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Repositories
	userRepo := repository.NewUserRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	otpStore := repository.NewMemoryOTPStore(logger)

	// Services
	jwtService, err := service.NewJWTService(&cfg.JWT, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize JWT service")
	}

	var notifier service.Notifier
	if cfg.Twilio.Enabled() {
		notifier = service.NewTwilioNotifier(&cfg.Twilio, cfg.OTP.Expiry, logger)
	} else {
		logger.Warn("Twilio is not configured, OTP codes will be logged instead of sent")
		notifier = service.NewLogNotifier(logger)
	}

	otpService := service.NewOTPService(otpStore, &cfg.OTP, logger)
	sessionService := service.NewSessionService(redisClient, logger)
	limiter := service.NewRedisOTPRateLimiter(redisClient, cfg.OTP.RequestWindow, cfg.OTP.RequestLimit, logger)

	authService := service.NewAuthService(
		otpService,
		notifier,
		userRepo,
		jwtService,
		sessionService,
		limiter,
		&cfg.OTP,
		logger,
	)
	userService := service.NewUserService(userRepo, logger)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go otpService.RunSweeper(sweepCtx, cfg.OTP.SweepInterval)

	validator := handlers.NewRequestValidator()
	authMiddleware := middleware.NewAuthMiddleware(jwtService, sessionService, authService, logger)
	router := handlers.NewRouter(
		handlers.NewAuthHandlers(authService, validator, logger),
		handlers.NewUserHandlers(userService, validator, logger),
		authMiddleware,
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      middleware.CORSMiddleware(cfg.Server.AllowedOrigins)(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port": cfg.Server.Port,
			"env":  cfg.Server.Env,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(cfg.DynamoDB.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDB.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDB.Endpoint)
		}
	})

	logger.WithField("table", cfg.DynamoDB.TableName).Info("DynamoDB client initialized")
	return client, nil
}

// initRedis returns nil when no endpoint is configured.
func initRedis(cfg *config.Config, logger *logrus.Logger) *redis.Client {
	if cfg.Redis.Endpoint == "" {
		logger.Warn("Redis is not configured, OTP rate limiting and session revocation are disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Endpoint,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis ping failed, continuing; rate limiting fails open")
	} else {
		logger.WithField("endpoint", cfg.Redis.Endpoint).Info("Redis client initialized")
	}
	return client
}
