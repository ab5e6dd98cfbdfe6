package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"couponnet/internal/model"
	"couponnet/internal/repository"
	"couponnet/internal/service"
	"couponnet/pkg/config"
	"couponnet/pkg/database"
	"couponnet/pkg/errors"
)

func main() {
	config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	mongoURI := config.GetEnv("MONGO_URI", "mongodb://localhost:27017")
	dbName := config.GetEnv("MONGO_DB", "couponnet")
	port := config.GetEnv("PORT", "8080")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoDB, err := database.Connect(ctx, mongoURI, dbName)
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongoDB.Disconnect(context.Background()); err != nil {
			logger.Error("error disconnecting from MongoDB", zap.Error(err))
		}
	}()
	logger.Info("connected to MongoDB", zap.String("db", dbName))

	// Repositories.
	codeRepo := repository.NewCodeRepository(mongoDB.Database)
	walletRepo := repository.NewWalletRepository(mongoDB.Database)
	ledgerRepo := repository.NewLedgerRepository(mongoDB.Database)
	progressRepo := repository.NewProgressRepository(mongoDB.Database)
	rewardRepo := repository.NewRewardRepository(mongoDB.Database)
	withdrawalRepo := repository.NewWithdrawalRepository(mongoDB.Database)
	submissionRepo := repository.NewSubmissionRepository(mongoDB.Database)
	scheduleRepo := repository.NewScheduleRepository(mongoDB.Database)
	directory := repository.NewDirectory(mongoDB.Database)

	if err := seedSchedule(ctx, scheduleRepo); err != nil {
		logger.Fatal("failed to seed schedule", zap.Error(err))
	}

	uow := database.NewUnitOfWork(mongoDB.Client)

	// Engines and services.
	matrix := service.NewMatrixEngine(directory, ledgerRepo, walletRepo, progressRepo, logger)
	generation := service.NewGenerationEngine(directory, ledgerRepo, walletRepo)
	rewards := service.NewRewardEngine(rewardRepo)
	lifecycle := service.NewLifecycleService(codeRepo, walletRepo, ledgerRepo, scheduleRepo, directory, matrix, generation, rewards, uow, logger)
	assignments := service.NewAssignmentService(codeRepo, directory, uow, logger)
	wallets := service.NewWalletService(walletRepo, ledgerRepo)
	withdrawals := service.NewWithdrawalService(walletRepo, withdrawalRepo, directory, uow, config.PlatformLocation(), nil, logger)
	submissions := service.NewSubmissionService(submissionRepo, directory)

	router := setupRouter(&server{
		assignments: assignments,
		lifecycle:   lifecycle,
		wallets:     wallets,
		withdrawals: withdrawals,
		matrix:      matrix,
		rewards:     rewards,
		submissions: submissions,
		schedules:   scheduleRepo,
		logger:      logger,
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}

// seedSchedule installs the default commission/reward schedule on first
// boot so the engines always have a snapshot to load.
func seedSchedule(ctx context.Context, schedules repository.ScheduleRepository) error {
	_, err := schedules.Current(ctx)
	if err == nil {
		return nil
	}
	if !errors.IsKind(err, errors.KindNotFound) {
		return err
	}
	return schedules.Put(ctx, model.DefaultSchedule())
}
