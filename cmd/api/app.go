package main

import (
	"context"
	"fmt"

	"bank-cards/config"
	pgStorage "bank-cards/internal/adapter/storage/postgres"
	"bank-cards/internal/core/ports"
	"bank-cards/internal/service"
	"bank-cards/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// app holds the configuration and the database-backed services every command needs.
type app struct {
	cfg  *config.Config
	log  zerolog.Logger
	pool *pgxpool.Pool

	userRepo   *pgStorage.UserRepo
	cardRepo   *pgStorage.CardRepo
	transactor *pgStorage.Transactor

	hashSvc  ports.HashService
	tokenSvc ports.TokenService
	numSvc   ports.CardNumberService
	userSvc  ports.UserService
	sweeper  ports.ExpirySweeper
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid config: %w", err)
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Pretty), nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	numSvc, err := service.NewAESCardNumberService(cfg.Card.EncryptionKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("card number service: %w", err)
	}

	a := &app{
		cfg:        cfg,
		log:        log,
		pool:       pool,
		userRepo:   pgStorage.NewUserRepo(pool),
		cardRepo:   pgStorage.NewCardRepo(pool),
		transactor: pgStorage.NewTransactor(pool),
		hashSvc:    service.NewArgon2HashService(),
		tokenSvc:   service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL, cfg.JWT.Issuer),
		numSvc:     numSvc,
	}
	a.userSvc = service.NewUserService(a.userRepo, a.hashSvc, log)
	a.sweeper = service.NewExpirySweeper(a.cardRepo, log)
	return a, nil
}

func (a *app) Close() {
	a.pool.Close()
}
