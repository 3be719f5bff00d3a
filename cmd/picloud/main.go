package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	auth "github.com/picloud/go-auth"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"
)

func main() {
	zlog, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer zlog.Sync()

	if err := run(zlog); err != nil {
		zlog.Sugar().Errorf("picloud auth exited: %v", err)
		os.Exit(1)
	}
}

func run(zlog *zap.Logger) error {
	logger := auth.NewZapLogger(zlog)

	cfg, err := auth.LoadConfig(os.Getenv("PICLOUD_CONFIG"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	if err := auth.CreateSchema(ctx, db); err != nil {
		return err
	}

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	if err := auth.SeedAdmin(ctx, repo, cfg.AdminEmail, cfg.AdminPassword, logger); err != nil {
		return err
	}

	sessions, err := auth.DialSessionStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer sessions.Close()

	codec, err := auth.NewCodec(cfg.SigningSecret)
	if err != nil {
		return err
	}
	codec.WithLogger(logger)

	tokens, err := auth.NewTokenService(
		[]byte(cfg.SigningSecret),
		cfg.SessionTTL,
		cfg.ExtendedSessionTTL,
		cfg.BaseURL,
		logger,
	)
	if err != nil {
		return err
	}

	auther := auth.NewAuthenticator(repo, tokens, sessions).WithLogger(logger)

	mailer := auth.NewSMTPMailer(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUsername,
		cfg.SMTPPassword,
		cfg.SMTPFrom,
	).WithLogger(logger)

	controller := auth.NewController(auth.ControllerConfig{
		Authenticator:      auther,
		Register:           auth.NewRegisterUserHandler(repo, codec, mailer, cfg.BaseURL, cfg.ConfirmTokenMaxAge).WithLogger(logger),
		Confirm:            auth.NewConfirmAccountHandler(repo, codec, cfg.ConfirmTokenMaxAge),
		ResetInitialize:    auth.NewInitializePasswordResetHandler(repo, codec, mailer, cfg.BaseURL, cfg.RecoveryTokenMaxAge).WithLogger(logger),
		ResetFinalize:      auth.NewFinalizePasswordResetHandler(repo, codec, cfg.RecoveryTokenMaxAge),
		CookieName:         cfg.CookieName,
		CookieSecure:       cfg.CookieSecure,
		SessionTTL:         cfg.SessionTTL,
		ExtendedSessionTTL: cfg.ExtendedSessionTTL,
		Logger:             logger,
	})

	app := fiber.New(fiber.Config{
		AppName:      "picloud-auth",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})
	controller.RegisterRoutes(app)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.HTTPAddr)
	}()

	logger.Info("picloud auth listening on %s", cfg.HTTPAddr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}
