// @title           Medibill API
// @version         1.0
// @description     Hospital billing ledger: bills, payments, receipts and reports.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	_ "medibill/docs"
	"medibill/internal/config"
	"medibill/internal/email/noop"
	"medibill/internal/email/ses"
	"medibill/internal/handler"
	"medibill/internal/logging"
	"medibill/internal/port"
	"medibill/internal/repository/memory"
	"medibill/internal/repository/postgres"
	"medibill/internal/router"
	"medibill/internal/service"
	s3storage "medibill/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	// Money goes over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize repositories
	var (
		userRepo port.UserRepository
		billRepo port.BillRepository
	)
	switch cfg.Billing.Store {
	case config.StoreMemory:
		log.Warn("using in-memory bill store; data is lost on restart")
		userRepo = memory.NewUserRepo()
		billRepo = memory.NewBillRepo()
	default:
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		userRepo = postgres.NewUserRepo(db)
		billRepo = postgres.NewBillRepo(db)
	}

	// Initialize storage
	var archive port.ObjectStorage
	if cfg.S3.Enabled() {
		archive, err = s3storage.NewS3Client(&cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	} else {
		log.Info("report archive disabled: no S3 bucket configured")
	}

	// Initialize receipt mail
	var mailer port.ReceiptMailer
	switch cfg.Email.Provider {
	case "ses":
		mailer, err = ses.NewSESMailer(cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.FromName)
		if err != nil {
			return fmt.Errorf("failed to initialize SES mailer: %w", err)
		}
	default:
		mailer = noop.NewNoopMailer(log)
	}

	// Initialize services
	authSvc := service.NewAuthService(userRepo, cfg.JWT)
	billSvc := service.NewBillService(billRepo, mailer, log, cfg.Billing)
	reportSvc := service.NewReportService(billRepo, archive, cfg.S3, cfg.Report, log)

	ctx := context.Background()
	created, err := authSvc.EnsureAdmin(ctx, service.BootstrapAdminInput{
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
		FullName: cfg.Admin.FullName,
	})
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if created {
		log.Info("created bootstrap admin", zap.String("email", cfg.Admin.Email))
	}

	// Setup router
	if err := handler.RegisterValidators(); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}
	r := router.Setup(cfg, log, authSvc, router.Handlers{
		Auth:   handler.NewAuthHandler(authSvc),
		Bill:   handler.NewBillHandler(billSvc),
		Report: handler.NewReportHandler(reportSvc),
		Health: handler.NewHealthHandler(billRepo),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", cfg.Server.Port), zap.String("store", cfg.Billing.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
