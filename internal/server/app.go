// Package server runs otpagent: it opens the vault database, serves the
// agent gRPC endpoint and shuts down cleanly on SIGINT, SIGTERM or SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/otpkeeper/internal/client/services"
	"github.com/dmitrijs2005/otpkeeper/internal/common"
	"github.com/dmitrijs2005/otpkeeper/internal/cryptox"
	"github.com/dmitrijs2005/otpkeeper/internal/logging"
	"github.com/dmitrijs2005/otpkeeper/internal/server/config"

	gs "github.com/dmitrijs2005/otpkeeper/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	vault  *services.VaultService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	storage, db, err := services.OpenSQLStorage(ctx, c.DatabaseDriver, c.DatabaseDSN, c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	vault := services.NewVaultService(storage, cryptox.DefaultKDFParams, logger.With("module", "vault"))
	if err := vault.Load(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("vault load error: %w", err)
	}
	// sessions are issued against the passphrase, so an open vault can't be served
	protected, err := vault.HasPassphrase(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("vault load error: %w", err)
	}
	if !protected {
		_ = db.Close()
		return nil, fmt.Errorf("%w: set one with otpkeeper passwd before starting the agent", common.ErrNoPassphrase)
	}

	return &App{config: c, logger: logger, db: db, vault: vault}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.vault, app.config.SecretKey, app.config.SessionTTL)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until the agent stops.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting agent...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.vault.Lock()
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "Agent stopped")
}
