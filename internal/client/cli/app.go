package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/otpkeeper/internal/client/client"
	"github.com/dmitrijs2005/otpkeeper/internal/client/config"
	"github.com/dmitrijs2005/otpkeeper/internal/client/models"
	"github.com/dmitrijs2005/otpkeeper/internal/client/services"
	"github.com/dmitrijs2005/otpkeeper/internal/logging"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeAgent Mode = "agent"
)

// Vault is the local vault surface the REPL drives. *services.VaultService
// implements it.
type Vault interface {
	HasPassphrase(ctx context.Context) (bool, error)
	IsLocked() bool
	Unlock(ctx context.Context, pass []byte) error
	Lock()
	SetupPassphrase(ctx context.Context, pass []byte) error
	ChangePassphrase(ctx context.Context, old, next []byte) error
	RemovePassphrase(ctx context.Context, pass []byte) error

	Add(ctx context.Context, p models.Params) (services.Summary, error)
	AddURI(ctx context.Context, uri string) (services.Summary, error)
	List(ctx context.Context) ([]services.Summary, error)
	Codes(ctx context.Context, now time.Time) ([]services.Code, error)
	Next(ctx context.Context, hash string) (string, error)
	TogglePin(ctx context.Context, hash string) (bool, error)
	Update(ctx context.Context, hash string, u models.EntryUpdate) error
	Delete(ctx context.Context, hash string) error
	QRCode(ctx context.Context, hash string, size int) ([]byte, error)

	Export(ctx context.Context, w io.Writer) error
	Import(ctx context.Context, r io.Reader, pass []byte) (int, error)
}

type App struct {
	config *config.Config
	log    logging.Logger
	Mode   Mode

	vault Vault
	agent client.Client
	// agentUnlocked tracks whether this client holds an agent session.
	agentUnlocked bool
	closeFn       func() error

	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time
}

// NewApp opens the vault named by c, or connects to the agent when
// c.AgentAddr is set.
func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (*App, error) {
	if l == nil {
		l = logging.Discard()
	}
	a := &App{
		config: c,
		log:    l,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		now:    time.Now,
	}

	if c.AgentAddr != "" {
		ac, err := client.NewAgentClient(c.AgentAddr)
		if err != nil {
			return nil, err
		}
		a.Mode = ModeAgent
		a.agent = ac
		a.closeFn = ac.Close
		return a, nil
	}

	storage, db, err := services.OpenSQLStorage(ctx, c.DatabaseDriver, c.DatabaseDSN, c.DataDir)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	vault := services.NewVaultService(storage, c.KDF, l)
	if err := vault.Load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	a.Mode = ModeLocal
	a.vault = vault
	a.closeFn = db.Close
	return a, nil
}

// Run asks for the passphrase of a protected vault, then serves the REPL
// until the user exits. The vault is locked and closed on return.
func (a *App) Run(ctx context.Context) {
	defer a.close()

	log.Println("Welcome to otpkeeper (type 'help' for commands)")

	if a.Mode == ModeLocal {
		if has, err := a.vault.HasPassphrase(ctx); err == nil && has && a.vault.IsLocked() {
			if err := a.Unlock(ctx); err != nil {
				printlnFn("error:", describe(err))
			}
		}
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) close() {
	if a.vault != nil {
		a.vault.Lock()
	}
	if a.closeFn != nil {
		if err := a.closeFn(); err != nil {
			a.log.Warn(context.Background(), "close failed", "error", err)
		}
	}
}

func (a *App) isAgent() bool {
	return a.Mode == ModeAgent
}

func (a *App) isLocked() bool {
	if a.isAgent() {
		return !a.agentUnlocked
	}
	return a.vault.IsLocked()
}

func (a *App) getStatus() string {
	state := "unlocked"
	if a.isLocked() {
		state = "locked"
	}
	return fmt.Sprintf("(%s %s)", a.Mode, state)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
