package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/finsync/internal/client/engine"
	"github.com/dmitrijs2005/finsync/internal/client/grpcclient"
	"github.com/dmitrijs2005/finsync/internal/client/managers"
	"github.com/dmitrijs2005/finsync/internal/client/state"
)

// Account signs the user in and out.
type Account interface {
	SignUp(ctx context.Context, email string, password []byte) (*grpcclient.User, error)
	SignIn(ctx context.Context, email string, password []byte) (*grpcclient.User, error)
	SignOut(ctx context.Context)
	CurrentUser() *grpcclient.User
}

// Engine is the sync surface the CLI drives.
type Engine interface {
	Info(ctx context.Context) (engine.Info, error)
	SyncNow(ctx context.Context) error
	ForceReplaceFromCloud(ctx context.Context, opts engine.ForceOptions) error
	ForceUploadToCloud(ctx context.Context, opts engine.ForceOptions) error
}

// Backups stores sealed archives remotely.
type Backups interface {
	Upload(ctx context.Context, passphrase []byte) (string, error)
	Download(ctx context.Context, key string, passphrase []byte) (int, error)
}

// StateView exposes the current application state.
type StateView interface {
	Snapshot() state.Snapshot
}

type App struct {
	account  Account
	engine   Engine
	managers *managers.Managers
	state    StateView
	backups  Backups
	reader   *bufio.Reader
	out      io.Writer
}

// NewApp builds the REPL. backups may be nil when no bucket is configured.
func NewApp(acc Account, e Engine, m *managers.Managers, st StateView, b Backups, in io.Reader, out io.Writer) *App {
	return &App{
		account:  acc,
		engine:   e,
		managers: m,
		state:    st,
		backups:  b,
		reader:   bufio.NewReader(in),
		out:      out,
	}
}

func (a *App) isLoggedIn() bool {
	return a.account.CurrentUser() != nil
}

// statusLine is shown in the prompt.
func (a *App) statusLine(ctx context.Context) func() string {
	return func() string {
		profile := "-"
		if p := a.state.Snapshot().ActiveProfile; p != nil {
			profile = p.String("name")
		}
		u := a.account.CurrentUser()
		if u == nil {
			return fmt.Sprintf("%s (offline)", profile)
		}
		info, err := a.engine.Info(ctx)
		if err != nil {
			return fmt.Sprintf("%s %s", profile, u.Email)
		}
		return fmt.Sprintf("%s %s [%s]", profile, u.Email, info.Status)
	}
}

// Run blocks in the REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "finsync: type 'help' for commands")
	runREPL(ctx, a, a.statusLine(ctx), a.reader)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// fail reports err and returns it.
func (a *App) fail(err error) error {
	a.printf("Error: %v\n", err)
	return err
}
