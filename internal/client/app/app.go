// Package app wires the finsync client: local database, application state,
// sync engine, remote connection, backups and the user-facing surfaces.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/finsync/internal/client/account"
	"github.com/dmitrijs2005/finsync/internal/client/api"
	"github.com/dmitrijs2005/finsync/internal/client/backup"
	"github.com/dmitrijs2005/finsync/internal/client/cli"
	"github.com/dmitrijs2005/finsync/internal/client/config"
	"github.com/dmitrijs2005/finsync/internal/client/engine"
	"github.com/dmitrijs2005/finsync/internal/client/grpcclient"
	"github.com/dmitrijs2005/finsync/internal/client/managers"
	"github.com/dmitrijs2005/finsync/internal/client/repositories"
	"github.com/dmitrijs2005/finsync/internal/client/state"
	"github.com/dmitrijs2005/finsync/internal/client/syncstate"
	"github.com/dmitrijs2005/finsync/internal/logging"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   *repositories.Repositories
	state   *state.Container
	engine  *engine.Engine
	remote  *grpcclient.Client
	account *account.Service
	backups cli.Backups
	repl    *cli.App
}

// Option adjusts how NewApp builds the client.
type Option func(*options)

type options struct {
	in       io.Reader
	out      io.Writer
	logger   logging.Logger
	dialOpts []grpc.DialOption
}

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(o *options) { o.in, o.out = in, out }
}

func WithLogger(l logging.Logger) Option { return func(o *options) { o.logger = l } }

// WithDialOptions adds gRPC dial options, e.g. a custom dialer.
func WithDialOptions(d ...grpc.DialOption) Option {
	return func(o *options) { o.dialOpts = append(o.dialOpts, d...) }
}

func NewApp(ctx context.Context, c *config.Config, opts ...Option) (*App, error) {
	o := options{in: os.Stdin, out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewText(os.Stderr, slog.LevelWarn)
	}
	logger := o.logger

	repos, err := repositories.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	st := state.New(repos.Records, syncstate.NewPrefs(repos.Metadata), logger)

	ecfg := engine.DefaultConfig()
	ecfg.Interval = c.SyncInterval
	eng := engine.New(repos.Records,
		syncstate.NewLedger(repos.Metadata),
		syncstate.NewCursor(repos.Metadata),
		engine.WithState(st),
		engine.WithConfig(ecfg),
		engine.WithLogger(logger),
		engine.WithNotifier(engine.NotifierFunc(func(level engine.Level, msg string) {
			fmt.Fprintf(o.out, "[%s] %s\n", level, msg)
		})),
	)

	m := managers.New(repos.Records, st, eng, managers.WithLogger(logger))

	if err := st.Refresh(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("state load error: %w", err)
	}
	if _, err := m.Profiles.EnsureDefault(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("default profile: %w", err)
	}

	gc, err := grpcclient.New(c.ServerEndpointAddr, o.dialOpts,
		grpcclient.WithSessionStore(repos.Metadata),
		grpcclient.WithLogger(logger),
	)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	acc := account.New(gc, eng, logger)

	sink, err := newSink(ctx, c)
	if err != nil {
		_ = gc.Close()
		_ = repos.Close()
		return nil, err
	}
	var backups cli.Backups
	if sink != nil {
		backups = backup.NewService(repos.Records, sink, st, eng, logger)
	}

	return &App{
		config:  c,
		logger:  logger,
		repos:   repos,
		state:   st,
		engine:  eng,
		remote:  gc,
		account: acc,
		backups: backups,
		repl:    cli.NewApp(acc, eng, m, st, backups, o.in, o.out),
	}, nil
}

// newSink picks the bucket when one is configured, otherwise the local
// backup directory. It returns nil when both are disabled.
func newSink(ctx context.Context, c *config.Config) (backup.Sink, error) {
	if c.S3.Bucket != "" {
		return backup.NewS3Sink(ctx, backup.S3Config{
			Bucket:    c.S3.Bucket,
			Region:    c.S3.Region,
			Endpoint:  c.S3.Endpoint,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
			Prefix:    c.S3.Prefix,
		})
	}
	if c.BackupDir != "" {
		return backup.NewDirSink(c.BackupDir)
	}
	return nil, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run resumes a saved session, starts the optional control API and blocks
// in the REPL until the user exits or a signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	app.initSignalHandler(cancelFunc)

	defer app.close()

	stop := app.account.Start(ctx)
	defer stop()

	if ok, err := app.remote.Restore(ctx); err != nil {
		app.logger.Warn(ctx, "session restore failed, working offline", "error", err)
	} else if u := app.remote.CurrentUser(); ok && u != nil {
		app.logger.Info(ctx, "session restored", "user", u.Email)
	}

	g, gctx := errgroup.WithContext(ctx)

	if app.config.HTTPAddr != "" {
		lis, err := net.Listen("tcp", app.config.HTTPAddr)
		if err != nil {
			return fmt.Errorf("control api listen: %w", err)
		}
		router := api.NewRouter(api.NewHandler(app.engine, app.repos.Records, app.state, app.logger))
		app.logger.Info(ctx, "control api listening", "addr", lis.Addr().String())
		g.Go(func() error { return api.Serve(gctx, lis, router) })
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		app.repl.Run(gctx)
	}()

	select {
	case <-done:
	case <-gctx.Done():
	}
	cancelFunc()
	return g.Wait()
}

func (app *App) close() {
	app.engine.Close()
	if err := app.remote.Close(); err != nil {
		app.logger.Error(context.Background(), "grpc close", "error", err)
	}
	if err := app.repos.Close(); err != nil {
		app.logger.Error(context.Background(), "db close", "error", err)
	}
}
