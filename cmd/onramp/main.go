// Command onramp runs one fiat on-ramp supply attempt against a wallet bridge.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	_ "github.com/lib/pq"
	"github.com/pkg/browser"
	"github.com/shopspring/decimal"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Proton-105/onramp/internal/amount"
	"github.com/Proton-105/onramp/internal/capability"
	"github.com/Proton-105/onramp/internal/capability/wsprovider"
	"github.com/Proton-105/onramp/internal/caps"
	"github.com/Proton-105/onramp/internal/database"
	apperrors "github.com/Proton-105/onramp/internal/errors"
	"github.com/Proton-105/onramp/internal/flow"
	"github.com/Proton-105/onramp/internal/health"
	"github.com/Proton-105/onramp/internal/lifecycle"
	"github.com/Proton-105/onramp/internal/poller"
	"github.com/Proton-105/onramp/internal/session"
	"github.com/Proton-105/onramp/internal/sessionstore"
	"github.com/Proton-105/onramp/pkg/config"
	"github.com/Proton-105/onramp/pkg/graceful"
	"github.com/Proton-105/onramp/pkg/logger"
	_ "github.com/Proton-105/onramp/pkg/metrics"
	appredis "github.com/Proton-105/onramp/pkg/redis"
)

type options struct {
	configPath  string
	reservePath string
	amount      string
	account     string
	noBrowser   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "config file (default ./configs/$APP_ENV.yaml)")
	flag.StringVar(&opts.reservePath, "reserve", "configs/reserve.example.yaml", "reserve, market and wallet fixture")
	flag.StringVar(&opts.amount, "amount", "", "amount to supply, or -1 for the maximum available")
	flag.StringVar(&opts.account, "account", "", "destination account, overrides the fixture")
	flag.BoolVar(&opts.noBrowser, "no-browser", false, "print the payment page instead of opening it")
	flag.Parse()

	if opts.amount == "" {
		fmt.Fprintln(os.Stderr, "--amount is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)
	out := &syncWriter{w: os.Stdout}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			log.Warn("sentry init failed", slog.Any("error", err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	config.Watch(v, log, func(updated *config.Config) {
		logger.SetLevel(updated.Logger.Level)
	})

	shutdown := lifecycle.NewShutdown(log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdown.Execute(shutdownCtx); err != nil {
			log.Error("shutdown finished with errors", slog.Any("error", err))
		}
	}()

	checker := health.NewChecker(log)

	store, err := openStore(ctx, cfg, log, shutdown, checker)
	if err != nil {
		return err
	}

	bridge, err := wsprovider.Dial(ctx, cfg.Capability.BridgeURL, nil, log)
	if err != nil {
		return fmt.Errorf("connect wallet bridge: %w", err)
	}
	shutdown.Register("wallet bridge", func(context.Context) error { return bridge.Close() })

	var provider capability.Provider = bridge
	if cfg.Capability.Breaker.Enabled {
		provider = capability.WithBreaker(bridge, apperrors.NewCircuitBreakerWithConfig(apperrors.BreakerConfig{
			ErrorThreshold: cfg.Capability.Breaker.ErrorThreshold,
			MinRequests:    cfg.Capability.Breaker.MinRequests,
			OpenTimeout:    cfg.Capability.Breaker.OpenTimeout,
		}))
	}
	checker.AddCheck("capability", health.NewCapabilityChecker(provider))

	if cfg.Metrics.Enabled {
		ops := graceful.NewOpsServer(log, cfg.Metrics.Addr, checker.Handler(), cfg.Metrics.ShutdownTimeout)
		opsCtx, cancelOps := context.WithCancel(context.Background())
		opsDone := make(chan struct{})
		go func() {
			defer close(opsDone)
			if err := ops.ListenAndServe(opsCtx); err != nil {
				log.Error("ops server stopped", slog.Any("error", err))
			}
		}()
		shutdown.Register("ops server", func(ctx context.Context) error {
			cancelOps()
			select {
			case <-opsDone:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	f, err := loadFixture(opts.reservePath)
	if err != nil {
		return err
	}
	params, err := f.params(cfg.Network.NativeSymbol)
	if err != nil {
		return err
	}
	if opts.account != "" {
		params.Account = opts.account
	}

	gasReserve := amount.DefaultGasReserve
	if cfg.Network.GasReserve != "" {
		if gasReserve, err = decimal.NewFromString(cfg.Network.GasReserve); err != nil {
			return fmt.Errorf("network.gas_reserve: %w", err)
		}
	}

	ctrl := flow.New(params, flow.Dependencies{
		Resolver: amount.NewResolver(gasReserve),
		Caps:     caps.NewValidator(),
		Initiator: session.NewInitiator(provider, session.NewSymbolMap(cfg.Network.NativeSymbol, cfg.Network.SymbolAliases), session.Config{
			CapabilityID: cfg.Capability.ID,
			Timeout:      cfg.Capability.InitiateTimeout,
		}, log),
		Poller: poller.New(provider, poller.Config{
			CapabilityID: cfg.Capability.ID,
			Interval:     cfg.Poller.Interval,
			MaxFailures:  cfg.Poller.MaxFailures,
			MaxPolls:     cfg.Poller.MaxPolls,
		}, log),
		Opener: redirectOpener(out, opts.noBrowser),
		Store:  store,
		Errors: apperrors.NewHandler(log, cfg.Sentry.Enabled),
		Log:    log,
	})
	shutdown.Register("flow", func(context.Context) error {
		ctrl.Close()
		return nil
	})

	return attempt(ctx, ctrl, opts.amount, out)
}

// syncWriter serialises writes from the flow's notification goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(p)
}

func loadConfig(path string) (*config.Config, *viper.Viper, error) {
	if path == "" {
		return config.Load()
	}

	return config.LoadFile(path, os.Getenv("APP_ENV"))
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger, shutdown *lifecycle.Shutdown, checker *health.Checker) (sessionstore.Store, error) {
	switch cfg.Store.Driver {
	case "redis":
		client, err := appredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		shutdown.Register("redis", func(context.Context) error { return client.Close() })
		checker.AddCheck("redis", health.NewRedisChecker(client))

		return sessionstore.NewRedisStore(appredis.NewMetricsClient(client), cfg.Store.TTL, log), nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		shutdown.Register("postgres", func(context.Context) error { return db.Close() })

		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		if cfg.Postgres.Migrate {
			if err := database.NewMigrator(db, log).Apply(ctx); err != nil {
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		checker.AddCheck("postgres", health.NewDBChecker(db))

		return sessionstore.NewPostgresStore(db, log), nil
	default:
		return sessionstore.NewMemoryStore(), nil
	}
}

func redirectOpener(out io.Writer, noBrowser bool) flow.Opener {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard

	return flow.OpenerFunc(func(url string) error {
		fmt.Fprintf(out, "Complete the payment at %s\n", url)
		if noBrowser {
			return nil
		}
		return browser.OpenURL(url)
	})
}

// attempt sets the amount, submits and waits for the attempt to end.
func attempt(ctx context.Context, ctrl *flow.Controller, raw string, out io.Writer) error {
	finished := make(chan flow.View, 1)

	var (
		mu         sync.Mutex
		lastState  flow.State
		lastStatus string
	)
	unsubscribe := ctrl.Subscribe(func(view flow.View) {
		mu.Lock()
		defer mu.Unlock()

		if view.State != lastState || string(view.LastStatus) != lastStatus {
			lastState, lastStatus = view.State, string(view.LastStatus)
			fmt.Fprintf(out, "%-16s %s\n", view.State, view.LastStatus)
		}
		if view.Warning != "" {
			fmt.Fprintln(out, view.Warning)
		}
		if view.State.Terminal() && view.Session != nil {
			select {
			case finished <- view:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := ctrl.SetAmount(ctx, raw); err != nil {
		return blockingError(ctrl.Snapshot(), err)
	}

	view := ctrl.Snapshot()
	if !view.SubmitEnabled {
		return fmt.Errorf("amount %q cannot be supplied (max %s %s)", raw, view.Max, view.Symbol)
	}
	fmt.Fprintf(out, "Supplying %s %s (~$%s)\n", view.Amount.Raw, view.Symbol, view.FiatValue.StringFixed(2))

	if err := ctrl.Submit(ctx); err != nil {
		return blockingError(ctrl.Snapshot(), err)
	}

	select {
	case view = <-finished:
	case <-ctx.Done():
		return ctx.Err()
	}

	if view.State == flow.StateReleased {
		fmt.Fprintf(out, "Supplied %s %s. Add %s (%s) to your wallet to track it.\n",
			view.Amount.Raw, view.Symbol, view.Token.Symbol, view.Token.Address)
		return nil
	}

	return blockingError(view, errors.New("payment did not complete"))
}

func blockingError(view flow.View, err error) error {
	if view.Blocking != nil {
		return fmt.Errorf("%s: %w", view.Blocking.Message, err)
	}

	return err
}
