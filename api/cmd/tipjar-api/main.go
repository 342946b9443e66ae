package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/solstream/tipjar/api/handlers"
	"github.com/solstream/tipjar/api/server"
	"github.com/solstream/tipjar/indexer/pkg/sink"
	"github.com/solstream/tipjar/indexer/pkg/store"
	"github.com/solstream/tipjar/program/pkg/prog"
	"github.com/solstream/tipjar/program/pkg/runtime"
	"github.com/solstream/tipjar/utils/pkg/logger"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const defaultListenAddr = "0.0.0.0:8080"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	listenAddrFlag := flag.String("listen-addr", defaultListenAddr, "Address to listen on (or set TIPJAR_LISTEN_ADDR env var)")
	databaseURLFlag := flag.String("database-url", "", "Postgres connection string for donation history (or set TIPJAR_DATABASE_URL env var); empty disables history")
	migrateFlag := flag.Bool("migrate", false, "Run history database migrations and exit")
	devFlag := flag.Bool("dev", false, "Enable the dev faucet endpoints")
	opRateFlag := flag.Float64("operation-rate", 10, "Per-IP operation requests per second (0 disables rate limiting)")
	opBurstFlag := flag.Int("operation-burst", 20, "Per-IP operation burst size")
	shutdownTimeoutFlag := flag.Duration("shutdown-timeout", 30*time.Second, "Maximum time to wait for in-flight requests during graceful shutdown")

	flag.Parse()

	// Load .env if present; flags and real env still win.
	_ = godotenv.Load()

	log := logger.New(*verboseFlag)

	if envListenAddr := os.Getenv("TIPJAR_LISTEN_ADDR"); envListenAddr != "" {
		*listenAddrFlag = envListenAddr
	}
	if envDatabaseURL := os.Getenv("TIPJAR_DATABASE_URL"); envDatabaseURL != "" {
		*databaseURLFlag = envDatabaseURL
	}
	if os.Getenv("TIPJAR_DEV") == "true" {
		*devFlag = true
	}

	if *migrateFlag {
		if *databaseURLFlag == "" {
			return fmt.Errorf("database-url is required for migrations")
		}
		return store.RunMigrations(log, *databaseURLFlag)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ledger, err := runtime.NewLedger(runtime.Config{
		Logger: log,
		Clock:  clockwork.NewRealClock(),
	})
	if err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}

	// The history store and event sink are optional: without a database the
	// API still serves operations and ledger queries.
	var (
		history   *store.Store
		eventSink prog.Sink = prog.NopSink{}
		histSink  *sink.Sink
	)
	if *databaseURLFlag != "" {
		pool, err := store.Connect(ctx, log, *databaseURLFlag)
		if err != nil {
			return fmt.Errorf("failed to connect to history database: %w", err)
		}
		defer pool.Close()

		history, err = store.New(store.Config{Logger: log, Pool: pool})
		if err != nil {
			return fmt.Errorf("failed to create history store: %w", err)
		}

		histSink, err = sink.New(sink.Config{Logger: log, Store: history})
		if err != nil {
			return fmt.Errorf("failed to create event sink: %w", err)
		}
		eventSink = histSink
	} else {
		log.Warn("main: no database configured, donation history disabled")
	}

	program, err := prog.New(prog.Config{
		Logger: log,
		Ledger: ledger,
		Events: eventSink,
	})
	if err != nil {
		return fmt.Errorf("failed to create program: %w", err)
	}

	srv, err := server.New(server.Config{
		ListenAddr:      *listenAddrFlag,
		ShutdownTimeout: *shutdownTimeoutFlag,
		VersionInfo: server.VersionInfo{
			Version: version,
			Commit:  commit,
			Date:    date,
		},
		OperationRate:  rate.Limit(*opRateFlag),
		OperationBurst: *opBurstFlag,
		HandlersConfig: handlers.Config{
			Logger:  log,
			Program: program,
			Ledger:  ledger,
			History: history,
			Dev:     *devFlag,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Info("main: starting tipjar API",
		"version", version, "listen_addr", *listenAddrFlag,
		"history", history != nil, "dev", *devFlag)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	if histSink != nil {
		g.Go(func() error { return histSink.Run(ctx) })
	}
	return g.Wait()
}
