package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"raydium-sniper/internal/config"
	"raydium-sniper/internal/discovery"
	"raydium-sniper/internal/observability"
	"raydium-sniper/internal/pricing"
	"raydium-sniper/internal/session"
	"raydium-sniper/internal/solana"
	"raydium-sniper/internal/store"
	"raydium-sniper/internal/store/clickhouse"
	"raydium-sniper/internal/store/memory"
	pgstore "raydium-sniper/internal/store/postgres"
	"raydium-sniper/internal/subs"
	"raydium-sniper/internal/swap"
)

type options struct {
	envFile       string
	rpcEndpoint   string
	wsEndpoint    string
	swapEndpoint  string
	postgresDSN   string
	clickhouseDSN string
	metricsAddr   string
	maxSessions   int
	useMemory     bool
	blacklistPath string
	summariesPath string
	resultsPath   string
}

func main() {
	var opts options
	flag.StringVar(&opts.envFile, "env", ".env", "Credentials file (WALLET_ADDRESS, PRIVATE_KEY, endpoint URLs)")
	flag.StringVar(&opts.rpcEndpoint, "rpc-endpoint", "", "Solana RPC HTTP endpoint (overrides RPC_URL)")
	flag.StringVar(&opts.wsEndpoint, "ws-endpoint", "", "Solana WebSocket endpoint (overrides WS_URL)")
	flag.StringVar(&opts.swapEndpoint, "swap-endpoint", "", "Swap aggregator WebSocket endpoint (overrides SWAP_WS_URL)")
	flag.StringVar(&opts.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string for summaries and order results")
	flag.StringVar(&opts.clickhouseDSN, "clickhouse-dsn", "", "ClickHouse DSN for the price-sample sink (empty to disable)")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	flag.IntVar(&opts.maxSessions, "max-sessions", 1, "Maximum number of concurrently tracked pools")
	flag.BoolVar(&opts.useMemory, "use-memory", false, "Use in-memory stores instead of files or PostgreSQL")
	flag.StringVar(&opts.blacklistPath, "blacklist", "blacklist.txt", "Banned creator list, one address per line")
	flag.StringVar(&opts.summariesPath, "summaries", "raydium_market.txt", "Session summary JSON file")
	flag.StringVar(&opts.resultsPath, "results", "dev/results.txt", "Order result JSONL file")
	flag.Parse()

	logger := log.New(os.Stdout, "[sniper] ", log.LstdFlags)

	if opts.metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", opts.metricsAddr)
			if err := http.ListenAndServe(opts.metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err := run(ctx, logger, opts)

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// accountHandlerProxy breaks the construction cycle between the
// subscription manager (which needs the update handler) and the
// session registry (which needs the manager's pool table).
type accountHandlerProxy struct {
	registry *session.Registry
}

func (p *accountHandlerProxy) HandleAccountUpdate(ctx context.Context, update subs.AccountUpdate) {
	p.registry.HandleAccountUpdate(ctx, update)
}

func run(ctx context.Context, logger *log.Logger, opts options) error {
	envFile := opts.envFile
	if envFile != "" {
		if _, err := os.Stat(envFile); err != nil {
			logger.Printf("Credentials file %s not found, using process environment", envFile)
			envFile = ""
		}
	}
	creds, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	rpcEndpoint := firstNonEmpty(opts.rpcEndpoint, creds.RPCURL)
	wsEndpoint := firstNonEmpty(opts.wsEndpoint, creds.WSURL)
	swapEndpoint := firstNonEmpty(opts.swapEndpoint, creds.SwapWSURL)
	if rpcEndpoint == "" {
		return fmt.Errorf("an RPC endpoint is required (--rpc-endpoint or RPC_URL)")
	}
	if wsEndpoint == "" {
		return fmt.Errorf("a WebSocket endpoint is required (--ws-endpoint or WS_URL)")
	}
	if swapEndpoint == "" {
		return fmt.Errorf("a swap endpoint is required (--swap-endpoint or SWAP_WS_URL)")
	}

	keypair, err := solana.KeypairFromBase58(creds.PrivateKey)
	if err != nil {
		return fmt.Errorf("parse private key: %w", err)
	}
	if creds.WalletAddress != keypair.PublicKey() {
		return fmt.Errorf("WALLET_ADDRESS does not match the PRIVATE_KEY public key")
	}
	logger.Printf("Wallet: %s", keypair.PublicKey())

	metrics := observability.NewMetrics("")

	prices := pricing.NewSolPrice(logger)
	prices.Fetch(ctx)
	logger.Printf("SOL price: %.2f USD", prices.Price())

	// Stores: memory, files, or PostgreSQL for the record stores; the
	// ClickHouse sample sink is independent of that choice.
	var (
		blacklist store.Blacklist
		summaries store.SummaryStore
		orders    store.OrderStore
	)
	switch {
	case opts.useMemory:
		blacklist = memory.NewBlacklist()
		summaries = memory.NewSummaryStore()
		orders = memory.NewOrderStore()
	case opts.postgresDSN != "":
		pool, err := pgstore.NewPool(ctx, opts.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if err := pgstore.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		fileBlacklist, err := store.NewFileBlacklist(opts.blacklistPath)
		if err != nil {
			return fmt.Errorf("load blacklist: %w", err)
		}
		blacklist = fileBlacklist
		summaries = pgstore.NewSummaryStore(pool)
		orders = pgstore.NewOrderStore(pool)
	default:
		fileBlacklist, err := store.NewFileBlacklist(opts.blacklistPath)
		if err != nil {
			return fmt.Errorf("load blacklist: %w", err)
		}
		blacklist = fileBlacklist
		summaries = store.NewFileSummaryStore(opts.summariesPath)
		orders = store.NewFileOrderStore(opts.resultsPath)
	}
	defer orders.Close()

	var samples store.SampleSink
	if opts.clickhouseDSN != "" {
		conn, err := clickhouse.NewConn(ctx, opts.clickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()
		if err := clickhouse.Migrate(ctx, conn); err != nil {
			return fmt.Errorf("migrate clickhouse: %w", err)
		}
		sink := clickhouse.NewSampleSink(conn, 0)
		defer sink.Close()
		samples = sink
	}

	rpc := solana.NewHTTPClient(rpcEndpoint)

	proxy := &accountHandlerProxy{}
	manager := subs.NewManager(subs.DefaultConfig(wsEndpoint), proxy, logger, metrics)

	swapClient := swap.NewClient(swap.DefaultConfig(swapEndpoint), rpc, keypair, prices, orders, logger, metrics)
	defer swapClient.Close()

	registry := session.NewRegistry(session.DefaultConfig(), session.Deps{
		Trader:    swapClient,
		Pools:     manager,
		Supply:    rpc,
		SolPrice:  prices,
		Boosts:    pricing.NewDexScreener(),
		Summaries: summaries,
		Blacklist: blacklist,
		Samples:   samples,
	}, logger, metrics)
	proxy.registry = registry

	manager.SubscribeLogs(ctx, discovery.RaydiumProgram)

	watcherConfig := discovery.DefaultConfig()
	watcherConfig.MaxSessions = opts.maxSessions
	watcher := discovery.NewWatcher(watcherConfig, rpc, manager, registry, blacklist, logger, metrics)

	logger.Println("Watching for new pools...")
	watcher.Run(ctx)

	manager.Wait()
	registry.Wait()
	return ctx.Err()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
