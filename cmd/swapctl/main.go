// Command swapctl is the operator CLI for the swap cache: it triggers
// fetch runs, inspects the cached data, seeds USD prices, and clears a
// provider's cache.
//
// Usage:
//
//	swapctl fetch-routes   --provider via [--config swapsight.toml]
//	swapctl fetch-slippage --provider via [--config swapsight.toml]
//	swapctl show           [--provider via] [--kind routes|slippage|tokens]
//	swapctl set-price      --symbol WETH --usd 2000
//	swapctl clean          --provider via
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/swapsight/swapsight/config"
	"github.com/swapsight/swapsight/models"
	"github.com/swapsight/swapsight/pipeline"
	"github.com/swapsight/swapsight/store"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	pipeline.SetLogger(log)
	store.SetLogger(log)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "fetch-routes":
		err = runFetch(args, "routes")
	case "fetch-slippage":
		err = runFetch(args, "slippage")
	case "show":
		err = runShow(args)
	case "set-price":
		err = runSetPrice(args)
	case "clean":
		err = runClean(args)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "swapctl <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "\tfetch-routes    run a route fetch for a provider")
	fmt.Fprintln(os.Stderr, "\tfetch-slippage  run a slippage fetch for a provider")
	fmt.Fprintln(os.Stderr, "\tshow            print cached tokens, routes or slippage")
	fmt.Fprintln(os.Stderr, "\tset-price       record a USD price for a token")
	fmt.Fprintln(os.Stderr, "\tclean           clear a provider's cached data")
}

// openStore loads the config and connects to the database.
func openStore(ctx context.Context, configPath string) (*config.Config, *store.Store, error) {
	var cfgArg *string
	if configPath != "" {
		cfgArg = &configPath
	}
	cfg, err := config.Load(cfgArg)
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Bootstrap(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return cfg, db, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runFetch(args []string, kind string) error {
	fs := flag.NewFlagSet("fetch-"+kind, flag.ExitOnError)
	configPath := fs.String("config", "", "config file (toml)")
	providerName := fs.String("provider", "", "provider to fetch (openocean, via)")
	_ = fs.Parse(args)

	provider, err := models.ParseProvider(*providerName)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	cfg, db, err := openStore(ctx, *configPath)
	if err != nil {
		return err
	}
	defer db.Close()

	clients := cfg.BuildClients()
	runner := pipeline.NewRunner(
		pipeline.NewRouteFetch(db, db, clients),
		pipeline.NewSlippageFetch(db, db, db, db, clients),
	)

	var stats models.FetchStats
	if kind == "routes" {
		stats, err = runner.RunRouteFetch(ctx, provider)
	} else {
		stats, err = runner.RunSlippageFetch(ctx, provider)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Provider: %s\n", stats.Provider)
	fmt.Printf("Success:  %d\n", stats.SuccessCount)
	fmt.Printf("Errors:   %d\n", stats.ErrorCount)
	fmt.Printf("Written:  %d\n", stats.RecordsWritten)
	if stats.BudgetExceeded {
		fmt.Println("Run stopped early: request budget exhausted")
	}
	return nil
}

func runShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", "", "config file (toml)")
	providerName := fs.String("provider", "", "filter by provider (optional)")
	kind := fs.String("kind", "slippage", "what to show: tokens, routes, slippage")
	_ = fs.Parse(args)

	var provider *models.Provider
	if *providerName != "" {
		p, err := models.ParseProvider(*providerName)
		if err != nil {
			return err
		}
		provider = &p
	}

	ctx, cancel := signalContext()
	defer cancel()

	_, db, err := openStore(ctx, *configPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch *kind {
	case "tokens":
		tokens, err := db.ListTokens(ctx)
		if err != nil {
			return err
		}
		for _, t := range tokens {
			fmt.Printf("%-8s %s decimals=%d\n", t.Symbol, t.Address, t.Decimals)
		}
	case "routes":
		routes, fetchedAt, err := db.ReadRoutes(ctx, provider)
		if err != nil {
			return err
		}
		for _, r := range routes {
			fmt.Printf("%-10s %-16s venues=%d\n", r.Provider, r.Pair, len(r.Venues))
		}
		if !fetchedAt.IsZero() {
			fmt.Printf("Fetched at: %s\n", fetchedAt.Format(time.RFC3339))
		}
	case "slippage":
		records, err := db.ReadLatestSlippage(ctx, provider)
		if err != nil {
			return err
		}
		for _, rec := range records {
			fmt.Printf("%-10s %-16s", rec.Provider, rec.Pair)
			for _, amount := range models.SlippageAmounts {
				if v := rec.Amounts[amount]; v != nil {
					fmt.Printf(" $%d=%s%%", amount, v.String())
				} else {
					fmt.Printf(" $%d=-", amount)
				}
			}
			fmt.Println()
		}
		if len(records) > 0 {
			fmt.Printf("Calculated at: %s\n", records[0].CalculationTimestamp.Format(time.RFC3339))
		}
	default:
		return fmt.Errorf("kind must be tokens, routes or slippage")
	}
	return nil
}

func runSetPrice(args []string) error {
	fs := flag.NewFlagSet("set-price", flag.ExitOnError)
	configPath := fs.String("config", "", "config file (toml)")
	symbol := fs.String("symbol", "", "token symbol")
	usd := fs.String("usd", "", "USD price")
	_ = fs.Parse(args)

	if *symbol == "" || *usd == "" {
		return fmt.Errorf("both --symbol and --usd are required")
	}
	price, err := decimal.NewFromString(*usd)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", *usd, err)
	}
	if price.Sign() <= 0 {
		return fmt.Errorf("price must be positive")
	}

	ctx, cancel := signalContext()
	defer cancel()

	_, db, err := openStore(ctx, *configPath)
	if err != nil {
		return err
	}
	defer db.Close()

	err = db.UpsertPrice(ctx, models.TokenPrice{
		Symbol:    *symbol,
		PriceUSD:  price,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Recorded %s = $%s\n", *symbol, price)
	return nil
}

func runClean(args []string) error {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	configPath := fs.String("config", "", "config file (toml)")
	providerName := fs.String("provider", "", "provider to clean")
	_ = fs.Parse(args)

	provider, err := models.ParseProvider(*providerName)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	_, db, err := openStore(ctx, *configPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.ClearRoutes(ctx, provider); err != nil {
		return err
	}
	if err := db.ClearSlippage(ctx, provider); err != nil {
		return err
	}
	fmt.Printf("Cleared cached routes and slippage for %s\n", provider)
	return nil
}
