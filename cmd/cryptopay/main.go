package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ghostliai/cryptopay/internal/blockchain"
	"github.com/ghostliai/cryptopay/internal/config"
	"github.com/ghostliai/cryptopay/internal/hdwallet"
	"github.com/ghostliai/cryptopay/internal/http_api"
	"github.com/ghostliai/cryptopay/internal/notificator"
	"github.com/ghostliai/cryptopay/internal/payments"
	"github.com/ghostliai/cryptopay/internal/rates"
	"github.com/ghostliai/cryptopay/internal/repository"
	"github.com/ghostliai/cryptopay/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "cryptopay",
		Usage: "Cryptopay is a crypto payment and subscription service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.IntFlag{Name: "api-port", Aliases: []string{"a"}, Usage: "API listen port"},
			&cli.StringFlag{Name: "bitcoin-api-url", Usage: "Bitcoin explorer API URL"},
			&cli.StringFlag{Name: "ethereum-rpc-url", Usage: "Ethereum JSON-RPC URL"},
			&cli.StringFlag{Name: "solana-rpc-url", Usage: "Solana JSON-RPC URL"},
			&cli.StringFlag{Name: "tron-api-url", Usage: "Tron API URL"},
			&cli.StringFlag{Name: "rates-api-url", Usage: "Exchange rate API URL"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("bitcoin-api-url") {
		cfg.BitcoinAPIURL = c.String("bitcoin-api-url")
	}
	if c.IsSet("ethereum-rpc-url") {
		cfg.EthereumRPCURL = c.String("ethereum-rpc-url")
	}
	if c.IsSet("solana-rpc-url") {
		cfg.SolanaRPCURL = c.String("solana-rpc-url")
	}
	if c.IsSet("tron-api-url") {
		cfg.TronAPIURL = c.String("tron-api-url")
	}
	if c.IsSet("rates-api-url") {
		cfg.RatesAPIURL = c.String("rates-api-url")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}

	// Initialize logger
	logg, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}

	// Initialize database
	db, err := repository.NewPostgresDB(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, logg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	// Initialize blockchain service
	blockchainService := blockchain.NewService(blockchain.Endpoints{
		BitcoinAPIURL:  cfg.BitcoinAPIURL,
		EthereumRPCURL: cfg.EthereumRPCURL,
		SolanaRPCURL:   cfg.SolanaRPCURL,
		TronAPIURL:     cfg.TronAPIURL,
	}, logg)

	// Initialize wallet generator
	generator, err := hdwallet.NewGenerator(cfg.EncryptionKey, cfg.MasterSeedPhrase)
	if err != nil {
		return fmt.Errorf("failed to initialize wallet generator: %v", err)
	}

	// Initialize rate source
	rateSource := rates.NewCoinGeckoSource(cfg.RatesAPIURL, logg)

	// Initialize notificator
	var telegramNotif *notificator.TelegramNotificator
	if cfg.TelegramBotToken != "" {
		telegramNotif, err = notificator.NewTelegramNotificator(logg, cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram notificator: %v", err)
		}
	}
	notif := notificator.NewNotificator(logg, telegramNotif)

	// Create application core
	gateway := payments.NewService(db, blockchainService, generator, rateSource, notif, logg)

	apiServer := http_api.NewHTTPServer(gateway, cfg.APIPort, cfg.WebhookSecret, logg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logg.Info("Shutting down...")
		if err := apiServer.Shutdown(); err != nil {
			logg.Error("Failed to shut down API server: ", err)
		}
		cancel()
	}()

	go apiServer.Start()
	// Start the application
	gateway.Start(ctx)

	return nil
}
