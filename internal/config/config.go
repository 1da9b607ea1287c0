package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Development bool
	// API configuration
	APIPort       int
	WebhookSecret string
	// Postgres configuration
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	// Wallet configuration
	EncryptionKey    string
	MasterSeedPhrase string
	// Blockchain endpoints
	BitcoinAPIURL  string
	EthereumRPCURL string
	SolanaRPCURL   string
	TronAPIURL     string
	// Exchange rate source
	RatesAPIURL string

	// Notification configuration
	TelegramBotToken string
	TelegramChatID   string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:      getEnvAsBool("DEVELOPMENT", false),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:       getEnv("POSTGRES_DB", "cryptopay"),

		EncryptionKey:    getEnv("ENCRYPTION_KEY", ""),
		MasterSeedPhrase: getEnv("MASTER_SEED_PHRASE", ""),

		BitcoinAPIURL:  getEnv("BITCOIN_API_URL", "https://blockstream.info/api"),
		EthereumRPCURL: getEnv("ETHEREUM_RPC_URL", "https://eth.llamarpc.com"),
		SolanaRPCURL:   getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		TronAPIURL:     getEnv("TRON_API_URL", "https://api.trongrid.io"),

		RatesAPIURL: getEnv("RATES_API_URL", "https://api.coingecko.com/api/v3"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		APIPort:       getEnvAsInt("API_PORT", 8080),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}

	if c.PostgresDB == "" {
		return fmt.Errorf("POSTGRES_DB is required")
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}

	if c.BitcoinAPIURL == "" || c.EthereumRPCURL == "" || c.SolanaRPCURL == "" || c.TronAPIURL == "" {
		return fmt.Errorf("all blockchain endpoint URLs are required")
	}

	if c.RatesAPIURL == "" {
		return fmt.Errorf("RATES_API_URL is required")
	}

	if c.TelegramBotToken != "" && c.TelegramChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	return nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
