package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"funding-quotes/pkg/types"
)

// Config holds the application configuration
type Config struct {
	// 1Click
	JWTToken string
	BaseURL  string

	MetadataURL    string
	MeteorologyURL string
	AggregatorURL  string
	APIKey         string

	Account  string
	Currency string
	RPC      map[types.ChainID]string

	HTTP       HTTPConfig
	Deposit    DepositConfig
	Withdrawal WithdrawalConfig
	Storage    StorageConfig
	Log        LogConfig

	MetricsAddr string
}

// HTTPConfig tunes the API clients
type HTTPConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
}

// TokenConfig is a token on a chain
type TokenConfig struct {
	Address  string
	Decimals int
	Symbol   string
}

// DepositConfig is the deposit target
type DepositConfig struct {
	ID             string
	ChainID        types.ChainID
	Token          TokenConfig
	Recipient      string
	FeeBps         int
	Slippage       float64
	Source         types.Source
	DirectTransfer bool
}

// WithdrawalConfig is the withdrawal route
type WithdrawalConfig struct {
	ID             string
	FromChainID    types.ChainID
	FromToken      TokenConfig
	FromAddress    string
	ToTokenAddress string
	ToTokenChainID types.ChainID
	ToTokenSymbol  string
	DefaultChainID types.ChainID
	AllowedChains  []types.ChainID
	SameChainSwap  bool
	PersistChain   bool
	AmountDecimals int
}

// StorageConfig selects the key-value backend
type StorageConfig struct {
	Backend       string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	TTL           time.Duration
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string
	Format string
}

var globalConfig *Config

func setDefaults() {
	viper.SetDefault("base_url", "https://1click.chaindefuser.com")
	viper.SetDefault("metadata_url", "https://token-search.rainbow.me")
	viper.SetDefault("meteorology_url", "https://metadata.p.rainbow.me/meteorology/v1/gas")
	viper.SetDefault("aggregator_url", "https://swap.p.rainbow.me")
	viper.SetDefault("currency", "USD")

	viper.SetDefault("http.timeout", 15*time.Second)
	viper.SetDefault("http.requests_per_second", 10)
	viper.SetDefault("http.max_retries", 2)

	viper.SetDefault("deposit.id", "default")
	viper.SetDefault("deposit.chain", "arbitrum")
	viper.SetDefault("deposit.token.address", "0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	viper.SetDefault("deposit.token.decimals", 6)
	viper.SetDefault("deposit.token.symbol", "USDC")
	viper.SetDefault("deposit.direct_transfer", true)

	viper.SetDefault("withdrawal.id", "default")
	viper.SetDefault("withdrawal.from_chain", "arbitrum")
	viper.SetDefault("withdrawal.from_token.address", "0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	viper.SetDefault("withdrawal.from_token.decimals", 6)
	viper.SetDefault("withdrawal.from_token.symbol", "USDC")
	viper.SetDefault("withdrawal.to_token.address", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	viper.SetDefault("withdrawal.to_token.chain", "mainnet")
	viper.SetDefault("withdrawal.to_token.symbol", "USDC")
	viper.SetDefault("withdrawal.allowed_chains", "mainnet,optimism,base,arbitrum,polygon")
	viper.SetDefault("withdrawal.persist_chain", true)
	viper.SetDefault("withdrawal.amount_decimals", 2)

	viper.SetDefault("storage.backend", "file")
	viper.SetDefault("storage.redis_prefix", "funding-quotes:")
	viper.SetDefault("storage.ttl", 30*24*time.Hour)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("metrics_addr", ":9102")
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".funding-quotes")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	setDefaults()

	// FUNDING_QUOTES_DEPOSIT_CHAIN maps to deposit.chain
	viper.SetEnvPrefix("FUNDING_QUOTES")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file is optional
	_ = viper.ReadInConfig()

	cfg := &Config{
		JWTToken:       viper.GetString("jwt_token"),
		BaseURL:        viper.GetString("base_url"),
		MetadataURL:    viper.GetString("metadata_url"),
		MeteorologyURL: viper.GetString("meteorology_url"),
		AggregatorURL:  viper.GetString("aggregator_url"),
		APIKey:         viper.GetString("api_key"),
		Account:        viper.GetString("account"),
		Currency:       strings.ToUpper(viper.GetString("currency")),
		HTTP: HTTPConfig{
			Timeout:           viper.GetDuration("http.timeout"),
			RequestsPerSecond: viper.GetFloat64("http.requests_per_second"),
			MaxRetries:        viper.GetInt("http.max_retries"),
		},
		Storage: StorageConfig{
			Backend:       viper.GetString("storage.backend"),
			Path:          viper.GetString("storage.path"),
			RedisAddr:     viper.GetString("storage.redis_addr"),
			RedisPassword: viper.GetString("storage.redis_password"),
			RedisDB:       viper.GetInt("storage.redis_db"),
			RedisPrefix:   viper.GetString("storage.redis_prefix"),
			TTL:           viper.GetDuration("storage.ttl"),
		},
		Log: LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
		MetricsAddr: viper.GetString("metrics_addr"),
	}

	var err error
	if cfg.RPC, err = loadRPC(); err != nil {
		return nil, err
	}
	if cfg.Deposit, err = loadDeposit(); err != nil {
		return nil, err
	}
	if cfg.Withdrawal, err = loadWithdrawal(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

func loadRPC() (map[types.ChainID]string, error) {
	rpc := make(map[types.ChainID]string)
	for chain, url := range viper.GetStringMapString("rpc") {
		id, err := types.ParseChainID(chain)
		if err != nil {
			return nil, fmt.Errorf("rpc: %w", err)
		}
		rpc[id] = url
	}
	return rpc, nil
}

func loadDeposit() (DepositConfig, error) {
	chainID, err := types.ParseChainID(viper.GetString("deposit.chain"))
	if err != nil {
		return DepositConfig{}, fmt.Errorf("deposit.chain: %w", err)
	}
	return DepositConfig{
		ID:      viper.GetString("deposit.id"),
		ChainID: chainID,
		Token: TokenConfig{
			Address:  viper.GetString("deposit.token.address"),
			Decimals: viper.GetInt("deposit.token.decimals"),
			Symbol:   viper.GetString("deposit.token.symbol"),
		},
		Recipient:      viper.GetString("deposit.recipient"),
		FeeBps:         viper.GetInt("deposit.fee_bps"),
		Slippage:       viper.GetFloat64("deposit.slippage"),
		Source:         types.Source(viper.GetString("deposit.source")),
		DirectTransfer: viper.GetBool("deposit.direct_transfer"),
	}, nil
}

func loadWithdrawal() (WithdrawalConfig, error) {
	from, err := types.ParseChainID(viper.GetString("withdrawal.from_chain"))
	if err != nil {
		return WithdrawalConfig{}, fmt.Errorf("withdrawal.from_chain: %w", err)
	}
	anchor, err := types.ParseChainID(viper.GetString("withdrawal.to_token.chain"))
	if err != nil {
		return WithdrawalConfig{}, fmt.Errorf("withdrawal.to_token.chain: %w", err)
	}

	var defaultChain types.ChainID
	if s := viper.GetString("withdrawal.default_chain"); s != "" {
		if defaultChain, err = types.ParseChainID(s); err != nil {
			return WithdrawalConfig{}, fmt.Errorf("withdrawal.default_chain: %w", err)
		}
	}

	var allowed []types.ChainID
	for _, s := range strings.Split(viper.GetString("withdrawal.allowed_chains"), ",") {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		id, err := types.ParseChainID(s)
		if err != nil {
			return WithdrawalConfig{}, fmt.Errorf("withdrawal.allowed_chains: %w", err)
		}
		allowed = append(allowed, id)
	}

	return WithdrawalConfig{
		ID:          viper.GetString("withdrawal.id"),
		FromChainID: from,
		FromToken: TokenConfig{
			Address:  viper.GetString("withdrawal.from_token.address"),
			Decimals: viper.GetInt("withdrawal.from_token.decimals"),
			Symbol:   viper.GetString("withdrawal.from_token.symbol"),
		},
		FromAddress:    viper.GetString("withdrawal.from_address"),
		ToTokenAddress: viper.GetString("withdrawal.to_token.address"),
		ToTokenChainID: anchor,
		ToTokenSymbol:  viper.GetString("withdrawal.to_token.symbol"),
		DefaultChainID: defaultChain,
		AllowedChains:  allowed,
		SameChainSwap:  viper.GetBool("withdrawal.same_chain_swap"),
		PersistChain:   viper.GetBool("withdrawal.persist_chain"),
		AmountDecimals: viper.GetInt("withdrawal.amount_decimals"),
	}, nil
}

// Validate checks the settings every command relies on
func (c *Config) Validate() error {
	if c.MetadataURL == "" || c.MeteorologyURL == "" || c.AggregatorURL == "" {
		return fmt.Errorf("API endpoints must not be empty")
	}
	if c.Deposit.Token.Address == "" {
		return fmt.Errorf("deposit.token.address is required")
	}
	if c.Deposit.Source == types.SourceOneClick && c.JWTToken == "" {
		return fmt.Errorf("JWT token not found. Please set FUNDING_QUOTES_JWT_TOKEN to quote through 1Click")
	}
	if c.Account != "" {
		if err := types.ValidateAddress(c.Account, c.Deposit.ChainID); err != nil {
			return fmt.Errorf("account: %w", err)
		}
	}
	switch c.Storage.Backend {
	case "file", "redis", "none":
	default:
		return fmt.Errorf("unknown storage backend '%s'", c.Storage.Backend)
	}
	if c.Storage.Backend == "redis" && c.Storage.RedisAddr == "" {
		return fmt.Errorf("storage.redis_addr is required for the redis backend")
	}
	return nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
