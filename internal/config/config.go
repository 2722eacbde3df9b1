package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ProviderConfig struct {
	BaseURL string            `mapstructure:"base_url"`
	APIKey  string            `mapstructure:"api_key"`
	Models  map[string]string `mapstructure:"models"`
}

type AgentConfig struct {
	PersonaFile        string  `mapstructure:"persona_file"`
	Temperature        float64 `mapstructure:"temperature"`
	HistoryMaxTokens   int     `mapstructure:"history_max_tokens"`
	HistoryMaxMessages int     `mapstructure:"history_max_messages"`
}

type SolanaConfig struct {
	RPCURL          string        `mapstructure:"rpc_url"`
	HeliusAPIKey    string        `mapstructure:"helius_api_key"`
	DevnetRPCURL    string        `mapstructure:"devnet_rpc_url"`
	WalletMnemonic  string        `mapstructure:"wallet_mnemonic"`
	BalanceCacheTTL time.Duration `mapstructure:"balance_cache_ttl"`
}

type APIConfig struct {
	CoinGeckoURL        string        `mapstructure:"coingecko_url"`
	BirdeyeURL          string        `mapstructure:"birdeye_url"`
	BirdeyeAPIKey       string        `mapstructure:"birdeye_api_key"`
	JupiterQuoteURL     string        `mapstructure:"jupiter_quote_url"`
	JupiterTokensURL    string        `mapstructure:"jupiter_tokens_url"`
	LuloURL             string        `mapstructure:"lulo_url"`
	JitoURL             string        `mapstructure:"jito_url"`
	CrossmintURL        string        `mapstructure:"crossmint_url"`
	CrossmintAPIKey     string        `mapstructure:"crossmint_api_key"`
	CrossmintCollection string        `mapstructure:"crossmint_collection"`
	HTTPTimeout         time.Duration `mapstructure:"http_timeout"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type LogConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	Output    string `mapstructure:"output"`
	FilePath  string `mapstructure:"file_path"`
	AddSource bool   `mapstructure:"add_source"`
}

type Config struct {
	Providers       map[string]ProviderConfig `mapstructure:"providers"`
	DefaultProvider string                    `mapstructure:"default_provider"`
	Agent           AgentConfig               `mapstructure:"agent"`
	Solana          SolanaConfig              `mapstructure:"solana"`
	APIs            APIConfig                 `mapstructure:"apis"`
	Server          ServerConfig              `mapstructure:"server"`
	Storage         StorageConfig             `mapstructure:"storage"`
	Log             LogConfig                 `mapstructure:"log"`
}

const (
	publicMainnetRPC = "https://api.mainnet-beta.solana.com"
	publicDevnetRPC  = "https://api.devnet.solana.com"
	heliusMainnetRPC = "https://mainnet.helius-rpc.com/"
)

// Load reads ibrl.yaml from the working directory or $HOME/.ibrl. A missing
// file is not an error; defaults and IBRL_* environment variables apply.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads the given config file, or searches the default locations when path is empty.
func LoadFrom(path string) (*Config, error) {
	// A .env file is optional.
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ibrl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.ibrl")
	}
	v.SetEnvPrefix("ibrl")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.expandEnv()

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("default_provider", "openai")
	v.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("providers.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("providers.openai.models.default", "gpt-4o-mini")

	v.SetDefault("agent.temperature", 0.9)
	v.SetDefault("agent.history_max_tokens", 6000)
	v.SetDefault("agent.history_max_messages", 10)

	v.SetDefault("solana.helius_api_key", "${HELIUS_API_KEY}")
	v.SetDefault("solana.devnet_rpc_url", publicDevnetRPC)
	v.SetDefault("solana.wallet_mnemonic", "${IBRL_WALLET_MNEMONIC}")
	v.SetDefault("solana.balance_cache_ttl", "30s")

	v.SetDefault("apis.birdeye_api_key", "${BIRDEYE_API_KEY}")
	v.SetDefault("apis.crossmint_api_key", "${CROSSMINT_API_KEY}")
	v.SetDefault("apis.crossmint_collection", "${CROSSMINT_COLLECTION_ID}")
	v.SetDefault("apis.http_timeout", "15s")

	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.db_path", filepath.Join(home, ".ibrl", "ibrl.db"))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")
}

// expandEnv resolves ${VAR} references in secret fields.
func (c *Config) expandEnv() {
	for name, p := range c.Providers {
		p.APIKey = expand(p.APIKey)
		c.Providers[name] = p
	}
	c.Solana.RPCURL = expand(c.Solana.RPCURL)
	c.Solana.HeliusAPIKey = expand(c.Solana.HeliusAPIKey)
	c.Solana.WalletMnemonic = expand(c.Solana.WalletMnemonic)
	c.APIs.BirdeyeAPIKey = expand(c.APIs.BirdeyeAPIKey)
	c.APIs.CrossmintAPIKey = expand(c.APIs.CrossmintAPIKey)
	c.APIs.CrossmintCollection = expand(c.APIs.CrossmintCollection)
}

func expand(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	return s
}

// Provider returns the config for a named provider, falling back to the default.
func (c *Config) Provider(name string) (ProviderConfig, error) {
	if name == "" {
		name = c.DefaultProvider
	}
	p, ok := c.Providers[name]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("unknown provider: %s", name)
	}
	return p, nil
}

// MainnetRPC returns the mainnet endpoint: rpc_url if set, else Helius when
// a key is configured, else the public cluster.
func (s SolanaConfig) MainnetRPC() string {
	switch {
	case s.RPCURL != "":
		return s.RPCURL
	case s.HeliusAPIKey != "":
		return heliusMainnetRPC + "?api-key=" + url.QueryEscape(s.HeliusAPIKey)
	default:
		return publicMainnetRPC
	}
}

// UsesHelius reports whether the mainnet endpoint supports Helius DAS methods.
func (s SolanaConfig) UsesHelius() bool {
	return s.HeliusAPIKey != "" && (s.RPCURL == "" || strings.Contains(s.RPCURL, "helius"))
}
