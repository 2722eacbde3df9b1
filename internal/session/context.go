// Package session holds the per-session handles the function catalog works
// against: RPC connections, the agent wallet, the balance cache and the
// market API clients. Nothing here is process-global.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/michaelbrown/ibrl/internal/balance"
	"github.com/michaelbrown/ibrl/internal/config"
	"github.com/michaelbrown/ibrl/internal/market"
	"github.com/michaelbrown/ibrl/internal/solana"
	"github.com/michaelbrown/ibrl/internal/wallet"
)

// ErrNoWallet is returned by operations that need the agent wallet when none is configured.
var ErrNoWallet = errors.New("agent wallet not configured")

// Context bundles the collaborators of one chat session.
type Context struct {
	Mainnet  *solana.Client
	Devnet   *solana.Client
	Wallet   *wallet.Wallet
	Balances *balance.Cache

	CoinGecko *market.CoinGecko
	Birdeye   *market.Birdeye
	Jupiter   *market.Jupiter
	Lulo      *market.Lulo
	Jito      *market.Jito
	Crossmint *market.Crossmint

	// Helius enables the DAS balance lookup on the mainnet client.
	Helius bool
}

// New builds a session context from configuration. A missing wallet
// mnemonic leaves Wallet nil; wallet functions then report ErrNoWallet.
func New(cfg *config.Config) (*Context, error) {
	timeout := cfg.APIs.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	s := &Context{
		Mainnet:  solana.NewClient(cfg.Solana.MainnetRPC(), solana.WithTimeout(timeout)),
		Devnet:   solana.NewClient(cfg.Solana.DevnetRPCURL, solana.WithTimeout(timeout)),
		Balances: balance.NewCache(cfg.Solana.BalanceCacheTTL),
		Helius:   cfg.Solana.UsesHelius(),

		CoinGecko: market.NewCoinGecko(cfg.APIs.CoinGeckoURL, market.WithTimeout(timeout)),
		Birdeye:   market.NewBirdeye(cfg.APIs.BirdeyeURL, market.WithTimeout(timeout), market.WithAPIKey(cfg.APIs.BirdeyeAPIKey)),
		Jupiter:   market.NewJupiter(cfg.APIs.JupiterQuoteURL, cfg.APIs.JupiterTokensURL, market.WithTimeout(timeout)),
		Lulo:      market.NewLulo(cfg.APIs.LuloURL, market.WithTimeout(timeout)),
		Jito:      market.NewJito(cfg.APIs.JitoURL, market.WithTimeout(timeout)),
		Crossmint: market.NewCrossmint(cfg.APIs.CrossmintURL, cfg.APIs.CrossmintCollection,
			market.WithTimeout(timeout), market.WithAPIKey(cfg.APIs.CrossmintAPIKey)),
	}

	if cfg.Solana.WalletMnemonic != "" {
		w, err := wallet.FromMnemonic(cfg.Solana.WalletMnemonic, s.Mainnet, s.Balances)
		if err != nil {
			return nil, fmt.Errorf("loading agent wallet: %w", err)
		}
		s.Wallet = w
	}
	return s, nil
}

// Fork returns a context for a new chat session. The network and market
// clients are shared, so their rate limits stay process-wide; the balance
// cache is fresh and the wallet reads through it.
func (s *Context) Fork() *Context {
	ttl := balance.DefaultTTL
	if s.Balances != nil {
		ttl = s.Balances.TTL()
	}
	fork := *s
	fork.Balances = balance.NewCache(ttl)
	if s.Wallet != nil {
		fork.Wallet = s.Wallet.WithCache(fork.Balances)
	}
	return &fork
}

// Balance returns the SOL balance of address, served from the cache while fresh.
func (s *Context) Balance(ctx context.Context, address string) (balance.Entry, error) {
	fetch := s.Mainnet.GetBalance
	if s.Helius {
		fetch = s.Mainnet.GetNativeBalance
	}
	return s.Balances.Lookup(ctx, address, fetch)
}

// AgentWallet returns the configured wallet or ErrNoWallet.
func (s *Context) AgentWallet() (*wallet.Wallet, error) {
	if s.Wallet == nil {
		return nil, ErrNoWallet
	}
	return s.Wallet, nil
}
