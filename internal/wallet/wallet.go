// Package wallet is the agent's own Solana wallet: key derivation, balance
// lookups through the session cache, and signing of outgoing transactions.
package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tyler-smith/go-bip39"

	"github.com/michaelbrown/ibrl/internal/balance"
	"github.com/michaelbrown/ibrl/internal/solana"
)

var (
	// ErrInsufficientBalance is returned when a transfer exceeds the wallet balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidMnemonic is returned for phrases that fail the bip39 checksum.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
	// ErrInvalidAmount is returned for zero or negative transfer amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Wallet signs with a single ed25519 key.
type Wallet struct {
	key     ed25519.PrivateKey
	address solana.PublicKey
	rpc     *solana.Client
	cache   *balance.Cache
}

// NewMnemonic generates a fresh 12-word recovery phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", fmt.Errorf("generating entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// FromMnemonic derives the wallet key from the first 32 bytes of the bip39 seed.
func FromMnemonic(mnemonic string, rpc *solana.Client, cache *balance.Cache) (*Wallet, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, "")
	return FromSeed(seed[:ed25519.SeedSize], rpc, cache), nil
}

// FromSeed builds a wallet from a raw 32-byte ed25519 seed.
func FromSeed(seed []byte, rpc *solana.Client, cache *balance.Cache) *Wallet {
	key := ed25519.NewKeyFromSeed(seed)
	w := &Wallet{key: key, rpc: rpc, cache: cache}
	copy(w.address[:], key.Public().(ed25519.PublicKey))
	if w.cache == nil {
		w.cache = balance.NewCache(balance.DefaultTTL)
	}
	return w
}

// WithCache returns a copy of the wallet that reads balances through cache.
func (w *Wallet) WithCache(cache *balance.Cache) *Wallet {
	cp := *w
	cp.cache = cache
	return &cp
}

// Address returns the wallet's base58 address.
func (w *Wallet) Address() string {
	return w.address.String()
}

// PublicKey returns the wallet's public key.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.address
}

// Balance returns the wallet's SOL balance, served from the cache while fresh.
func (w *Wallet) Balance(ctx context.Context) (balance.Entry, error) {
	return w.cache.Lookup(ctx, w.Address(), w.rpc.GetBalance)
}

// SendSOL transfers amount SOL to recipient and waits for confirmation.
func (w *Wallet) SendSOL(ctx context.Context, recipient string, amount decimal.Decimal) (string, error) {
	to, err := solana.ParsePublicKey(recipient)
	if err != nil {
		return "", err
	}
	if !amount.IsPositive() {
		return "", ErrInvalidAmount
	}

	bal, err := w.Balance(ctx)
	if err != nil {
		return "", err
	}
	if bal.SOL.LessThan(amount) {
		return "", fmt.Errorf("%w: have %s SOL, need %s SOL", ErrInsufficientBalance, bal.SOL, amount)
	}

	blockhash, err := w.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", err
	}
	msg, err := solana.BuildTransfer(w.address, to, solana.ToLamports(amount), blockhash)
	if err != nil {
		return "", err
	}
	unsigned, err := solana.NewUnsigned(msg)
	if err != nil {
		return "", err
	}
	return w.signSendConfirm(ctx, unsigned)
}

// SignAndSend signs a base64 transaction built elsewhere (e.g. by a swap router),
// submits it and waits for confirmation.
func (w *Wallet) SignAndSend(ctx context.Context, encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding transaction: %w", err)
	}
	return w.signSendConfirm(ctx, raw)
}

func (w *Wallet) signSendConfirm(ctx context.Context, raw []byte) (string, error) {
	signed, sig, err := solana.SignTransaction(raw, w.key)
	if err != nil {
		return "", err
	}
	if _, err := w.rpc.SendTransaction(ctx, signed); err != nil {
		return "", err
	}
	w.cache.Invalidate(w.Address())
	if err := w.rpc.ConfirmTransaction(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}
