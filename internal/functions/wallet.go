package functions

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/michaelbrown/ibrl/internal/market"
	"github.com/michaelbrown/ibrl/internal/solana"
	"github.com/michaelbrown/ibrl/internal/tools"
	"github.com/michaelbrown/ibrl/internal/wallet"
)

// AirdropLamports is what one devnet airdrop request asks for.
const AirdropLamports = solana.LamportsPerSOL

func (h *handlers) walletBalance(ctx context.Context, args map[string]any, emit tools.Emit) error {
	address := tools.Args(args).String("address")
	if !solana.ValidateAddress(address) {
		emit(msgInvalidAddress)
		return nil
	}

	bal, err := h.s.Balance(ctx, address)
	if err != nil {
		return explain(ctx, err, emit)
	}

	emit("\nAh, let me check that wallet faster than you can say \"Solana TPS\" ⚡\n\n")
	emit(fmt.Sprintf("This wallet is holding %s SOL ", bal.SOL.StringFixed(4)))
	if p, err := h.s.CoinGecko.SolanaPrice(ctx); err == nil {
		emit(fmt.Sprintf("(worth $%s) ", bal.SOL.Mul(p.USD).StringFixed(2)))
	}
	emit("💰\n\n")

	switch {
	case bal.SOL.GreaterThan(decimal.NewFromInt(100)):
		emit("Wow, looks like we've got a whale here! And they chose the fastest chain - smart! 🐋✨\n")
	case bal.SOL.GreaterThan(decimal.NewFromInt(10)):
		emit("Nice bag! Holding SOL instead of ETH - you clearly understand performance! 😎\n")
	case bal.SOL.GreaterThan(decimal.NewFromInt(1)):
		emit("Every SOL counts when you're on the fastest chain in crypto! Keep stacking! 🚀\n")
	default:
		emit("Starting small but mighty! Even with this balance, you're transacting faster than a full ETH validator! ⚡\n")
	}
	return nil
}

func (h *handlers) agentWallet(ctx context.Context, _ map[string]any, emit tools.Emit) error {
	w, err := h.s.AgentWallet()
	if err != nil {
		return explain(ctx, err, emit)
	}
	bal, err := w.Balance(ctx)
	if err != nil {
		return explain(ctx, err, emit)
	}
	emit(fmt.Sprintf("\nMy wallet: %s\n", w.Address()))
	emit(fmt.Sprintf("Balance: %s SOL ⚡\n", bal.SOL.StringFixed(4)))
	return nil
}

func (h *handlers) sendSOL(ctx context.Context, args map[string]any, emit tools.Emit) error {
	a := tools.Args(args)
	recipient := a.String("recipient")
	if !solana.ValidateAddress(recipient) {
		emit(msgInvalidAddress)
		return nil
	}
	amount, _ := a.Float("amount")
	if amount <= 0 {
		emit("\nSending zero SOL? Bold strategy. Give me a positive amount and I'll make it fly ⚡\n")
		return nil
	}

	w, err := h.s.AgentWallet()
	if err != nil {
		return explain(ctx, err, emit)
	}
	sol := decimal.NewFromFloat(amount)
	emit(fmt.Sprintf("\nSending %s SOL to %s at supersonic speed ⚡\n", sol.String(), solana.Short(recipient)))

	sig, err := w.SendSOL(ctx, recipient, sol)
	if err != nil {
		return explain(ctx, err, emit)
	}
	emit(fmt.Sprintf("Done! Confirmed before you could blink 🚀\nSignature: %s\n", sig))
	return nil
}

func (h *handlers) swap(ctx context.Context, args map[string]any, emit tools.Emit) error {
	a := tools.Args(args)
	amount, _ := a.Float("amount")
	if amount <= 0 {
		emit("\nI need a positive amount of SOL to swap ⚡\n")
		return nil
	}
	outputMint := a.String("outputMint")
	if outputMint == "" {
		outputMint = market.USDCMint
	}
	if !solana.ValidateAddress(outputMint) {
		emit(msgInvalidAddress)
		return nil
	}

	w, err := h.s.AgentWallet()
	if err != nil {
		return explain(ctx, err, emit)
	}

	sol := decimal.NewFromFloat(amount)
	quote, err := h.s.Jupiter.Quote(ctx, solana.ToLamports(sol), outputMint)
	if err != nil {
		return explain(ctx, err, emit)
	}

	bal, err := w.Balance(ctx)
	if err != nil {
		return explain(ctx, err, emit)
	}
	if bal.SOL.LessThan(sol) {
		return explain(ctx, wallet.ErrInsufficientBalance, emit)
	}

	symbol, decimals := "tokens", int32(9)
	if outputMint == market.USDCMint {
		symbol, decimals = "USDC", 6
	}
	out := solana.FromBaseUnits(quote.OutAmount, decimals)
	emit(fmt.Sprintf("\n🔄 Swapping %s SOL for ~%s %s", sol.String(), out.StringFixed(6), symbol))
	if len(quote.Route) > 0 {
		emit(fmt.Sprintf(" via %s", quote.RouteLabel()))
	}
	emit(fmt.Sprintf(" (price impact %s%%)\n", quote.PriceImpactPct.StringFixed(2)))

	tx, err := h.s.Jupiter.SwapTransaction(ctx, quote, w.Address())
	if err != nil {
		return explain(ctx, err, emit)
	}
	sig, err := w.SignAndSend(ctx, tx)
	if err != nil {
		return explain(ctx, err, emit)
	}
	emit(fmt.Sprintf("Swap confirmed! ⚡\nSignature: %s\n", sig))
	return nil
}

func (h *handlers) airdrop(ctx context.Context, args map[string]any, emit tools.Emit) error {
	address := tools.Args(args).String("address")
	if !solana.ValidateAddress(address) {
		emit(msgInvalidAddress)
		return nil
	}

	sig, err := h.s.Devnet.RequestAirdrop(ctx, address, AirdropLamports)
	if err == nil {
		err = h.s.Devnet.ConfirmTransaction(ctx, sig)
	}
	if err != nil {
		if solana.IsAirdropLimit(err) {
			emit("\nThe devnet faucet says you've hit today's airdrop limit. Come back tomorrow, still faster than waiting for an ETH testnet faucet! 😏\n")
			return nil
		}
		return explain(ctx, err, emit)
	}
	emit(fmt.Sprintf("\n🪂 1 devnet SOL delivered to %s!\nSignature: %s\n", solana.Short(address), sig))
	return nil
}
