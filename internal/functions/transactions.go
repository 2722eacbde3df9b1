package functions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/michaelbrown/ibrl/internal/market"
	"github.com/michaelbrown/ibrl/internal/solana"
	"github.com/michaelbrown/ibrl/internal/tools"
)

func (h *handlers) reviewTransaction(ctx context.Context, args map[string]any, emit tools.Emit) error {
	hash := tools.Args(args).String("hash")

	if solana.IsEthereumTxHash(hash) {
		emit("\nOh look, an Ethereum transaction! Let me grab my history book and a cup of coffee while we wait for it to confirm... 😴\n")
		emit("Just kidding! I don't review traffic jams. Try a Solana transaction - we process those faster than you can say 'gas fees'! ⚡\n")
		return nil
	}
	if !solana.ValidateSignature(hash) {
		emit("\nHmm... that doesn't look like a valid transaction hash. Are you sure you copied it correctly? Even Ethereum users get this right sometimes! 😏\n")
		return nil
	}

	tx, err := h.s.Mainnet.GetTransaction(ctx, hash)
	if errors.Is(err, solana.ErrTransactionNotFound) {
		emit("\nTransaction not found! Either it's too old (unlike Ethereum, we process too many to keep them all), or it never existed! 😅⚡\n")
		return nil
	}
	if err != nil {
		return explain(ctx, err, emit)
	}

	emit("\nAnalyzing transaction at supersonic speed ⚡\n\n")
	if !tx.Timestamp.IsZero() {
		emit(fmt.Sprintf("Timestamp: %s\n", tx.Timestamp.Format(time.RFC1123)))
	}
	mark := "✅"
	if !tx.Success {
		mark = "❌"
	}
	emit(fmt.Sprintf("Status: %s %s\n", tx.Status(), mark))

	switch {
	case tx.TokenTransfer != nil:
		if tx.TokenTransfer.Symbol != "" {
			emit(fmt.Sprintf("Token Transfer: %s %s\n", tx.TokenTransfer.Amount, tx.TokenTransfer.Symbol))
		} else {
			emit(fmt.Sprintf("Token Transfer: %s tokens (Contract: %s)\n", tx.TokenTransfer.Amount, solana.Short(tx.TokenTransfer.Mint)))
		}
		emitParties(tx, emit)
	case tx.Lamports > 0:
		emit(fmt.Sprintf("Amount: %s SOL\n", solana.ToSOL(tx.Lamports).StringFixed(6)))
		emitParties(tx, emit)
	default:
		emit("This appears to be a program interaction or NFT transaction\n")
	}

	if tx.Fee.IsPositive() {
		emit(fmt.Sprintf("Network Fee: %s SOL\n", tx.Fee.StringFixed(6)))
	}
	emit("\n")
	if tx.Success {
		emit("Transaction confirmed and secured on-chain in milliseconds! That's the Solana way 🚀\n")
	} else {
		emit("Transaction failed, but hey, at least you didn't waste $50 on gas fees! 😎\n")
	}
	return nil
}

func emitParties(tx *solana.TxDetails, emit tools.Emit) {
	if tx.Sender != "" && tx.Receiver != "" {
		emit(fmt.Sprintf("From: %s\n", solana.Short(tx.Sender)))
		emit(fmt.Sprintf("To: %s\n", solana.Short(tx.Receiver)))
	}
}

func (h *handlers) mintNFT(ctx context.Context, args map[string]any, emit tools.Emit) error {
	a := tools.Args(args)
	req := market.NFTRequest{
		Recipient:   a.String("recipient"),
		Name:        a.String("name"),
		Image:       a.String("image"),
		Description: a.String("description"),
	}
	if err := req.Validate(); err != nil {
		if errors.Is(err, market.ErrInvalidImageURL) {
			emit("\nThat image link doesn't look right. I need an http(s) URL to mint from 🖼️\n")
			return nil
		}
		return explain(ctx, err, emit)
	}

	res, err := h.s.Crossmint.MintNFT(ctx, req)
	if err != nil {
		return explain(ctx, err, emit)
	}
	emit(fmt.Sprintf("\n🎨 Minting \"%s\" to %s as a compressed NFT. Cheaper than a single ETH gas fee! ⚡\n", req.Name, solana.Short(req.Recipient)))
	emit(fmt.Sprintf("Mint ID: %s", res.ID))
	if res.OnChain.Status != "" {
		emit(fmt.Sprintf(" (status: %s)", res.OnChain.Status))
	}
	emit("\n")
	return nil
}
