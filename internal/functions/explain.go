package functions

import (
	"context"
	"errors"

	"github.com/michaelbrown/ibrl/internal/logger"
	"github.com/michaelbrown/ibrl/internal/market"
	"github.com/michaelbrown/ibrl/internal/session"
	"github.com/michaelbrown/ibrl/internal/solana"
	"github.com/michaelbrown/ibrl/internal/tools"
	"github.com/michaelbrown/ibrl/internal/wallet"
)

const (
	msgInvalidAddress = "\nHold up! That doesn't look like a valid Solana address. Are you sure you're not trying to give me an Ethereum address? 😅 Those are sooo 2021! ⚡\n"
	msgRateLimited    = "\nWhoa, I'm being rate limited! Even Solana-speed me has to wait my turn sometimes. Try again in a moment ⚡\n"
	msgMissingKey     = "\nOops! Looks like one of my API keys needs a checkup. Even the fastest chain needs proper maintenance! 🔧⚡\n"
	msgNoWallet       = "\nI don't have a wallet configured right now. Set one up and I'll be moving SOL at lightspeed ⚡\n"
	msgInsufficient   = "\nNot enough SOL in my wallet for that one. Even the fastest chain can't spend what isn't there! 😅\n"
	msgUnconfirmed    = "\nSent it, but the network didn't confirm it in time. Check the explorer before trying again so nothing goes out twice! ⏳⚡\n"
	msgNotFound       = "\nCouldn't find that one! Either it never existed, or it's hiding better than an L2's decentralization roadmap 🙄\n"
	msgGeneric        = "\nEven my lightning-fast circuits hit a snag sometimes! Probably just taking a microsecond break - still faster than an ETH transaction! 😅⚡\n"
)

// explain logs err and emits the explanation matching its category. Handlers
// return nil afterwards so the turn carries on.
func explain(ctx context.Context, err error, emit tools.Emit) error {
	logger.FromContext(ctx).Warn("function failed", "error", err)

	switch {
	case errors.Is(err, solana.ErrInvalidAddress):
		emit(msgInvalidAddress)
	case errors.Is(err, market.ErrRateLimited), solana.IsAirdropLimit(err):
		emit(msgRateLimited)
	case errors.Is(err, market.ErrMissingAPIKey):
		emit(msgMissingKey)
	case errors.Is(err, session.ErrNoWallet):
		emit(msgNoWallet)
	case errors.Is(err, wallet.ErrInsufficientBalance):
		emit(msgInsufficient)
	case errors.Is(err, solana.ErrConfirmTimeout):
		emit(msgUnconfirmed)
	case errors.Is(err, solana.ErrTransactionNotFound), errors.Is(err, market.ErrEpochNotFound):
		emit(msgNotFound)
	default:
		emit(msgGeneric)
	}
	return nil
}
