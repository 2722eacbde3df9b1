package functions

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/michaelbrown/ibrl/internal/solana"
	"github.com/michaelbrown/ibrl/internal/tools"
)

var billion = decimal.New(1, 9)

func trend(change decimal.Decimal) string {
	if change.IsNegative() {
		return "📉"
	}
	return "📈"
}

func (h *handlers) solanaPrice(ctx context.Context, _ map[string]any, emit tools.Emit) error {
	p, err := h.s.CoinGecko.SolanaPrice(ctx)
	if err != nil {
		return explain(ctx, err, emit)
	}

	emit("\nAh, let me check the latest numbers at lightning speed ⚡ (something other chains wouldn't understand 😏)\n\n")
	emit(fmt.Sprintf("Solana is currently crushing it at $%s ", p.USD.StringFixed(2)))
	emit(fmt.Sprintf("(%s %s%% in 24h) ", trend(p.Change24h), p.Change24h.StringFixed(2)))
	emit(fmt.Sprintf("with a market cap of $%sB 🚀\n\n", p.MarketCap.Div(billion).StringFixed(2)))

	if p.Change24h.IsNegative() {
		emit("Just a minor speed bump - still faster than an Ethereum transaction confirmation! 😂\n")
	} else {
		emit("While other chains are stuck in traffic, we're just warming up! Remember, in the time it took you to read this, Solana processed about 10,000 transactions. 😎\n")
	}
	return nil
}

func (h *handlers) trendingTokens(ctx context.Context, _ map[string]any, emit tools.Emit) error {
	tokens, err := h.s.CoinGecko.TrendingMemeTokens(ctx)
	if err != nil {
		return explain(ctx, err, emit)
	}

	emit("\nAh, you want to see what's trending in the fastest memecoin ecosystem? Let me pull that data faster than you can say \"gas fees\" 😏\n\n")
	emit("🔥 Top Trending Solana Tokens (while ETH is still processing your last transaction):\n\n")
	for i, t := range tokens {
		emit(fmt.Sprintf("%d. %s (%s) - $%s %s %s%% 24h\n",
			i+1, t.Name, t.Symbol, t.USD.StringFixed(6), trend(t.Change24h), t.Change24h.StringFixed(2)))
	}
	emit("\nNow that's what I call high-performance memeing! ⚡🚀\n")
	return nil
}

func (h *handlers) topTokens(ctx context.Context, args map[string]any, emit tools.Emit) error {
	limit := 10
	if f, ok := tools.Args(args).Float("limit"); ok {
		limit = min(max(int(f), 1), 20)
	}

	tokens, err := h.s.Birdeye.TopTokens(ctx, limit)
	if err != nil {
		return explain(ctx, err, emit)
	}
	if len(tokens) == 0 {
		emit("\nBirdeye came back empty. Quietest day on Solana ever? 🤔\n")
		return nil
	}

	emit("\n🦅 Biggest 24h movers on Solana right now:\n\n")
	for i, t := range tokens {
		emit(fmt.Sprintf("%d. %s (%s) %s %s%% | 24h volume $%s | mcap $%s\n",
			i+1, t.Name, t.Symbol, trend(t.V24hChangePercent), t.V24hChangePercent.StringFixed(2),
			t.V24hUSD.StringFixed(0), t.MarketCap.StringFixed(0)))
	}
	return nil
}

func (h *handlers) tokenInfo(ctx context.Context, args map[string]any, emit tools.Emit) error {
	mint := tools.Args(args).String("mint")
	if !solana.ValidateAddress(mint) {
		emit(msgInvalidAddress)
		return nil
	}

	info, err := h.s.Jupiter.TokenInfo(ctx, mint)
	if err != nil {
		return explain(ctx, err, emit)
	}
	if info == nil {
		emit(fmt.Sprintf("\nJupiter has never heard of %s. Either it's brand new or it's not worth the bandwidth 🙄\n", solana.Short(mint)))
		return nil
	}

	emit(fmt.Sprintf("\n🪐 %s (%s)\n", info.Name, info.Symbol))
	if info.CoingeckoID != "" {
		emit(fmt.Sprintf("CoinGecko ID: %s\n", info.CoingeckoID))
	}
	emit(fmt.Sprintf("Daily volume: $%s\n", info.DailyVolume.StringFixed(2)))
	return nil
}

func (h *handlers) lendingRates(ctx context.Context, _ map[string]any, emit tools.Emit) error {
	rates, err := h.s.Lulo.USDCLendingRates(ctx)
	if err != nil {
		return explain(ctx, err, emit)
	}
	if len(rates) == 0 {
		emit("\nNo USDC lending rates available right now. Even DeFi needs a nap sometimes 😴\n")
		return nil
	}

	emit("\n💰 Current USDC lending rates on Solana:\n\n")
	for _, r := range rates {
		emit(fmt.Sprintf("• %s: %s%% APY\n", r.Protocol, r.Rate.StringFixed(2)))
	}
	emit(fmt.Sprintf("\n%s leads the pack. Yield at the speed of light ⚡\n", rates[0].Protocol))
	return nil
}

func (h *handlers) jitoRewards(ctx context.Context, args map[string]any, emit tools.Emit) error {
	epoch, _ := tools.Args(args).Float("epoch")

	r, err := h.s.Jito.MEVRewards(ctx, int64(epoch))
	if err != nil {
		return explain(ctx, err, emit)
	}

	emit(fmt.Sprintf("\n⚡ Jito MEV rewards for epoch %d:\n\n", r.Epoch))
	emit(fmt.Sprintf("Total network MEV: %s SOL\n", solana.ToSOL(r.TotalNetworkMEVLamports).StringFixed(4)))
	emit(fmt.Sprintf("Jito stake weight: %s SOL\n", solana.ToSOL(r.JitoStakeWeightLamports).StringFixed(0)))
	emit(fmt.Sprintf("Reward per lamport: %s\n", r.MEVRewardPerLamport.String()))
	return nil
}
