// Package functions is the assistant's function catalog: the descriptors
// advertised to the model and the handlers that run against a session.
package functions

import (
	"github.com/michaelbrown/ibrl/internal/llm"
	"github.com/michaelbrown/ibrl/internal/session"
	"github.com/michaelbrown/ibrl/internal/tools"
)

// Names lists every function in the catalog.
var Names = []string{
	"getSolanaPrice",
	"getTrendingSolanaTokens",
	"getTopTokens",
	"getTokenInfo",
	"getWalletBalance",
	"getAgentWallet",
	"reviewTransaction",
	"sendSOL",
	"swapSolToToken",
	"getLendingRates",
	"getJitoMevRewards",
	"mintNFT",
	"requestDevnetAirdrop",
}

// NewRegistry builds the full catalog bound to s.
func NewRegistry(s *session.Context) *tools.Registry {
	reg := tools.NewRegistry()
	reg.MustRegister(Catalog(s)...)
	return reg
}

// Catalog returns every function bound to s.
func Catalog(s *session.Context) []tools.Function {
	h := &handlers{s: s}
	return []tools.Function{
		{
			Def:     define("getSolanaPrice", "Get current Solana price, 24h change, and market cap", nil),
			Handler: h.solanaPrice,
		},
		{
			Def:     define("getTrendingSolanaTokens", "Get top 5 trending Solana meme tokens by market cap", nil),
			Handler: h.trendingTokens,
		},
		{
			Def: define("getTopTokens", "Get the Solana tokens with the largest 24h volume change from Birdeye", map[string]any{
				"limit": prop("integer", "How many tokens to list (1-20, default 10)"),
			}),
			Handler: h.topTokens,
		},
		{
			Def: define("getTokenInfo", "Get Jupiter metadata and daily volume for a token mint", map[string]any{
				"mint": prop("string", "Token mint address"),
			}, "mint"),
			Handler: h.tokenInfo,
		},
		{
			Def: define("getWalletBalance", "Get SOL balance for a Solana wallet address", map[string]any{
				"address": prop("string", "Solana wallet address"),
			}, "address"),
			Handler: h.walletBalance,
		},
		{
			Def:     define("getAgentWallet", "Get the address and balance of the assistant's own wallet", nil),
			Handler: h.agentWallet,
		},
		{
			Def: define("reviewTransaction", "Review a blockchain transaction hash and provide details", map[string]any{
				"hash": prop("string", "Transaction hash/signature to review"),
			}, "hash"),
			Handler: h.reviewTransaction,
		},
		{
			Def: define("sendSOL", "Send SOL from the assistant's wallet to a recipient", map[string]any{
				"recipient": prop("string", "Recipient Solana address"),
				"amount":    prop("number", "Amount of SOL to send"),
			}, "recipient", "amount"),
			Handler: h.sendSOL,
		},
		{
			Def: define("swapSolToToken", "Swap SOL from the assistant's wallet into another token via Jupiter", map[string]any{
				"amount":     prop("number", "Amount of SOL to swap"),
				"outputMint": prop("string", "Mint of the token to receive (default USDC)"),
			}, "amount"),
			Handler: h.swap,
		},
		{
			Def:     define("getLendingRates", "Get current USDC lending rates across Solana protocols from Lulo", nil),
			Handler: h.lendingRates,
		},
		{
			Def: define("getJitoMevRewards", "Get Jito MEV reward statistics for an epoch", map[string]any{
				"epoch": prop("integer", "Epoch number"),
			}, "epoch"),
			Handler: h.jitoRewards,
		},
		{
			Def: define("mintNFT", "Mint a compressed NFT to a Solana address via Crossmint", map[string]any{
				"recipient":   prop("string", "Recipient Solana address"),
				"name":        prop("string", "NFT name"),
				"image":       prop("string", "Image URL (http or https)"),
				"description": prop("string", "NFT description"),
			}, "recipient", "name", "image"),
			Handler: h.mintNFT,
		},
		{
			Def: define("requestDevnetAirdrop", "Request 1 devnet SOL for a Solana address", map[string]any{
				"address": prop("string", "Solana address to fund on devnet"),
			}, "address"),
			Handler: h.airdrop,
		},
	}
}

type handlers struct {
	s *session.Context
}

func define(name, description string, props map[string]any, required ...string) llm.ToolDef {
	if props == nil {
		props = map[string]any{}
	}
	if required == nil {
		required = []string{}
	}
	return llm.ToolDef{
		Name:        name,
		Description: description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}
