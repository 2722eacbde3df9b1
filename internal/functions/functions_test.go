package functions

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelbrown/ibrl/internal/balance"
	"github.com/michaelbrown/ibrl/internal/dispatch"
	"github.com/michaelbrown/ibrl/internal/llm"
	"github.com/michaelbrown/ibrl/internal/market"
	"github.com/michaelbrown/ibrl/internal/session"
	"github.com/michaelbrown/ibrl/internal/solana"
	"github.com/michaelbrown/ibrl/internal/wallet"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	someAddress  = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
)

// upstream fakes every external API on one server.
type upstream struct {
	t      *testing.T
	mux    *http.ServeMux
	rpc    map[string]any
	devnet map[string]any
}

func newUpstream(t *testing.T) (*upstream, *httptest.Server) {
	u := &upstream{
		t:   t,
		mux: http.NewServeMux(),
		rpc: map[string]any{
			"getBalance":           map[string]any{"value": 2_500_000_000},
			"getLatestBlockhash":   map[string]any{"value": map[string]any{"blockhash": base58.Encode(bytes.Repeat([]byte{1}, 32))}},
			"sendTransaction":      "sent",
			"getSignatureStatuses": map[string]any{"value": []any{map[string]any{"confirmationStatus": "confirmed"}}},
		},
		devnet: map[string]any{
			"requestAirdrop":       "airdropSig",
			"getSignatureStatuses": map[string]any{"value": []any{map[string]any{"confirmationStatus": "confirmed"}}},
		},
	}
	u.mux.HandleFunc("POST /rpc", u.jsonRPC(func() map[string]any { return u.rpc }))
	u.mux.HandleFunc("POST /devnet", u.jsonRPC(func() map[string]any { return u.devnet }))
	u.mux.HandleFunc("GET /simple/price", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"solana": map[string]any{"usd": 187.42, "usd_24h_change": -3.5, "usd_market_cap": 89_000_000_000}})
	})
	srv := httptest.NewServer(u.mux)
	t.Cleanup(srv.Close)
	return u, srv
}

func (u *upstream) jsonRPC(results func() map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		require.NoError(u.t, json.NewDecoder(r.Body).Decode(&req))
		res, ok := results()[req.Method]
		if rpcErr, isErr := res.(*solana.RPCError); isErr {
			writeJSON(w, 200, map[string]any{"jsonrpc": "2.0", "id": 1, "error": rpcErr})
			return
		}
		if !ok {
			writeJSON(w, 200, map[string]any{"jsonrpc": "2.0", "id": 1, "error": map[string]any{"code": -32601, "message": "unexpected " + req.Method}})
			return
		}
		writeJSON(w, 200, map[string]any{"jsonrpc": "2.0", "id": 1, "result": res})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newSession(t *testing.T, url string, withWallet bool) *session.Context {
	t.Helper()
	fast := []solana.Option{solana.WithMinInterval(time.Nanosecond), solana.WithPollInterval(time.Millisecond)}
	s := &session.Context{
		Mainnet:   solana.NewClient(url+"/rpc", fast...),
		Devnet:    solana.NewClient(url+"/devnet", fast...),
		Balances:  balance.NewCache(time.Minute),
		CoinGecko: market.NewCoinGecko(url, market.WithMinInterval(0)),
		Birdeye:   market.NewBirdeye(url),
		Jupiter:   market.NewJupiter(url, url),
		Lulo:      market.NewLulo(url),
		Jito:      market.NewJito(url, market.WithMinInterval(0)),
		Crossmint: market.NewCrossmint(url, "col", market.WithAPIKey("key")),
	}
	if withWallet {
		w, err := wallet.FromMnemonic(testMnemonic, s.Mainnet, s.Balances)
		require.NoError(t, err)
		s.Wallet = w
	}
	return s
}

func call(t *testing.T, s *session.Context, name string, args map[string]any) string {
	t.Helper()
	var out strings.Builder
	err := NewRegistry(s).CallTool(context.Background(), name, args, func(c string) { out.WriteString(c) })
	require.NoError(t, err)
	return out.String()
}

func TestCatalogIsComplete(t *testing.T) {
	reg := NewRegistry(&session.Context{})
	defs := reg.AllTools()
	require.Len(t, defs, len(Names))
	for _, name := range Names {
		fn, ok := reg.Lookup(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, fn.Def.Description, name)
		assert.Equal(t, "object", fn.Def.Parameters["type"], name)
	}
}

func TestSolanaPrice(t *testing.T) {
	_, srv := newUpstream(t)
	out := call(t, newSession(t, srv.URL, false), "getSolanaPrice", nil)
	assert.Contains(t, out, "$187.42")
	assert.Contains(t, out, "📉 -3.50% in 24h")
	assert.Contains(t, out, "$89.00B")
	assert.Contains(t, out, "minor speed bump")
}

func TestSolanaPriceRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{})
	}))
	defer srv.Close()
	out := call(t, newSession(t, srv.URL, false), "getSolanaPrice", nil)
	assert.Equal(t, msgRateLimited, out)
}

func TestTrendingTokens(t *testing.T) {
	u, srv := newUpstream(t)
	u.mux.HandleFunc("GET /coins/markets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, []map[string]any{{"id": "bonk", "name": "Bonk", "symbol": "bonk", "current_price": 0.000021, "price_change_percentage_24h": 4.2}})
	})
	out := call(t, newSession(t, srv.URL, false), "getTrendingSolanaTokens", nil)
	assert.Contains(t, out, "1. Bonk (BONK) - $0.000021 📈 4.20% 24h")
}

func TestTopTokensMissingKey(t *testing.T) {
	_, srv := newUpstream(t)
	out := call(t, newSession(t, srv.URL, false), "getTopTokens", map[string]any{"limit": float64(3)})
	assert.Equal(t, msgMissingKey, out)
}

func TestTokenInfo(t *testing.T) {
	u, srv := newUpstream(t)
	u.mux.HandleFunc("GET /token/{mint}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("mint") != market.USDCMint {
			writeJSON(w, 404, map[string]any{})
			return
		}
		writeJSON(w, 200, map[string]any{"name": "USD Coin", "symbol": "USDC", "daily_volume": 1000.5, "extensions": map[string]any{"coingeckoId": "usd-coin"}})
	})
	s := newSession(t, srv.URL, false)

	out := call(t, s, "getTokenInfo", map[string]any{"mint": market.USDCMint})
	assert.Contains(t, out, "USD Coin (USDC)")
	assert.Contains(t, out, "CoinGecko ID: usd-coin")
	assert.Contains(t, out, "$1000.50")

	out = call(t, s, "getTokenInfo", map[string]any{"mint": someAddress})
	assert.Contains(t, out, "never heard of 9xQe...VFin")

	out = call(t, s, "getTokenInfo", map[string]any{"mint": "nope"})
	assert.Equal(t, msgInvalidAddress, out)
}

func TestWalletBalance(t *testing.T) {
	u, srv := newUpstream(t)
	s := newSession(t, srv.URL, false)

	out := call(t, s, "getWalletBalance", map[string]any{"address": someAddress})
	assert.Contains(t, out, "2.5000 SOL")
	assert.Contains(t, out, "(worth $468.55)")
	assert.Contains(t, out, "Every SOL counts")

	u.rpc["getBalance"] = map[string]any{"value": 0}
	out = call(t, s, "getWalletBalance", map[string]any{"address": someAddress})
	assert.Contains(t, out, "2.5000 SOL", "served from the balance cache")
}

// The model splits the arguments of getWalletBalance across two events; the
// handler, not the dispatcher, rejects the address.
func TestWalletBalanceScenarioThroughDispatcher(t *testing.T) {
	_, srv := newUpstream(t)
	d := dispatch.New(NewRegistry(newSession(t, srv.URL, false)), slog.New(slog.NewTextHandler(io.Discard, nil)))

	var chunks []string
	err := d.Run(context.Background(), llm.NewSliceStream(
		llm.Call("getWalletBalance", `{"addr`),
		llm.Call("", `ess":"BADADDR"}`),
		llm.Text(""),
	), func(c string) { chunks = append(chunks, c) })
	require.NoError(t, err)
	assert.Equal(t, []string{msgInvalidAddress}, chunks)
}

func TestAgentWallet(t *testing.T) {
	_, srv := newUpstream(t)

	out := call(t, newSession(t, srv.URL, false), "getAgentWallet", nil)
	assert.Equal(t, msgNoWallet, out)

	s := newSession(t, srv.URL, true)
	out = call(t, s, "getAgentWallet", nil)
	assert.Contains(t, out, s.Wallet.Address())
	assert.Contains(t, out, "2.5000 SOL")
}

func TestSendSOL(t *testing.T) {
	_, srv := newUpstream(t)
	s := newSession(t, srv.URL, true)

	out := call(t, s, "sendSOL", map[string]any{"recipient": someAddress, "amount": 0.5})
	assert.Contains(t, out, "Sending 0.5 SOL to 9xQe...VFin")
	assert.Contains(t, out, "Signature: ")

	out = call(t, s, "sendSOL", map[string]any{"recipient": someAddress, "amount": float64(5)})
	assert.Contains(t, out, msgInsufficient)

	out = call(t, s, "sendSOL", map[string]any{"recipient": "0xdead", "amount": 1.0})
	assert.Equal(t, msgInvalidAddress, out)
}

func TestSwapSolToToken(t *testing.T) {
	u, srv := newUpstream(t)
	s := newSession(t, srv.URL, true)

	u.mux.HandleFunc("GET /quote", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{
			"inputMint": market.SOLMint, "outputMint": market.USDCMint,
			"inAmount": r.URL.Query().Get("amount"), "outAmount": "93710000", "priceImpactPct": "0.01",
			"routePlan": []map[string]any{{"swapInfo": map[string]any{"label": "Orca"}}},
		})
	})
	u.mux.HandleFunc("POST /swap", func(w http.ResponseWriter, r *http.Request) {
		msg, err := solana.BuildTransfer(s.Wallet.PublicKey(), solana.SystemProgramID, 1, base58.Encode(make([]byte, 32)))
		require.NoError(t, err)
		tx, err := solana.NewUnsigned(msg)
		require.NoError(t, err)
		writeJSON(w, 200, map[string]any{"swapTransaction": base64.StdEncoding.EncodeToString(tx)})
	})

	out := call(t, s, "swapSolToToken", map[string]any{"amount": 0.5})
	assert.Contains(t, out, "~93.710000 USDC via Orca")
	assert.Contains(t, out, "Swap confirmed!")

	out = call(t, s, "swapSolToToken", map[string]any{"amount": float64(10)})
	assert.Equal(t, msgInsufficient, out)
}

func TestSwapQuoteBeyondInt64(t *testing.T) {
	u, srv := newUpstream(t)
	s := newSession(t, srv.URL, true)
	u.mux.HandleFunc("GET /quote", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{
			"inputMint": market.SOLMint, "outputMint": market.USDCMint,
			"inAmount": r.URL.Query().Get("amount"), "outAmount": "18446744073709551615", "priceImpactPct": "0",
		})
	})
	u.mux.HandleFunc("POST /swap", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 500, map[string]any{"error": "unavailable"})
	})

	out := call(t, s, "swapSolToToken", map[string]any{"amount": 0.5})
	assert.Contains(t, out, "~18446744073709.551615 USDC")
	assert.NotContains(t, out, "~-")
}

func TestSendSOLUnconfirmed(t *testing.T) {
	u, srv := newUpstream(t)
	u.rpc["getSignatureStatuses"] = map[string]any{"value": []any{nil}}

	s := newSession(t, srv.URL, false)
	s.Mainnet = solana.NewClient(srv.URL+"/rpc",
		solana.WithMinInterval(time.Nanosecond),
		solana.WithPollInterval(time.Millisecond),
		solana.WithConfirmTimeout(20*time.Millisecond))
	w, err := wallet.FromMnemonic(testMnemonic, s.Mainnet, s.Balances)
	require.NoError(t, err)
	s.Wallet = w

	out := call(t, s, "sendSOL", map[string]any{"recipient": someAddress, "amount": 0.5})
	assert.Contains(t, out, "Sending 0.5 SOL")
	assert.True(t, strings.HasSuffix(out, msgUnconfirmed))
}

func TestLendingRates(t *testing.T) {
	u, srv := newUpstream(t)
	u.mux.HandleFunc("GET /protocols/rates", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"data": []map[string]any{
			{"protocol": "drift", "rates": map[string]any{market.USDCMint: map[string]any{"CURRENT": "7.5"}}},
			{"protocol": "kamino", "rates": map[string]any{market.USDCMint: map[string]any{"CURRENT": "9.25"}}},
		}})
	})
	out := call(t, newSession(t, srv.URL, false), "getLendingRates", nil)
	assert.Less(t, strings.Index(out, "kamino: 9.25%"), strings.Index(out, "drift: 7.50%"))
	assert.Contains(t, out, "kamino leads the pack")
}

func TestJitoRewards(t *testing.T) {
	u, srv := newUpstream(t)
	u.mux.HandleFunc("POST /mev_rewards", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Epoch int64 `json:"epoch"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Epoch != 600 {
			writeJSON(w, 404, map[string]any{})
			return
		}
		writeJSON(w, 200, map[string]any{"epoch": 600, "total_network_mev_lamports": 2_500_000_000, "jito_stake_weight_lamports": 0, "mev_reward_per_lamport": 0.5})
	})
	s := newSession(t, srv.URL, false)

	out := call(t, s, "getJitoMevRewards", map[string]any{"epoch": float64(600)})
	assert.Contains(t, out, "epoch 600")
	assert.Contains(t, out, "Total network MEV: 2.5000 SOL")

	out = call(t, s, "getJitoMevRewards", map[string]any{"epoch": float64(999)})
	assert.Equal(t, msgNotFound, out)
}

func TestMintNFT(t *testing.T) {
	u, srv := newUpstream(t)
	u.mux.HandleFunc("POST /collections/{id}/nfts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"id": "nft-42", "onChain": map[string]any{"status": "pending"}})
	})
	s := newSession(t, srv.URL, false)

	out := call(t, s, "mintNFT", map[string]any{"recipient": someAddress, "name": "Speed", "image": "https://x/y.png"})
	assert.Contains(t, out, "Mint ID: nft-42 (status: pending)")

	out = call(t, s, "mintNFT", map[string]any{"recipient": someAddress, "name": "Speed", "image": "ftp://x"})
	assert.Contains(t, out, "http(s) URL")

	out = call(t, s, "mintNFT", map[string]any{"recipient": "bad", "name": "Speed", "image": "https://x"})
	assert.Equal(t, msgInvalidAddress, out)
}

func TestRequestDevnetAirdrop(t *testing.T) {
	u, srv := newUpstream(t)
	s := newSession(t, srv.URL, false)

	out := call(t, s, "requestDevnetAirdrop", map[string]any{"address": someAddress})
	assert.Contains(t, out, "1 devnet SOL delivered to 9xQe...VFin")
	assert.Contains(t, out, "airdropSig")

	u.devnet["requestAirdrop"] = &solana.RPCError{Code: 429, Message: "airdrop request limit reached"}
	out = call(t, s, "requestDevnetAirdrop", map[string]any{"address": someAddress})
	assert.Contains(t, out, "airdrop limit")
}

func TestReviewTransaction(t *testing.T) {
	u, srv := newUpstream(t)
	s := newSession(t, srv.URL, false)
	sig := base58.Encode(bytes.Repeat([]byte{0xff}, 64))

	out := call(t, s, "reviewTransaction", map[string]any{"hash": "0x" + strings.Repeat("ab", 32)})
	assert.Contains(t, out, "Ethereum transaction")

	out = call(t, s, "reviewTransaction", map[string]any{"hash": "short"})
	assert.Contains(t, out, "doesn't look like a valid transaction hash")

	u.rpc["getTransaction"] = nil
	out = call(t, s, "reviewTransaction", map[string]any{"hash": sig})
	assert.Contains(t, out, "Transaction not found!")

	u.rpc["getTransaction"] = map[string]any{
		"blockTime": 1_700_000_000,
		"meta":      map[string]any{"err": nil, "fee": 5000},
		"transaction": map[string]any{"message": map[string]any{"instructions": []any{
			map[string]any{"program": "system", "parsed": map[string]any{
				"type": "transfer",
				"info": map[string]any{"source": someAddress, "destination": market.USDCMint, "lamports": 1_500_000_000},
			}},
		}}},
	}
	out = call(t, s, "reviewTransaction", map[string]any{"hash": sig})
	assert.Contains(t, out, "Status: Success ✅")
	assert.Contains(t, out, "Amount: 1.500000 SOL")
	assert.Contains(t, out, "From: 9xQe...VFin")
	assert.Contains(t, out, "To: EPjF...Dt1v")
	assert.Contains(t, out, "Network Fee: 0.000005 SOL")
}
