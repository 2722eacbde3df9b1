package solana

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdcMint  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	someOwner = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
)

func TestValidateAddress(t *testing.T) {
	assert.True(t, ValidateAddress(usdcMint))
	assert.True(t, ValidateAddress("11111111111111111111111111111111"))
	assert.False(t, ValidateAddress("BADADDR"))
	assert.False(t, ValidateAddress("0x52908400098527886E0F7030069857D2E4169EE7"))
	assert.False(t, ValidateAddress(strings.Repeat("0", 40)), "0 is not in the base58 alphabet")
}

func TestValidateSignature(t *testing.T) {
	sig := base58.Encode(bytes.Repeat([]byte{0xff}, 64))
	assert.True(t, ValidateSignature(sig), "len %d", len(sig))
	assert.False(t, ValidateSignature(usdcMint))
}

func TestChainType(t *testing.T) {
	assert.Equal(t, ChainEthereum, ChainType("0xabc"))
	assert.Equal(t, ChainSolana, ChainType(usdcMint))
	assert.Equal(t, ChainInvalid, ChainType("nope"))
	assert.True(t, IsEthereumTxHash("0x"+strings.Repeat("a", 64)))
	assert.False(t, IsEthereumTxHash("0xabc"))
}

func TestParsePublicKey(t *testing.T) {
	pk, err := ParsePublicKey(usdcMint)
	require.NoError(t, err)
	assert.Equal(t, usdcMint, pk.String())

	_, err = ParsePublicKey("BADADDR")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	assert.Equal(t, "11111111111111111111111111111111", SystemProgramID.String())
	assert.Equal(t, "EPjF...Dt1v", Short(usdcMint))
	assert.Equal(t, "abc", Short("abc"))
}

func TestUnits(t *testing.T) {
	assert.True(t, ToSOL(1_500_000_000).Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, uint64(250_000_000), ToLamports(decimal.RequireFromString("0.25")))
	assert.Equal(t, uint64(1), ToLamports(decimal.RequireFromString("0.0000000006")))
	assert.Equal(t, uint64(0), ToLamports(decimal.RequireFromString("-1")))

	maxAmount := ^uint64(0)
	assert.Equal(t, "18446744073709.551615", FromBaseUnits(maxAmount, 6).String())
	assert.True(t, ToSOL(maxAmount).IsPositive())
}

func TestShortVecRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 127, 128, 300, 16383, 16384, 65535} {
		var b bytes.Buffer
		writeShortVec(&b, n)
		got, size, err := readShortVec(b.Bytes())
		require.NoError(t, err)
		assert.Equal(t, n, got)
		assert.Equal(t, b.Len(), size)
	}
}

func TestBuildAndSignTransfer(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var from PublicKey
	copy(from[:], pub)
	to, err := ParsePublicKey(someOwner)
	require.NoError(t, err)
	blockhash := base58.Encode(bytes.Repeat([]byte{9}, 32))

	msg, err := BuildTransfer(from, to, 42, blockhash)
	require.NoError(t, err)

	required, keys, err := messageKeys(msg)
	require.NoError(t, err)
	assert.Equal(t, 1, required)
	require.Len(t, keys, 3)
	assert.Equal(t, from, keys[0])
	assert.Equal(t, to, keys[1])
	assert.Equal(t, SystemProgramID, keys[2])

	unsigned, err := NewUnsigned(msg)
	require.NoError(t, err)
	signed, sig, err := SignTransaction(unsigned, priv)
	require.NoError(t, err)

	rawSig, err := base58.Decode(sig)
	require.NoError(t, err)
	assert.Equal(t, rawSig, signed[1:65])
	assert.True(t, ed25519.Verify(pub, msg, rawSig))
	assert.Equal(t, make([]byte, 64), unsigned[1:65], "input must not be modified")
}

func TestSignTransactionRejectsForeignKey(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(nil)
	_, other, _ := ed25519.GenerateKey(nil)
	var from PublicKey
	copy(from[:], pub)
	msg, err := BuildTransfer(from, SystemProgramID, 1, base58.Encode(make([]byte, 32)))
	require.NoError(t, err)
	unsigned, err := NewUnsigned(msg)
	require.NoError(t, err)

	_, _, err = SignTransaction(unsigned, other)
	assert.ErrorIs(t, err, ErrNotSigner)
}

func TestSignVersionedTransaction(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	var from PublicKey
	copy(from[:], pub)
	legacy, err := BuildTransfer(from, SystemProgramID, 5, base58.Encode(make([]byte, 32)))
	require.NoError(t, err)
	// v0 message: version prefix, same body, empty lookup table list.
	v0 := append([]byte{0x80}, legacy...)
	v0 = append(v0, 0)

	unsigned, err := NewUnsigned(v0)
	require.NoError(t, err)
	signed, _, err := SignTransaction(unsigned, priv)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(pub, v0, signed[1:65]))
}

// rpcServer answers JSON-RPC calls from a method → result table.
func rpcServer(t *testing.T, results map[string]any) (*httptest.Server, *[]string) {
	t.Helper()
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Method string `json:"method"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		methods = append(methods, req.Method)

		res, ok := results[req.Method]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "error": map[string]any{"code": -32601, "message": "method not found"}})
			return
		}
		if rpcErr, isErr := res.(*RPCError); isErr {
			json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "error": rpcErr})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": res})
	}))
	t.Cleanup(srv.Close)
	return srv, &methods
}

func testClient(url string) *Client {
	return NewClient(url, WithMinInterval(time.Nanosecond), WithPollInterval(time.Millisecond))
}

func TestClientBalances(t *testing.T) {
	srv, _ := rpcServer(t, map[string]any{
		"getBalance":       map[string]any{"context": map[string]any{"slot": 1}, "value": 2_500_000_000},
		"getAssetsByOwner": map[string]any{"nativeBalance": map[string]any{"lamports": 123}},
	})
	c := testClient(srv.URL)
	ctx := context.Background()

	lamports, err := c.GetBalance(ctx, someOwner)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000_000), lamports)

	native, err := c.GetNativeBalance(ctx, someOwner)
	require.NoError(t, err)
	assert.Equal(t, uint64(123), native)
}

func TestClientRPCError(t *testing.T) {
	srv, _ := rpcServer(t, map[string]any{
		"requestAirdrop": &RPCError{Code: 429, Message: "airdrop request limit reached"},
	})
	c := testClient(srv.URL)

	_, err := c.RequestAirdrop(context.Background(), someOwner, LamportsPerSOL)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.True(t, IsAirdropLimit(err))
	assert.False(t, IsAirdropLimit(errors.New("other")))
}

func TestClientSendAndConfirm(t *testing.T) {
	srv, methods := rpcServer(t, map[string]any{
		"sendTransaction":      "sig123",
		"getSignatureStatuses": map[string]any{"value": []any{map[string]any{"confirmationStatus": "confirmed", "err": nil}}},
	})
	c := testClient(srv.URL)
	ctx := context.Background()

	sig, err := c.SendTransaction(ctx, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "sig123", sig)
	require.NoError(t, c.ConfirmTransaction(ctx, sig))
	assert.Equal(t, []string{"sendTransaction", "getSignatureStatuses"}, *methods)
}

func TestConfirmTransactionFailure(t *testing.T) {
	srv, _ := rpcServer(t, map[string]any{
		"getSignatureStatuses": map[string]any{"value": []any{map[string]any{"confirmationStatus": "processed", "err": map[string]any{"InstructionError": []any{0, "Custom"}}}}},
	})
	err := testClient(srv.URL).ConfirmTransaction(context.Background(), "sig")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestConfirmTransactionHonoursContext(t *testing.T) {
	srv, _ := rpcServer(t, map[string]any{
		"getSignatureStatuses": map[string]any{"value": []any{nil}},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := testClient(srv.URL).ConfirmTransaction(ctx, "sig")
	require.Error(t, err)
	assert.NotNil(t, ctx.Err())
}

func TestConfirmTransactionTimesOut(t *testing.T) {
	srv, methods := rpcServer(t, map[string]any{
		"getSignatureStatuses": map[string]any{"value": []any{nil}},
	})
	c := NewClient(srv.URL,
		WithMinInterval(time.Nanosecond),
		WithPollInterval(time.Millisecond),
		WithConfirmTimeout(30*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- c.ConfirmTransaction(context.Background(), "sig") }()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrConfirmTimeout)
		assert.NotEmpty(t, *methods)
	case <-time.After(2 * time.Second):
		t.Fatal("ConfirmTransaction did not give up")
	}
}

func TestGetTransaction(t *testing.T) {
	blockTime := int64(1_700_000_000)
	srv, _ := rpcServer(t, map[string]any{
		"getTransaction": map[string]any{
			"blockTime": blockTime,
			"meta": map[string]any{
				"err": nil, "fee": 5000,
				"preBalances": []uint64{2_000_005_000, 0}, "postBalances": []uint64{1_000_000_000, 1_000_000_000},
			},
			"transaction": map[string]any{"message": map[string]any{
				"accountKeys": []any{map[string]any{"pubkey": someOwner}, map[string]any{"pubkey": usdcMint}},
				"instructions": []any{
					map[string]any{"program": "spl-memo", "parsed": "gm"},
					map[string]any{"program": "system", "parsed": map[string]any{
						"type": "transfer",
						"info": map[string]any{"source": someOwner, "destination": usdcMint, "lamports": 1_000_000_000},
					}},
				},
			}},
		},
	})

	d, err := testClient(srv.URL).GetTransaction(context.Background(), "sig")
	require.NoError(t, err)
	assert.True(t, d.Success)
	assert.Equal(t, "Success", d.Status())
	assert.Equal(t, uint64(1_000_000_000), d.Lamports)
	assert.Equal(t, someOwner, d.Sender)
	assert.Equal(t, usdcMint, d.Receiver)
	assert.True(t, d.Fee.Equal(decimal.RequireFromString("0.000005")))
	assert.Equal(t, time.Unix(blockTime, 0).UTC(), d.Timestamp)
}

func TestGetTransactionTokenTransfer(t *testing.T) {
	srv, _ := rpcServer(t, map[string]any{
		"getTransaction": map[string]any{
			"meta": map[string]any{"err": map[string]any{"x": 1}, "fee": 5000},
			"transaction": map[string]any{"message": map[string]any{
				"instructions": []any{map[string]any{"program": "spl-token", "parsed": map[string]any{
					"type": "transferChecked",
					"info": map[string]any{
						"authority": someOwner, "destination": usdcMint, "mint": usdcMint,
						"tokenAmount": map[string]any{"uiAmountString": "12.5"},
					},
				}}},
			}},
		},
	})

	d, err := testClient(srv.URL).GetTransaction(context.Background(), "sig")
	require.NoError(t, err)
	assert.False(t, d.Success)
	require.NotNil(t, d.TokenTransfer)
	assert.Equal(t, "12.5", d.TokenTransfer.Amount)
	assert.Equal(t, usdcMint, d.TokenTransfer.Mint)
	assert.Equal(t, someOwner, d.Sender)
}

func TestGetTransactionNotFound(t *testing.T) {
	srv, _ := rpcServer(t, map[string]any{"getTransaction": nil})
	_, err := testClient(srv.URL).GetTransaction(context.Background(), "sig")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestSendTransactionEncodesBase64(t *testing.T) {
	var got []any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Params []any `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		got = req.Params
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": "s"})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).SendTransaction(context.Background(), []byte("hello"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hello")), got[0])
}
