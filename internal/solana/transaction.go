package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TokenTransfer describes an SPL token movement inside a transaction.
type TokenTransfer struct {
	Amount string
	Mint   string
	Symbol string
}

// TxDetails is a human-oriented summary of a confirmed transaction.
type TxDetails struct {
	Signature     string
	Timestamp     time.Time
	Success       bool
	Fee           decimal.Decimal // SOL
	Lamports      uint64          // native amount moved, zero if none
	Sender        string
	Receiver      string
	TokenTransfer *TokenTransfer
}

// Status renders the outcome the way explorers do.
func (t *TxDetails) Status() string {
	if t.Success {
		return "Success"
	}
	return "Failed"
}

type parsedTx struct {
	BlockTime *int64 `json:"blockTime"`
	Meta      *struct {
		Err               json.RawMessage `json:"err"`
		Fee               uint64          `json:"fee"`
		PreBalances       []uint64        `json:"preBalances"`
		PostBalances      []uint64        `json:"postBalances"`
		PostTokenBalances []struct {
			Mint string `json:"mint"`
		} `json:"postTokenBalances"`
	} `json:"meta"`
	Transaction struct {
		Message struct {
			AccountKeys []struct {
				Pubkey string `json:"pubkey"`
			} `json:"accountKeys"`
			Instructions []struct {
				Program string          `json:"program"`
				Parsed  json.RawMessage `json:"parsed"`
			} `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
}

type parsedInstruction struct {
	Type string `json:"type"`
	Info struct {
		Source      string `json:"source"`
		Destination string `json:"destination"`
		Authority   string `json:"authority"`
		Lamports    uint64 `json:"lamports"`
		Amount      string `json:"amount"`
		Mint        string `json:"mint"`
		TokenAmount *struct {
			UIAmountString string `json:"uiAmountString"`
		} `json:"tokenAmount"`
	} `json:"info"`
}

// GetTransaction fetches and summarises a transaction by signature.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*TxDetails, error) {
	params := []any{signature, map[string]any{
		"encoding":                       "jsonParsed",
		"commitment":                     c.commitment,
		"maxSupportedTransactionVersion": 0,
	}}
	var raw json.RawMessage
	if err := c.call(ctx, "getTransaction", params, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, signature)
	}

	var tx parsedTx
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("decoding transaction: %w", err)
	}
	return summarize(signature, &tx), nil
}

func summarize(signature string, tx *parsedTx) *TxDetails {
	d := &TxDetails{Signature: signature, Success: true}
	if tx.BlockTime != nil {
		d.Timestamp = time.Unix(*tx.BlockTime, 0).UTC()
	}
	if tx.Meta != nil {
		d.Success = len(tx.Meta.Err) == 0 || string(tx.Meta.Err) == "null"
		d.Fee = ToSOL(tx.Meta.Fee)
	}

	for _, ix := range tx.Transaction.Message.Instructions {
		var p parsedInstruction
		if len(ix.Parsed) == 0 || json.Unmarshal(ix.Parsed, &p) != nil {
			continue
		}
		switch {
		case ix.Program == "system" && p.Type == "transfer":
			d.Lamports = p.Info.Lamports
			d.Sender = p.Info.Source
			d.Receiver = p.Info.Destination
			return d
		case ix.Program == "spl-token" && (p.Type == "transfer" || p.Type == "transferChecked"):
			tt := &TokenTransfer{Amount: p.Info.Amount, Mint: p.Info.Mint}
			if p.Info.TokenAmount != nil {
				tt.Amount = p.Info.TokenAmount.UIAmountString
			}
			if tt.Mint == "" && tx.Meta != nil && len(tx.Meta.PostTokenBalances) > 0 {
				tt.Mint = tx.Meta.PostTokenBalances[0].Mint
			}
			d.TokenTransfer = tt
			d.Sender = p.Info.Authority
			if d.Sender == "" {
				d.Sender = p.Info.Source
			}
			d.Receiver = p.Info.Destination
			return d
		}
	}

	// No recognised transfer: fall back to what the fee payer spent beyond the fee.
	keys := tx.Transaction.Message.AccountKeys
	if tx.Meta != nil && len(tx.Meta.PreBalances) > 0 && len(tx.Meta.PostBalances) > 0 && len(keys) > 1 {
		pre, post := tx.Meta.PreBalances[0], tx.Meta.PostBalances[0]
		if pre > post+tx.Meta.Fee {
			d.Lamports = pre - post - tx.Meta.Fee
			d.Sender = keys[0].Pubkey
			d.Receiver = keys[1].Pubkey
		}
	}
	return d
}
