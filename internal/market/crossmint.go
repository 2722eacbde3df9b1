package market

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/michaelbrown/ibrl/internal/solana"
)

const defaultCrossmintURL = "https://crossmint.com/api/2022-06-09"

// ErrInvalidImageURL is returned when an NFT image is not an http(s) URL.
var ErrInvalidImageURL = errors.New("image must be an http(s) URL")

// NFTRequest describes a compressed NFT to mint.
type NFTRequest struct {
	Recipient   string `json:"recipient"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

// Validate checks the recipient address and image URL.
func (r NFTRequest) Validate() error {
	if !solana.ValidateAddress(r.Recipient) {
		return fmt.Errorf("%w: %q", solana.ErrInvalidAddress, r.Recipient)
	}
	if !strings.HasPrefix(r.Image, "http") {
		return ErrInvalidImageURL
	}
	return nil
}

// MintResult is Crossmint's acknowledgement of a mint.
type MintResult struct {
	ID       string `json:"id"`
	ActionID string `json:"actionId"`
	OnChain  struct {
		Status string `json:"status"`
		Chain  string `json:"chain"`
	} `json:"onChain"`
}

// Crossmint mints NFTs into a fixed collection.
type Crossmint struct {
	base
	collection string
}

// NewCrossmint creates a client minting into collection.
func NewCrossmint(baseURL, collection string, opts ...Option) *Crossmint {
	if baseURL == "" {
		baseURL = defaultCrossmintURL
	}
	return &Crossmint{base: newBase("crossmint", baseURL, 0, opts), collection: collection}
}

// MintNFT mints a compressed NFT to the request's recipient.
func (c *Crossmint) MintNFT(ctx context.Context, nft NFTRequest) (*MintResult, error) {
	if c.apiKey == "" || c.collection == "" {
		return nil, ErrMissingAPIKey
	}
	if err := nft.Validate(); err != nil {
		return nil, err
	}
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var result MintResult
	resp, err := req.
		SetHeader("Content-Type", "application/json").
		SetHeader("X-API-KEY", c.apiKey).
		SetPathParam("collection", c.collection).
		SetBody(map[string]any{
			"recipient": "solana:" + nft.Recipient,
			"metadata": map[string]string{
				"name":        strings.TrimSpace(nft.Name),
				"image":       nft.Image,
				"description": strings.TrimSpace(nft.Description),
			},
			"compressed":          true,
			"reuploadLinkedFiles": false,
		}).
		SetResult(&result).
		Post("/collections/{collection}/nfts")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return &result, nil
}
