package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const defaultJitoURL = "https://kobe.mainnet.jito.network/api/v1"

var (
	// ErrInvalidEpoch is returned for negative epochs.
	ErrInvalidEpoch = errors.New("invalid epoch")
	// ErrEpochNotFound is returned when Jito has no data for the epoch.
	ErrEpochNotFound = errors.New("epoch not found")
)

// MEVRewards is Jito's MEV summary for one epoch.
type MEVRewards struct {
	Epoch                   int64           `json:"epoch"`
	TotalNetworkMEVLamports uint64          `json:"total_network_mev_lamports"`
	JitoStakeWeightLamports uint64          `json:"jito_stake_weight_lamports"`
	MEVRewardPerLamport     decimal.Decimal `json:"mev_reward_per_lamport"`
}

// Jito reads MEV statistics from the Jito Kobe API.
type Jito struct {
	base
}

// NewJito creates a client; an empty baseURL selects the public API.
func NewJito(baseURL string, opts ...Option) *Jito {
	if baseURL == "" {
		baseURL = defaultJitoURL
	}
	return &Jito{base: newBase("jito", baseURL, 100*time.Millisecond, opts)}
}

// MEVRewards returns the rewards summary for epoch.
func (j *Jito) MEVRewards(ctx context.Context, epoch int64) (*MEVRewards, error) {
	if epoch < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidEpoch, epoch)
	}
	req, err := j.request(ctx)
	if err != nil {
		return nil, err
	}
	var body MEVRewards
	resp, err := req.
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]int64{"epoch": epoch}).
		SetResult(&body).
		Post("/mev_rewards")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %d", ErrEpochNotFound, epoch)
	}
	if err := j.check(resp, err); err != nil {
		return nil, err
	}
	return &body, nil
}
