package chainclient

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Fee tier multipliers, applied to the network-reported base fee or gas
// price. These are heuristics tuned for wallet UX, not guarantees.
var (
	baseMultipliers     = [3]int64{90, 100, 120} // percent
	priorityMultipliers = [3]int64{80, 100, 150} // percent
	estimatedSeconds    = [3]uint64{120, 60, 30}
)

// FeeTier is one speed option for a transaction.
type FeeTier struct {
	// Legacy chains.
	GasPrice *big.Int `json:"gas_price,omitempty"`
	// Fee-market (EIP-1559) chains.
	MaxFeePerGas         *big.Int `json:"max_fee_per_gas,omitempty"`
	MaxPriorityFeePerGas *big.Int `json:"max_priority_fee_per_gas,omitempty"`

	EstimatedSeconds uint64 `json:"estimated_seconds"`
}

// FeeEstimate carries the three tiers offered to the user. Values are
// scaled snapshots of what the network reported at call time; actual
// inclusion speed is not guaranteed.
type FeeEstimate struct {
	Low     FeeTier `json:"low"`
	Medium  FeeTier `json:"medium"`
	High    FeeTier `json:"high"`
	EIP1559 bool    `json:"eip1559"`
}

func scale(v *big.Int, percent int64) *big.Int {
	out := new(big.Int).Mul(v, big.NewInt(percent))
	return out.Div(out, big.NewInt(100))
}

// EstimateFee builds the tier table from the network's current fee data.
// EIP-1559 chains scale the latest base fee and suggested priority fee;
// legacy chains scale eth_gasPrice.
func (c *Client) EstimateFee(ctx context.Context) (*FeeEstimate, error) {
	if !c.cfg.SupportsEIP1559 {
		price, err := c.GasPrice(ctx)
		if err != nil {
			return nil, err
		}
		est := &FeeEstimate{}
		for i, tier := range []*FeeTier{&est.Low, &est.Medium, &est.High} {
			tier.GasPrice = scale(price, baseMultipliers[i])
			tier.EstimatedSeconds = estimatedSeconds[i]
		}
		return est, nil
	}

	var head struct {
		BaseFeePerGas hexutil.Big `json:"baseFeePerGas"`
	}
	if err := c.Call(ctx, &head, "eth_getBlockByNumber", "latest", false); err != nil {
		return nil, err
	}
	var tip hexutil.Big
	if err := c.Call(ctx, &tip, "eth_maxPriorityFeePerGas"); err != nil {
		// Older nodes lack the method; fall back to a 1 gwei tip.
		tip = hexutil.Big(*big.NewInt(1_000_000_000))
	}

	base := head.BaseFeePerGas.ToInt()
	priority := tip.ToInt()

	est := &FeeEstimate{EIP1559: true}
	for i, tier := range []*FeeTier{&est.Low, &est.Medium, &est.High} {
		tier.MaxPriorityFeePerGas = scale(priority, priorityMultipliers[i])
		tier.MaxFeePerGas = scale(base, baseMultipliers[i])
		tier.EstimatedSeconds = estimatedSeconds[i]
	}
	return est, nil
}
