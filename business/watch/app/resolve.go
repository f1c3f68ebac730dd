package app

import (
	"context"
	"fmt"

	"github.com/fd1az/multiprice-oracle/business/watch/domain"
	"github.com/fd1az/multiprice-oracle/internal/asset"
)

// PairResolver turns "IN/OUT:AMOUNT" specs into pairs. Tokens are named by
// symbol or address through the asset registry; decimals always come from
// the token contract.
type PairResolver struct {
	registry *asset.Registry
	meta     TokenMetadata
}

// NewPairResolver creates a PairResolver.
func NewPairResolver(registry *asset.Registry, meta TokenMetadata) *PairResolver {
	return &PairResolver{registry: registry, meta: meta}
}

// Resolve resolves every spec or fails on the first bad one.
func (r *PairResolver) Resolve(ctx context.Context, specs []string) ([]domain.Pair, error) {
	pairs := make([]domain.Pair, 0, len(specs))
	for _, s := range specs {
		spec, err := domain.ParsePairSpec(s)
		if err != nil {
			return nil, err
		}
		in, err := r.asset(ctx, spec.In)
		if err != nil {
			return nil, fmt.Errorf("watch pair %q: %w", s, err)
		}
		out, err := r.asset(ctx, spec.Out)
		if err != nil {
			return nil, fmt.Errorf("watch pair %q: %w", s, err)
		}
		amount, err := asset.ParseString(in, spec.Amount)
		if err != nil {
			return nil, fmt.Errorf("watch pair %q: %w", s, err)
		}
		if !amount.IsPositive() {
			return nil, fmt.Errorf("watch pair %q: amount must be positive", s)
		}
		pairs = append(pairs, domain.Pair{In: in, Out: out, AmountIn: amount})
	}
	return pairs, nil
}

func (r *PairResolver) asset(ctx context.Context, ref string) (*asset.Asset, error) {
	addr, err := r.registry.Resolve(ref)
	if err != nil {
		return nil, err
	}
	decimals, err := r.meta.Decimals(ctx, addr)
	if err != nil {
		return nil, err
	}
	if decimals > asset.MaxDecimals {
		return nil, fmt.Errorf("token %s reports %d decimals", addr.Hex(), decimals)
	}
	if known, ok := r.registry.Get(addr); ok {
		return known.WithDecimals(decimals), nil
	}
	return asset.New(addr, "", decimals), nil
}
