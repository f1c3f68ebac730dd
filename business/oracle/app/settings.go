package app

import (
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/internal/config"
)

// Settings is the immutable deployment configuration of the engine.
// Accessors return copies.
type Settings struct {
	feedRegistry   common.Address
	clFactory      common.Address
	clPoolFee      uint32
	clFeeTiers     []uint32
	clOracle       common.Address
	cps            []domain.ConstantProduct
	weth           common.Address
	usdEquivalents []common.Address
	usdSet         map[common.Address]struct{}
	feedAliases    map[common.Address]common.Address
	feedMaxAge     time.Duration
	strict         bool
}

// NewSettings snapshots cfg. cfg is expected to have passed Validate.
func NewSettings(cfg *config.OracleConfig) *Settings {
	s := &Settings{
		feedRegistry:   cfg.FeedRegistryHex(),
		clFactory:      cfg.CLFactoryHex(),
		clPoolFee:      cfg.CLPoolFee,
		clOracle:       cfg.CLOracleHex(),
		weth:           cfg.WETHHex(),
		usdEquivalents: cfg.USDEquivalentsHex(),
		feedAliases:    cfg.FeedAliasesHex(),
		feedMaxAge:     cfg.FeedMaxAge,
		strict:         cfg.StrictSources,
		cps: []domain.ConstantProduct{
			{Source: domain.SourceCPA, Name: cfg.CPA.Name, Factory: cfg.CPA.FactoryHex()},
			{Source: domain.SourceCPB, Name: cfg.CPB.Name, Factory: cfg.CPB.FactoryHex()},
		},
	}

	// Canonical tier first, then the remaining configured tiers in order.
	s.clFeeTiers = []uint32{cfg.CLPoolFee}
	for _, fee := range cfg.CLFeeTiers {
		if !slices.Contains(s.clFeeTiers, fee) {
			s.clFeeTiers = append(s.clFeeTiers, fee)
		}
	}

	s.usdSet = make(map[common.Address]struct{}, len(s.usdEquivalents))
	for _, a := range s.usdEquivalents {
		s.usdSet[a] = struct{}{}
	}
	return s
}

func (s *Settings) Registry() common.Address { return s.feedRegistry }
func (s *Settings) CLFactory() common.Address { return s.clFactory }
func (s *Settings) CLPoolFee() uint32 { return s.clPoolFee }
func (s *Settings) CLOracle() common.Address { return s.clOracle }
func (s *Settings) WETH() common.Address { return s.weth }
func (s *Settings) StrictSources() bool { return s.strict }
func (s *Settings) FeedMaxAge() time.Duration { return s.feedMaxAge }

// CLFeeTiers returns the fee tiers searched for a pool, canonical first.
func (s *Settings) CLFeeTiers() []uint32 {
	return slices.Clone(s.clFeeTiers)
}

// ConstantProducts returns the cp-a and cp-b deployments.
func (s *Settings) ConstantProducts() []domain.ConstantProduct {
	return slices.Clone(s.cps)
}

// CPFactories returns the constant-product factory addresses.
func (s *Settings) CPFactories() []common.Address {
	out := make([]common.Address, len(s.cps))
	for i, cp := range s.cps {
		out[i] = cp.Factory
	}
	return out
}

// USDEquivalents returns the stable tokens priced at par with USD.
func (s *Settings) USDEquivalents() []common.Address {
	return slices.Clone(s.usdEquivalents)
}

// IsUSDEquivalent reports membership in the USD-equivalent set.
func (s *Settings) IsUSDEquivalent(token common.Address) bool {
	_, ok := s.usdSet[token]
	return ok
}

// FeedAlias returns the registry denomination token is priced as, if any.
func (s *Settings) FeedAlias(token common.Address) (common.Address, bool) {
	d, ok := s.feedAliases[token]
	return d, ok
}

// poolBases are the intermediate assets pool routes may pass through.
func (s *Settings) poolBases() []common.Address {
	return append([]common.Address{s.weth}, s.usdEquivalents...)
}
