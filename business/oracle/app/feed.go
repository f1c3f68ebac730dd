package app

import (
	"context"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
	"github.com/fd1az/multiprice-oracle/internal/asset"
	"github.com/fd1az/multiprice-oracle/internal/config"
)

// Registry denominations. They are not contracts and carry no decimals of
// their own; amounts in them are kept at denominationDecimals.
var (
	DenominationUSD = common.HexToAddress(config.DenominationUSD)
	DenominationETH = common.HexToAddress(config.DenominationETH)
	DenominationBTC = common.HexToAddress(config.DenominationBTC)
)

const denominationDecimals = 18

// feedBases are tried in order when no feed prices a pair directly.
var feedBases = []common.Address{DenominationUSD, DenominationETH}

func isDenomination(a common.Address) bool {
	return a == DenominationUSD || a == DenominationETH || a == DenominationBTC
}

type feedAdapter struct {
	settings *Settings
	registry FeedRegistry
}

func newFeedAdapter(settings *Settings, registry FeedRegistry) *feedAdapter {
	return &feedAdapter{settings: settings, registry: registry}
}

// quote converts amount of in to out through registry answers.
func (f *feedAdapter) quote(ctx context.Context, q *query, in common.Address, amount *big.Int, out common.Address) (*big.Int, domain.Route, error) {
	return route(ctx, f.hop(q), in, amount, out, feedBases)
}

func (f *feedAdapter) hop(q *query) hopFunc {
	return func(ctx context.Context, in common.Address, amount *big.Int, out common.Address) (*big.Int, error) {
		denomIn, decIn, err := f.denominate(ctx, q, in)
		if err != nil {
			return nil, err
		}
		denomOut, decOut, err := f.denominate(ctx, q, out)
		if err != nil {
			return nil, err
		}

		if denomIn == denomOut {
			return asset.Rescale(amount, decIn, decOut), nil
		}

		// amount * answer * 10^decOut / (10^feedDecimals * 10^decIn)
		ans, err := f.answer(ctx, q, denomIn, denomOut)
		if err == nil {
			num := new(big.Int).Mul(ans.Answer, asset.Pow10(decOut))
			den := new(big.Int).Mul(asset.Pow10(ans.Decimals), asset.Pow10(decIn))
			return asset.MulDiv(amount, num, den), nil
		}
		if !domain.IsUnavailable(err) {
			return nil, err
		}

		// amount * 10^feedDecimals * 10^decOut / (answer * 10^decIn)
		inv, err := f.answer(ctx, q, denomOut, denomIn)
		if err != nil {
			return nil, err
		}
		num := new(big.Int).Mul(asset.Pow10(inv.Decimals), asset.Pow10(decOut))
		den := new(big.Int).Mul(inv.Answer, asset.Pow10(decIn))
		return asset.MulDiv(amount, num, den), nil
	}
}

// denominate maps token to the registry base it is priced as, with the
// decimals its amounts carry.
func (f *feedAdapter) denominate(ctx context.Context, q *query, token common.Address) (common.Address, uint8, error) {
	if isDenomination(token) {
		return token, denominationDecimals, nil
	}

	a, err := q.asset(ctx, token)
	if err != nil {
		return common.Address{}, 0, err
	}

	switch {
	case f.settings.IsUSDEquivalent(token):
		return DenominationUSD, a.Decimals(), nil
	default:
		if alias, ok := f.settings.FeedAlias(token); ok {
			return alias, a.Decimals(), nil
		}
		return token, a.Decimals(), nil
	}
}

func (f *feedAdapter) answer(ctx context.Context, q *query, base, quote common.Address) (domain.FeedAnswer, error) {
	ans, err := f.registry.LatestAnswer(ctx, q.at, base, quote)
	if err != nil {
		return domain.FeedAnswer{}, err
	}

	pair := base.Hex() + "/" + quote.Hex()
	if ans.Answer == nil || ans.Answer.Sign() <= 0 {
		return domain.FeedAnswer{}, domain.SourceUnavailable(apperror.MsgRateNotAvailable, "non-positive answer "+pair)
	}
	if ans.Decimals > asset.MaxDecimals {
		return domain.FeedAnswer{}, domain.SourceUnavailable(apperror.MsgDecimalsOutOfRange,
			pair+" reports "+strconv.Itoa(int(ans.Decimals))+" decimals")
	}
	if maxAge := f.settings.FeedMaxAge(); maxAge > 0 && q.at.Time > ans.UpdatedAt {
		if time.Duration(q.at.Time-ans.UpdatedAt)*time.Second > maxAge {
			return domain.FeedAnswer{}, domain.SourceUnavailable(apperror.MsgFeedStale, pair)
		}
	}
	return ans, nil
}
