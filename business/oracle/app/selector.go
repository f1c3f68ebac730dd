package app

import (
	"context"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
	"github.com/fd1az/multiprice-oracle/internal/logger"
)

type selector struct {
	settings *Settings
	feed     *feedAdapter
	cl       *clAdapter
	cp       *cpAdapter
	log      logger.LoggerInterface
}

type familyOutcome struct {
	candidates []domain.Candidate
	err        error
}

// validateCombined checks the parameters of a combined query before any read.
func validateCombined(req domain.CombinedRequest) (domain.BufferFraction, error) {
	if err := req.Mask.Validate(); err != nil {
		return domain.BufferFraction{}, err
	}
	buf, err := domain.NewBufferFraction(req.Buffer)
	if err != nil {
		return domain.BufferFraction{}, err
	}
	if req.Mask.Has(domain.FamilyCLTwap) {
		if err := req.Window.Validate(); err != nil {
			return domain.BufferFraction{}, err
		}
	}
	return buf, nil
}

// combined evaluates every enabled family against q and selects the
// smallest candidate. Families run concurrently; their outcomes are read
// back in canonical order so the result and any returned error do not
// depend on scheduling.
func (s *selector) combined(ctx context.Context, q *query, req domain.CombinedRequest, buf domain.BufferFraction) (*domain.AggregateResult, error) {
	var outcomes [domain.NumFamilies]familyOutcome

	var g errgroup.Group
	for _, f := range req.Mask.Families() {
		g.Go(func() error {
			outcomes[f] = s.evaluate(ctx, q, req, f, buf)
			return nil
		})
	}
	_ = g.Wait()

	res := &domain.AggregateResult{Snapshot: q.at}
	for _, src := range domain.AllSources() {
		res.Candidates[src] = domain.Candidate{Source: src, Amount: new(big.Int)}
	}

	for _, f := range req.Mask.Families() {
		o := outcomes[f]
		if o.err != nil {
			if s.settings.StrictSources() || !domain.IsDroppable(o.err) {
				return nil, o.err
			}
			s.log.Warn(ctx, "price source dropped", "source", f.String(), "error", o.err)
			continue
		}
		for _, c := range o.candidates {
			res.Candidates[c.Source] = c
		}
	}

	found := false
	for _, c := range res.Candidates {
		if !c.Present {
			continue
		}
		if !found || c.Amount.Cmp(res.Value) < 0 {
			res.Value = new(big.Int).Set(c.Amount)
			res.Selected = c.Source
			found = true
		}
	}
	if !found {
		return nil, domain.SourceUnavailable(apperror.MsgNoSourceEnabled, "no candidate computed")
	}
	return res, nil
}

func (s *selector) evaluate(ctx context.Context, q *query, req domain.CombinedRequest, f domain.Family, buf domain.BufferFraction) familyOutcome {
	in, amount, out := req.In, req.AmountIn, req.Out

	single := func(src domain.SourceID, v *big.Int, r domain.Route, err error) familyOutcome {
		if err != nil {
			return familyOutcome{err: err}
		}
		return familyOutcome{candidates: []domain.Candidate{{Source: src, Amount: v, Present: true, Route: r}}}
	}

	switch f {
	case domain.FamilyRegistry:
		v, r, err := s.feed.quote(ctx, q, in, amount, out)
		if err != nil {
			return familyOutcome{err: err}
		}
		return familyOutcome{candidates: []domain.Candidate{
			{Source: domain.SourceRegistry, Amount: v, Present: true, Route: r},
			{Source: domain.SourceRegistryBuffered, Amount: buf.Apply(v), Present: true, Route: r},
		}}
	case domain.FamilyCLTwap:
		v, r, err := s.cl.twapQuote(ctx, q, in, amount, out, req.Window)
		return single(domain.SourceCLTwap, v, r, err)
	case domain.FamilyCLSpot:
		v, r, err := s.cl.spotQuote(ctx, q, in, amount, out)
		return single(domain.SourceCLSpot, v, r, err)
	default:
		for _, cp := range s.settings.ConstantProducts() {
			if cp.Source.Family() == f {
				v, r, err := s.cp.spotQuote(ctx, q, cp.Factory, in, amount, out)
				return single(cp.Source, v, r, err)
			}
		}
		return familyOutcome{err: domain.SourceUnavailable(apperror.MsgNoSourceEnabled, f.String())}
	}
}
