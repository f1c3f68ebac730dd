// Package domain contains the types of the watch context: the pairs quoted
// on every block and the reports produced for them.
package domain

import (
	"fmt"
	"strings"

	"github.com/fd1az/multiprice-oracle/internal/asset"
)

// Pair is one watched conversion: AmountIn of In priced in Out.
type Pair struct {
	In       *asset.Asset
	Out      *asset.Asset
	AmountIn asset.Amount
}

func (p Pair) String() string {
	return p.AmountIn.String() + " -> " + p.Out.Symbol()
}

// Label is the short IN/OUT form used as a key.
func (p Pair) Label() string {
	return p.In.Symbol() + "/" + p.Out.Symbol()
}

// PairSpec is a parsed but unresolved "IN/OUT:AMOUNT" entry.
type PairSpec struct {
	In     string
	Out    string
	Amount string
}

// ParsePairSpec splits "IN/OUT:AMOUNT". Tokens are symbols or addresses;
// the amount is in whole units of IN.
func ParsePairSpec(s string) (PairSpec, error) {
	tokens, amount, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || amount == "" {
		return PairSpec{}, fmt.Errorf("watch pair %q: want IN/OUT:AMOUNT", s)
	}
	in, out, ok := strings.Cut(tokens, "/")
	if !ok || in == "" || out == "" {
		return PairSpec{}, fmt.Errorf("watch pair %q: want IN/OUT:AMOUNT", s)
	}
	return PairSpec{In: strings.TrimSpace(in), Out: strings.TrimSpace(out), Amount: strings.TrimSpace(amount)}, nil
}
