package domain

import "github.com/ethereum/go-ethereum/common"

// Route records how a quote was composed.
type Route struct {
	Via  bool
	Base common.Address
}

// Direct is the route of a single-hop quote.
func Direct() Route { return Route{} }

// ViaBase is the route of a quote composed from in->base and base->out.
func ViaBase(base common.Address) Route {
	return Route{Via: true, Base: base}
}

func (r Route) String() string {
	if !r.Via {
		return "direct"
	}
	return "via " + r.Base.Hex()
}
