// Package domain holds the value types of the price oracle: sources, the
// inclusion mask, query parameters and results.
package domain

import "fmt"

// SourceID names one candidate of a combined quote. Values are declared in
// canonical evaluation order, which is also the tie-break order.
type SourceID int

const (
	SourceRegistry SourceID = iota
	SourceRegistryBuffered
	SourceCLTwap
	SourceCLSpot
	SourceCPA
	SourceCPB

	NumSources = 6
)

var sourceNames = [NumSources]string{
	"registry",
	"registry-buffered",
	"cl-twap",
	"cl-spot",
	"cp-a",
	"cp-b",
}

func (s SourceID) String() string {
	if s < 0 || int(s) >= NumSources {
		return fmt.Sprintf("source(%d)", int(s))
	}
	return sourceNames[s]
}

// MarshalText renders the canonical name.
func (s SourceID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSource resolves a canonical source name.
func ParseSource(name string) (SourceID, error) {
	for i, n := range sourceNames {
		if n == name {
			return SourceID(i), nil
		}
	}
	return 0, fmt.Errorf("unknown price source %q", name)
}

// AllSources returns every source in canonical order.
func AllSources() []SourceID {
	out := make([]SourceID, NumSources)
	for i := range out {
		out[i] = SourceID(i)
	}
	return out
}

// Family is one independently toggled adapter family. Its value is the
// bit position in an InclusionMask.
type Family uint

const (
	FamilyRegistry Family = iota
	FamilyCLTwap
	FamilyCLSpot
	FamilyCPA
	FamilyCPB

	NumFamilies = 5
)

// Family returns the adapter family that produces s. Both registry
// candidates belong to FamilyRegistry.
func (s SourceID) Family() Family {
	switch s {
	case SourceRegistry, SourceRegistryBuffered:
		return FamilyRegistry
	case SourceCLTwap:
		return FamilyCLTwap
	case SourceCLSpot:
		return FamilyCLSpot
	case SourceCPA:
		return FamilyCPA
	default:
		return FamilyCPB
	}
}

// Sources returns the candidates the family produces, in canonical order.
func (f Family) Sources() []SourceID {
	switch f {
	case FamilyRegistry:
		return []SourceID{SourceRegistry, SourceRegistryBuffered}
	case FamilyCLTwap:
		return []SourceID{SourceCLTwap}
	case FamilyCLSpot:
		return []SourceID{SourceCLSpot}
	case FamilyCPA:
		return []SourceID{SourceCPA}
	default:
		return []SourceID{SourceCPB}
	}
}

func (f Family) String() string {
	return f.Sources()[0].String()
}
