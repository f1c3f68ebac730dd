package domain

import (
	"strconv"

	"github.com/fd1az/multiprice-oracle/internal/apperror"
)

// InclusionMask selects adapter families: bit0 registry (and its buffered
// variant), bit1 cl-twap, bit2 cl-spot, bit3 cp-a, bit4 cp-b.
type InclusionMask uint

// MaskAll enables every family and is the largest valid mask.
const MaskAll InclusionMask = 1<<NumFamilies - 1

// MaskOf builds a mask from families.
func MaskOf(families ...Family) InclusionMask {
	var m InclusionMask
	for _, f := range families {
		m |= 1 << f
	}
	return m
}

// Validate rejects masks with bits beyond the five families.
func (m InclusionMask) Validate() error {
	if m > MaskAll {
		return InvalidParameter(apperror.MsgInclusionBitmapInvalid, "mask="+strconv.FormatUint(uint64(m), 10))
	}
	return nil
}

// Has reports whether f is enabled.
func (m InclusionMask) Has(f Family) bool {
	return m&(1<<f) != 0
}

// Families returns the enabled families in canonical order.
func (m InclusionMask) Families() []Family {
	var out []Family
	for f := Family(0); f < NumFamilies; f++ {
		if m.Has(f) {
			out = append(out, f)
		}
	}
	return out
}
