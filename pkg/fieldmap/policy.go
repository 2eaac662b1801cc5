package fieldmap

import (
	"fmt"
	"sort"
)

// TieBreak controls what Select does when several descriptors share the
// winning non-EPI type.
type TieBreak int

const (
	// TieFirstDeclared keeps the first descriptor in declaration order.
	TieFirstDeclared TieBreak = iota
	// TieError refuses to pick and returns an AmbiguousFieldmapsError.
	TieError
)

// AmbiguousFieldmapsError is returned when TieError is in effect and more
// than one descriptor of the winning type was discovered.
type AmbiguousFieldmapsError struct {
	Type  Type
	Count int
}

func (e *AmbiguousFieldmapsError) Error() string {
	return fmt.Sprintf("ambiguous field maps: %d descriptors of type %q compete for the same strategy", e.Count, e.Type)
}

// Decision is the outcome of strategy selection. Exactly one of Bypass or a
// non-empty primary strategy holds; SupplementarySyn is independent and may
// accompany any non-SyN primary.
type Decision struct {
	// Primary holds the descriptors the winning strategy consumes: the full
	// EPI group for PEPOLAR, a single descriptor for the estimator
	// strategies, and nil for the fieldmap-less SyN primary.
	Primary []Descriptor
	// PrimaryType is the winning strategy's type tag, or "" on bypass.
	PrimaryType Type
	// SupplementarySyn requests an additional SyN estimate alongside a real
	// field-map correction (force_syn with field maps present).
	SupplementarySyn bool
	// Bypass means no correction: inputs are forwarded to outputs untouched.
	Bypass bool
}

// Select ranks the discovered field maps and picks exactly one correction
// strategy:
//
//	field maps found, force_syn      → field maps + supplementary SyN
//	field maps found                 → field maps
//	none found, use_syn or force_syn → SyN
//	none found                      → bypass
//
// Descriptors whose type is missing from the priority table are ignored; if
// none remain the set is treated as empty. Select is a pure function of its
// inputs.
func Select(descriptors []Descriptor, useSyn, forceSyn bool, tie TieBreak) (Decision, error) {
	known := make([]Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if Known(d.Type()) {
			known = append(known, d)
		}
	}

	if len(known) == 0 {
		if useSyn || forceSyn {
			return Decision{PrimaryType: TypeSyn}, nil
		}
		return Decision{Bypass: true}, nil
	}

	// Stable sort keeps declaration order within each type.
	sort.SliceStable(known, func(i, j int) bool {
		return rank(known[i].Type()) < rank(known[j].Type())
	})
	winner := known[0].Type()

	dec := Decision{PrimaryType: winner}
	switch winner {
	case TypeEPI:
		// PEPOLAR consumes the whole blip-up/blip-down group.
		for _, d := range known {
			if d.Type() == TypeEPI {
				dec.Primary = append(dec.Primary, d)
			}
		}
	case TypeFieldmap, TypePhaseDiff:
		n := 0
		for _, d := range known {
			if d.Type() == winner {
				n++
			}
		}
		if n > 1 && tie == TieError {
			return Decision{}, &AmbiguousFieldmapsError{Type: winner, Count: n}
		}
		dec.Primary = []Descriptor{known[0]}
	case TypeSyn:
		// Fieldmap-less primary; no files to carry.
	}

	// SyN augments, never replaces, a real field-map correction.
	dec.SupplementarySyn = forceSyn && winner != TypeSyn
	return dec, nil
}
