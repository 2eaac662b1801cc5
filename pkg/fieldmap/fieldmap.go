// Package fieldmap models discovered field-map acquisitions and the policy
// that picks a susceptibility-distortion-correction (SDC) strategy from them.
package fieldmap

// Type identifies the kind of field-map acquisition a descriptor represents.
type Type string

const (
	TypeEPI       Type = "epi"
	TypeFieldmap  Type = "fieldmap"
	TypePhaseDiff Type = "phasediff"
	TypeSyn       Type = "syn"
)

// priority is the fixed precedence over acquisition types; lower ranks win.
// It is never mutated at runtime.
var priority = map[Type]int{
	TypeEPI:       0,
	TypeFieldmap:  1,
	TypePhaseDiff: 2,
	TypeSyn:       3,
}

// Known reports whether t appears in the priority table.
func Known(t Type) bool {
	_, ok := priority[t]
	return ok
}

// rank returns the priority rank of t. Callers must check Known first;
// unknown types rank below everything.
func rank(t Type) int {
	r, ok := priority[t]
	if !ok {
		return len(priority)
	}
	return r
}

// Descriptor is one discovered field-map acquisition. The set of
// implementations is closed: exactly one struct per acquisition type.
type Descriptor interface {
	Type() Type
	descriptor()
}

// EPI is a blip-up/blip-down acquisition used by the PEPOLAR strategy.
// A usable PEPOLAR set holds at least two EPI descriptors with opposing
// phase-encoding directions; grouping is the policy's job, not this type's.
type EPI struct {
	EPIFile                string
	PhaseEncodingDirection string
}

// DirectFieldmap is a directly measured B0 field map plus its magnitude image.
type DirectFieldmap struct {
	FieldmapFile  string
	MagnitudeFile string
}

// PhaseDiff is a phase-difference acquisition. MagnitudeFiles are kept in
// sorted role order (magnitude1, magnitude2, ...).
type PhaseDiff struct {
	PhaseDiffFile  string
	MagnitudeFiles []string
}

// Syn marks that the fieldmap-less SyN estimator is an allowed candidate.
// It carries no files; the strategy works from T1-space inputs alone.
type Syn struct{}

func (EPI) Type() Type            { return TypeEPI }
func (DirectFieldmap) Type() Type { return TypeFieldmap }
func (PhaseDiff) Type() Type      { return TypePhaseDiff }
func (Syn) Type() Type            { return TypeSyn }

func (EPI) descriptor()            {}
func (DirectFieldmap) descriptor() {}
func (PhaseDiff) descriptor()      {}
func (Syn) descriptor()            {}
