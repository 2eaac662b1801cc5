package fieldmap

import (
	"errors"
	"testing"
)

// fake is a descriptor whose type is absent from the priority table. It can
// only exist inside this package; Select must still ignore it.
type fake struct{}

func (fake) Type() Type  { return Type("b0map") }
func (fake) descriptor() {}

// ─── Priority invariant ───────────────────────────────────────────────────────

func TestSelect_EPIWinsRegardlessOfCompany(t *testing.T) {
	sets := [][]Descriptor{
		{EPI{EPIFile: "a", PhaseEncodingDirection: "j-"}},
		{PhaseDiff{PhaseDiffFile: "pd"}, EPI{EPIFile: "a", PhaseEncodingDirection: "j-"}},
		{Syn{}, DirectFieldmap{FieldmapFile: "fm"}, EPI{EPIFile: "a", PhaseEncodingDirection: "j-"}},
		{PhaseDiff{PhaseDiffFile: "pd"}, EPI{EPIFile: "a", PhaseEncodingDirection: "j-"}, EPI{EPIFile: "b", PhaseEncodingDirection: "j"}},
	}
	for i, descs := range sets {
		dec, err := Select(descs, false, false, TieFirstDeclared)
		if err != nil {
			t.Fatalf("set %d: Select: %v", i, err)
		}
		if dec.PrimaryType != TypeEPI {
			t.Errorf("set %d: primary = %q, want epi", i, dec.PrimaryType)
		}
		if dec.Bypass {
			t.Errorf("set %d: unexpected bypass", i)
		}
	}
}

func TestSelect_EPIGroupKeepsAllBlips(t *testing.T) {
	descs := []Descriptor{
		EPI{EPIFile: "ap", PhaseEncodingDirection: "j-"},
		PhaseDiff{PhaseDiffFile: "pd"},
		EPI{EPIFile: "pa", PhaseEncodingDirection: "j"},
	}
	dec, err := Select(descs, false, false, TieFirstDeclared)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(dec.Primary) != 2 {
		t.Fatalf("primary group = %d descriptors, want 2", len(dec.Primary))
	}
	for i, want := range []string{"ap", "pa"} {
		e, ok := dec.Primary[i].(EPI)
		if !ok {
			t.Fatalf("primary[%d] is %T, want EPI", i, dec.Primary[i])
		}
		if e.EPIFile != want {
			t.Errorf("primary[%d] = %q, want %q (declaration order)", i, e.EPIFile, want)
		}
	}
}

func TestSelect_FieldmapOutranksPhaseDiff(t *testing.T) {
	descs := []Descriptor{
		PhaseDiff{PhaseDiffFile: "pd"},
		DirectFieldmap{FieldmapFile: "fm"},
	}
	dec, err := Select(descs, false, false, TieFirstDeclared)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if dec.PrimaryType != TypeFieldmap {
		t.Errorf("primary = %q, want fieldmap", dec.PrimaryType)
	}
	if len(dec.Primary) != 1 {
		t.Fatalf("primary group = %d descriptors, want 1", len(dec.Primary))
	}
}

// ─── Behavior table ───────────────────────────────────────────────────────────

func TestSelect_BehaviorTable(t *testing.T) {
	withFmaps := []Descriptor{PhaseDiff{PhaseDiffFile: "pd"}}

	cases := []struct {
		name             string
		descs            []Descriptor
		useSyn, forceSyn bool
		wantBypass       bool
		wantPrimary      Type
		wantSupplement   bool
	}{
		{"fieldmaps with force_syn", withFmaps, false, true, false, TypePhaseDiff, true},
		{"fieldmaps with force_syn and use_syn", withFmaps, true, true, false, TypePhaseDiff, true},
		{"fieldmaps alone", withFmaps, false, false, false, TypePhaseDiff, false},
		{"none with force_syn", nil, false, true, false, TypeSyn, false},
		{"none with use_syn", nil, true, false, false, TypeSyn, false},
		{"none", nil, false, false, true, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dec, err := Select(tc.descs, tc.useSyn, tc.forceSyn, TieFirstDeclared)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if dec.Bypass != tc.wantBypass {
				t.Errorf("bypass = %v, want %v", dec.Bypass, tc.wantBypass)
			}
			if dec.PrimaryType != tc.wantPrimary {
				t.Errorf("primary = %q, want %q", dec.PrimaryType, tc.wantPrimary)
			}
			if dec.SupplementarySyn != tc.wantSupplement {
				t.Errorf("supplementary_syn = %v, want %v", dec.SupplementarySyn, tc.wantSupplement)
			}
		})
	}
}

func TestSelect_SynDescriptorIsPrimaryWhenAlone(t *testing.T) {
	dec, err := Select([]Descriptor{Syn{}}, false, false, TieFirstDeclared)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if dec.PrimaryType != TypeSyn {
		t.Errorf("primary = %q, want syn", dec.PrimaryType)
	}
	if dec.SupplementarySyn {
		t.Error("syn primary must not also be supplementary")
	}
	if len(dec.Primary) != 0 {
		t.Errorf("syn primary carries %d descriptors, want 0", len(dec.Primary))
	}
}

// ─── Unknown types ────────────────────────────────────────────────────────────

func TestSelect_UnknownTypesAreFiltered(t *testing.T) {
	// Only unrecognized descriptors present: treated as an empty set.
	dec, err := Select([]Descriptor{fake{}}, false, false, TieFirstDeclared)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !dec.Bypass {
		t.Error("expected bypass when only unrecognized types remain")
	}

	// Mixed: the unrecognized entry must not influence ranking.
	dec, err = Select([]Descriptor{fake{}, PhaseDiff{PhaseDiffFile: "pd"}}, false, false, TieFirstDeclared)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if dec.PrimaryType != TypePhaseDiff {
		t.Errorf("primary = %q, want phasediff", dec.PrimaryType)
	}
}

// ─── Tie-break ────────────────────────────────────────────────────────────────

func TestSelect_TieFirstDeclared(t *testing.T) {
	descs := []Descriptor{
		PhaseDiff{PhaseDiffFile: "first"},
		PhaseDiff{PhaseDiffFile: "second"},
	}
	dec, err := Select(descs, false, false, TieFirstDeclared)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	pd := dec.Primary[0].(PhaseDiff)
	if pd.PhaseDiffFile != "first" {
		t.Errorf("tie winner = %q, want first declared", pd.PhaseDiffFile)
	}
}

func TestSelect_TieError(t *testing.T) {
	descs := []Descriptor{
		PhaseDiff{PhaseDiffFile: "first"},
		PhaseDiff{PhaseDiffFile: "second"},
	}
	_, err := Select(descs, false, false, TieError)
	var ambig *AmbiguousFieldmapsError
	if !errors.As(err, &ambig) {
		t.Fatalf("err = %v, want AmbiguousFieldmapsError", err)
	}
	if ambig.Type != TypePhaseDiff || ambig.Count != 2 {
		t.Errorf("ambiguity = {%s %d}, want {phasediff 2}", ambig.Type, ambig.Count)
	}
}

func TestSelect_TieErrorNotTriggeredByEPIGroup(t *testing.T) {
	// Multiple EPI entries are a group, not an ambiguity.
	descs := []Descriptor{
		EPI{EPIFile: "ap", PhaseEncodingDirection: "j-"},
		EPI{EPIFile: "pa", PhaseEncodingDirection: "j"},
	}
	dec, err := Select(descs, false, false, TieError)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(dec.Primary) != 2 {
		t.Errorf("primary group = %d, want 2", len(dec.Primary))
	}
}

// ─── Purity ───────────────────────────────────────────────────────────────────

func TestSelect_DoesNotReorderInput(t *testing.T) {
	descs := []Descriptor{
		PhaseDiff{PhaseDiffFile: "pd"},
		EPI{EPIFile: "a", PhaseEncodingDirection: "j-"},
	}
	if _, err := Select(descs, false, false, TieFirstDeclared); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, ok := descs[0].(PhaseDiff); !ok {
		t.Error("Select reordered the caller's slice")
	}
}
