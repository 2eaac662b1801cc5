package planfile_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ravi-parthasarathy/sdcflow/internal/planfile"
	"github.com/ravi-parthasarathy/sdcflow/pkg/fieldmap"
)

const fullPlan = `
plan "sub-01_task-rest" {
  use_syn      = true
  force_syn    = false
  on_ambiguous = "error"
  threads      = 8
  template     = "MNI152NLin2009cAsym"
  bold_pe_dir  = "j-"
  demean       = true

  inputs {
    name_source          = "sub-01_task-rest_bold.nii.gz"
    bold_reference       = "boldref.nii.gz"
    bold_reference_brain = "boldref_brain.nii.gz"
    bold_mask            = "bold_mask.nii.gz"
    t1_brain             = "t1_brain.nii.gz"
    t1_segmentation      = "t1_seg.nii.gz"
  }

  fieldmap "epi" {
    files                    = { epi = "dir-AP_epi.nii.gz" }
    phase_encoding_direction = "j-"
  }

  fieldmap "phasediff" {
    files = {
      phasediff  = "phasediff.nii.gz"
      magnitude2 = "mag2.nii.gz"
      magnitude1 = "mag1.nii.gz"
    }
  }

  fieldmap "fieldmap" {
    files = { fieldmap = "fmap.nii.gz", magnitude = "mag.nii.gz" }
  }

  fieldmap "syn" {}

  fieldmap "b0map" {
    files = { b0 = "exotic.nii.gz" }
  }
}
`

func TestParse_FullPlan(t *testing.T) {
	p, err := planfile.Parse([]byte(fullPlan), "plan.hcl")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Name != "sub-01_task-rest" {
		t.Errorf("name = %q", p.Name)
	}
	if !p.UseSyn || p.ForceSyn {
		t.Errorf("flags = use_syn=%v force_syn=%v, want true/false", p.UseSyn, p.ForceSyn)
	}
	if p.Threads != 8 {
		t.Errorf("threads = %d, want 8", p.Threads)
	}

	in := p.BuildInputs()
	if in.NameSource != "sub-01_task-rest_bold.nii.gz" {
		t.Errorf("name_source = %q", in.NameSource)
	}
	if in.Template != "MNI152NLin2009cAsym" || in.BoldPhaseEncodingDirection != "j-" {
		t.Errorf("template/pe_dir = %q/%q", in.Template, in.BoldPhaseEncodingDirection)
	}
	if !in.Demean {
		t.Error("demean not carried through")
	}
	if in.T1ToTemplateInverseTransform != "" {
		t.Errorf("absent input decoded as %q, want empty", in.T1ToTemplateInverseTransform)
	}
}

func TestDescriptors_Mapping(t *testing.T) {
	p, err := planfile.Parse([]byte(fullPlan), "plan.hcl")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	descs, skipped, err := p.Descriptors()
	if err != nil {
		t.Fatalf("Descriptors: %v", err)
	}
	if !reflect.DeepEqual(skipped, []string{"b0map"}) {
		t.Errorf("skipped = %v, want [b0map]", skipped)
	}
	if len(descs) != 4 {
		t.Fatalf("descriptors = %d, want 4", len(descs))
	}

	epi, ok := descs[0].(fieldmap.EPI)
	if !ok {
		t.Fatalf("descs[0] is %T, want EPI", descs[0])
	}
	if epi.EPIFile != "dir-AP_epi.nii.gz" || epi.PhaseEncodingDirection != "j-" {
		t.Errorf("epi = %+v", epi)
	}

	pd, ok := descs[1].(fieldmap.PhaseDiff)
	if !ok {
		t.Fatalf("descs[1] is %T, want PhaseDiff", descs[1])
	}
	// Magnitudes collected in sorted role order regardless of declaration.
	if !reflect.DeepEqual(pd.MagnitudeFiles, []string{"mag1.nii.gz", "mag2.nii.gz"}) {
		t.Errorf("magnitudes = %v", pd.MagnitudeFiles)
	}

	fm, ok := descs[2].(fieldmap.DirectFieldmap)
	if !ok {
		t.Fatalf("descs[2] is %T, want DirectFieldmap", descs[2])
	}
	if fm.FieldmapFile != "fmap.nii.gz" || fm.MagnitudeFile != "mag.nii.gz" {
		t.Errorf("fieldmap = %+v", fm)
	}

	if _, ok := descs[3].(fieldmap.Syn); !ok {
		t.Fatalf("descs[3] is %T, want Syn", descs[3])
	}
}

func TestTieBreak_Values(t *testing.T) {
	cases := map[string]fieldmap.TieBreak{
		"":      fieldmap.TieFirstDeclared,
		"first": fieldmap.TieFirstDeclared,
		"error": fieldmap.TieError,
		"ERROR": fieldmap.TieError,
	}
	for raw, want := range cases {
		p := &planfile.Plan{OnAmbiguous: raw}
		got, err := p.TieBreak()
		if err != nil {
			t.Errorf("TieBreak(%q): %v", raw, err)
			continue
		}
		if got != want {
			t.Errorf("TieBreak(%q) = %v, want %v", raw, got, want)
		}
	}

	p := &planfile.Plan{OnAmbiguous: "pick-one"}
	if _, err := p.TieBreak(); err == nil {
		t.Error("expected error for unknown on_ambiguous value")
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := planfile.Parse([]byte(`threads = 3`), "plan.hcl"); err == nil {
		t.Error("expected error for document without plan block")
	}
	if _, err := planfile.Parse([]byte(`plan "x" { fieldmap "epi" {} } garbage`), "plan.hcl"); err == nil {
		t.Error("expected error for malformed HCL")
	}
}

func TestDescriptors_MissingRequiredRole(t *testing.T) {
	src := `plan "x" {
  fieldmap "phasediff" {
    files = { magnitude1 = "m" }
  }
}`
	p, err := planfile.Parse([]byte(src), "plan.hcl")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, _, err := p.Descriptors(); err == nil {
		t.Error("expected error for phasediff block without files.phasediff")
	}
}

func TestLoad_FromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.hcl")
	if err := os.WriteFile(path, []byte(fullPlan), 0o600); err != nil {
		t.Fatalf("write plan: %v", err)
	}

	p, err := planfile.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name != "sub-01_task-rest" {
		t.Errorf("name = %q", p.Name)
	}

	if _, err := planfile.Load(filepath.Join(dir, "missing.hcl")); err == nil {
		t.Error("expected error for missing file")
	}
}
