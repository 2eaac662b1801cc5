// Package planfile loads HCL plan files describing one functional run: the
// discovered field-map acquisitions, the SyN override flags, and the outer
// artifacts available to the assembler.
package planfile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/ravi-parthasarathy/sdcflow/pkg/fieldmap"
	"github.com/ravi-parthasarathy/sdcflow/pkg/sdc"
)

// File is the root of a plan document.
type File struct {
	Plan *Plan `hcl:"plan,block"`
}

// Plan describes one run's correction inputs.
type Plan struct {
	Name        string `hcl:"name,label"`
	UseSyn      bool   `hcl:"use_syn,optional"`
	ForceSyn    bool   `hcl:"force_syn,optional"`
	OnAmbiguous string `hcl:"on_ambiguous,optional"` // "first" (default) or "error"
	Threads     int    `hcl:"threads,optional"`
	Template    string `hcl:"template,optional"`
	BoldPEDir   string `hcl:"bold_pe_dir,optional"`
	Demean      bool   `hcl:"demean,optional"`

	Inputs    *InputsBlock    `hcl:"inputs,block"`
	Fieldmaps []FieldmapBlock `hcl:"fieldmap,block"`
}

// InputsBlock names the available outer artifacts; absent attributes mean
// the artifact was not produced upstream.
type InputsBlock struct {
	NameSource                   string `hcl:"name_source,optional"`
	BoldReference                string `hcl:"bold_reference,optional"`
	BoldReferenceBrain           string `hcl:"bold_reference_brain,optional"`
	BoldMask                     string `hcl:"bold_mask,optional"`
	Fmap                         string `hcl:"fmap,optional"`
	FmapReference                string `hcl:"fmap_reference,optional"`
	FmapMask                     string `hcl:"fmap_mask,optional"`
	T1Brain                      string `hcl:"t1_brain,optional"`
	T1Segmentation               string `hcl:"t1_segmentation,optional"`
	T1ToTemplateInverseTransform string `hcl:"t1_to_template_inverse_transform,optional"`
	AffineTransform              string `hcl:"affine_transform,optional"`
}

// FieldmapBlock is one discovered acquisition. The block label is the type
// tag; files maps role names to file identifiers.
type FieldmapBlock struct {
	Type                   string    `hcl:"type,label"`
	Files                  cty.Value `hcl:"files,optional"`
	PhaseEncodingDirection string    `hcl:"phase_encoding_direction,optional"`
}

// Load reads and decodes a plan file from disk.
func Load(path string) (*Plan, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", path, diags.Error())
	}
	return decode(f.Body)
}

// Parse decodes a plan from an in-memory HCL document.
func Parse(src []byte, filename string) (*Plan, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", filename, diags.Error())
	}
	return decode(f.Body)
}

func decode(body hcl.Body) (*Plan, error) {
	var file File
	if diags := gohcl.DecodeBody(body, nil, &file); diags.HasErrors() {
		return nil, fmt.Errorf("decode plan: %s", diags.Error())
	}
	if file.Plan == nil {
		return nil, fmt.Errorf("plan file contains no plan block")
	}
	return file.Plan, nil
}

// Descriptors converts the plan's fieldmap blocks into typed descriptors.
// Blocks with unrecognized type tags are skipped and returned by name so the
// caller can warn about them.
func (p *Plan) Descriptors() ([]fieldmap.Descriptor, []string, error) {
	var descs []fieldmap.Descriptor
	var skipped []string

	for i, fb := range p.Fieldmaps {
		files, err := fb.fileRoles()
		if err != nil {
			return nil, nil, fmt.Errorf("fieldmap block %d (%s): %w", i, fb.Type, err)
		}

		switch fieldmap.Type(fb.Type) {
		case fieldmap.TypeEPI:
			if files["epi"] == "" {
				return nil, nil, fmt.Errorf("fieldmap block %d: epi acquisition needs files.epi", i)
			}
			descs = append(descs, fieldmap.EPI{
				EPIFile:                files["epi"],
				PhaseEncodingDirection: fb.PhaseEncodingDirection,
			})
		case fieldmap.TypeFieldmap:
			if files["fieldmap"] == "" {
				return nil, nil, fmt.Errorf("fieldmap block %d: fieldmap acquisition needs files.fieldmap", i)
			}
			descs = append(descs, fieldmap.DirectFieldmap{
				FieldmapFile:  files["fieldmap"],
				MagnitudeFile: files["magnitude"],
			})
		case fieldmap.TypePhaseDiff:
			if files["phasediff"] == "" {
				return nil, nil, fmt.Errorf("fieldmap block %d: phasediff acquisition needs files.phasediff", i)
			}
			descs = append(descs, fieldmap.PhaseDiff{
				PhaseDiffFile:  files["phasediff"],
				MagnitudeFiles: magnitudeRoles(files),
			})
		case fieldmap.TypeSyn:
			descs = append(descs, fieldmap.Syn{})
		default:
			skipped = append(skipped, fb.Type)
		}
	}
	return descs, skipped, nil
}

// fileRoles flattens the files attribute into role → identifier.
func (fb *FieldmapBlock) fileRoles() (map[string]string, error) {
	roles := make(map[string]string)
	if fb.Files == cty.NilVal || fb.Files.IsNull() {
		return roles, nil
	}
	ty := fb.Files.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("files must be a map of role to file identifier")
	}
	for role, v := range fb.Files.AsValueMap() {
		if v.Type() != cty.String || v.IsNull() {
			return nil, fmt.Errorf("files.%s must be a string", role)
		}
		roles[role] = v.AsString()
	}
	return roles, nil
}

// magnitudeRoles collects magnitude* entries in sorted role order.
func magnitudeRoles(files map[string]string) []string {
	var roles []string
	for role := range files {
		if strings.HasPrefix(role, "magnitude") {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)
	mags := make([]string, len(roles))
	for i, role := range roles {
		mags[i] = files[role]
	}
	return mags
}

// TieBreak maps the on_ambiguous setting to a policy.
func (p *Plan) TieBreak() (fieldmap.TieBreak, error) {
	switch strings.ToLower(p.OnAmbiguous) {
	case "", "first":
		return fieldmap.TieFirstDeclared, nil
	case "error":
		return fieldmap.TieError, nil
	default:
		return 0, fmt.Errorf("unknown on_ambiguous value %q: use first or error", p.OnAmbiguous)
	}
}

// BuildInputs assembles the sdc.Inputs value for this plan.
func (p *Plan) BuildInputs() sdc.Inputs {
	in := sdc.Inputs{
		Template:                   p.Template,
		BoldPhaseEncodingDirection: p.BoldPEDir,
		Threads:                    p.Threads,
		Demean:                     p.Demean,
	}
	if p.Inputs != nil {
		in.NameSource = p.Inputs.NameSource
		in.BoldReference = p.Inputs.BoldReference
		in.BoldReferenceBrain = p.Inputs.BoldReferenceBrain
		in.BoldMask = p.Inputs.BoldMask
		in.Fmap = p.Inputs.Fmap
		in.FmapReference = p.Inputs.FmapReference
		in.FmapMask = p.Inputs.FmapMask
		in.T1Brain = p.Inputs.T1Brain
		in.T1Segmentation = p.Inputs.T1Segmentation
		in.T1ToTemplateInverseTransform = p.Inputs.T1ToTemplateInverseTransform
		in.AffineTransform = p.Inputs.AffineTransform
	}
	return in
}
