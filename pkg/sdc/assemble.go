// Package sdc assembles the susceptibility-distortion-correction workflow
// graph for one functional run: it takes the strategy picked by
// fieldmap.Select and wires the matching sub-workflows into a composed graph
// with a fixed outer port contract, identical across every branch.
package sdc

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ravi-parthasarathy/sdcflow/pkg/fieldmap"
	"github.com/ravi-parthasarathy/sdcflow/pkg/workflow"
)

// Strategy labels, set once on the assembled graph.
const (
	labelPepolar   = "PEB/PEPOLAR (phase-encoding based / PE-POLARity)"
	labelFieldmap  = "FMB (fieldmap-based)"
	labelPhaseDiff = "FMB (phase-difference-based)"
	labelSyn       = "FLB (fieldmap-less SyN)"
)

// Inputs names the per-run artifacts available to the assembler. File fields
// are opaque identifiers; an empty string means the artifact is absent.
// Template, the phase-encoding direction, the thread budget, and the demean
// flag are parameters rather than ports.
type Inputs struct {
	NameSource                   string
	BoldReference                string
	BoldReferenceBrain           string
	BoldMask                     string
	Fmap                         string
	FmapReference                string
	FmapMask                     string
	T1Brain                      string
	T1Segmentation               string
	T1ToTemplateInverseTransform string
	AffineTransform              string

	Template                   string
	BoldPhaseEncodingDirection string
	Threads                    int
	Demean                     bool
}

// OuterInputs returns the fixed outer input-port declarations. Every
// assembled graph exposes exactly these, regardless of branch.
func OuterInputs() []workflow.Port {
	return []workflow.Port{
		workflow.In("name_source", workflow.KindIdentifier),
		workflow.In("bold_reference", workflow.KindImage),
		workflow.In("bold_reference_brain", workflow.KindImage),
		workflow.In("bold_mask", workflow.KindMask),
		workflow.In("fmap", workflow.KindFieldmap),
		workflow.In("fmap_reference", workflow.KindImage),
		workflow.In("fmap_mask", workflow.KindMask),
		workflow.In("t1_brain", workflow.KindImage),
		workflow.In("t1_segmentation", workflow.KindSegmentation),
		workflow.In("t1_to_template_inverse_transform", workflow.KindTransform),
		workflow.In("affine_transform", workflow.KindTransform),
	}
}

// OuterOutputs returns the fixed outer output-port declarations.
func OuterOutputs() []workflow.Port {
	return []workflow.Port{
		workflow.Out("bold_reference", workflow.KindImage),
		workflow.Out("bold_mask", workflow.KindMask),
		workflow.Out("bold_reference_brain", workflow.KindImage),
		workflow.Out("out_warp", workflow.KindWarp),
		workflow.Out("out_report", workflow.KindReport),
		workflow.Out("syn_sdc_report", workflow.KindReport),
	}
}

// outer addresses a port on the graph's own boundary.
func outer(port string) workflow.Endpoint { return workflow.Endpoint{Port: port} }

// at addresses a port on an attached sub-workflow.
func at(node *workflow.Subworkflow, port string) workflow.Endpoint {
	return workflow.Endpoint{Node: node.Name, Port: port}
}

// Build assembles the composed graph for one correction decision. It is a
// pure construction step: single-threaded, no suspension points, no I/O
// beyond the optional diagnostic logger (nil discards). The returned graph
// has passed the connectivity check; a graph that fails it is never
// returned.
func Build(in Inputs, dec fieldmap.Decision, factory workflow.Factory, logger *slog.Logger) (*workflow.Graph, error) {
	if factory == nil {
		return nil, fmt.Errorf("factory must not be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Selection filters unknown types, but a Decision can be built by hand.
	if !dec.Bypass && !fieldmap.Known(dec.PrimaryType) {
		return nil, &UnsupportedFieldmapTypeError{Type: dec.PrimaryType}
	}
	for _, d := range dec.Primary {
		if !fieldmap.Known(d.Type()) {
			return nil, &UnsupportedFieldmapTypeError{Type: d.Type()}
		}
	}

	if dec.Bypass {
		g := workflow.New("sdc_bypass_wf", OuterInputs(), OuterOutputs())
		for _, port := range []string{"bold_reference", "bold_mask", "bold_reference_brain"} {
			g.Connect(outer(port), outer(port))
		}
		if err := workflow.ValidateErr(g); err != nil {
			return nil, err
		}
		logger.Info("assembled sdc workflow", "graph", g.Name, "strategy", "none")
		return g, nil
	}

	if err := checkRequiredInputs(in, dec); err != nil {
		return nil, err
	}

	g := workflow.New("sdc_wf", OuterInputs(), OuterOutputs())

	// primary is the node whose corrected_reference feeds the report stage
	// and, except on the supplementary-SyN path, the outer outputs.
	var primary *workflow.Subworkflow

	switch dec.PrimaryType {
	case fieldmap.TypeEPI:
		epis, err := epiGroup(dec.Primary)
		if err != nil {
			return nil, err
		}
		pepolar, err := factory.Pepolar(epis, in.Threads)
		if err != nil {
			return nil, fmt.Errorf("pepolar subworkflow: %w", err)
		}
		if err := g.Attach(pepolar); err != nil {
			return nil, err
		}
		g.Connect(outer("bold_reference"), at(pepolar, "bold_reference"))
		g.Connect(at(pepolar, "corrected_reference"), outer("bold_reference"))
		g.Connect(at(pepolar, "warp_field"), outer("out_warp"))
		// The estimator produces no mask or brain-extracted reference.
		g.Connect(outer("bold_mask"), outer("bold_mask"))
		g.Connect(outer("bold_reference_brain"), outer("bold_reference_brain"))
		g.StrategyLabel = labelPepolar
		primary = pepolar

	case fieldmap.TypeFieldmap, fieldmap.TypePhaseDiff:
		estimator, label, err := buildEstimator(dec, factory, in.Threads)
		if err != nil {
			return nil, err
		}
		unwarp, err := factory.FieldmapUnwarp(in.Threads, in.Demean)
		if err != nil {
			return nil, fmt.Errorf("unwarp subworkflow: %w", err)
		}
		if err := g.Attach(estimator); err != nil {
			return nil, err
		}
		if err := g.Attach(unwarp); err != nil {
			return nil, err
		}
		for _, port := range []string{"fmap", "fmap_reference", "fmap_mask"} {
			g.Connect(at(estimator, port), at(unwarp, port))
		}
		g.Connect(at(unwarp, "corrected_reference"), outer("bold_reference"))
		g.Connect(at(unwarp, "warp_field"), outer("out_warp"))
		g.Connect(at(unwarp, "corrected_mask"), outer("bold_mask"))
		g.Connect(outer("bold_reference_brain"), outer("bold_reference_brain"))
		g.StrategyLabel = label
		primary = unwarp

	case fieldmap.TypeSyn:
		syn, err := attachSyn(g, in, factory)
		if err != nil {
			return nil, err
		}
		g.Connect(at(syn, "corrected_reference"), outer("bold_reference"))
		g.Connect(at(syn, "warp_field"), outer("out_warp"))
		g.Connect(at(syn, "warp_report"), outer("syn_sdc_report"))
		g.Connect(outer("bold_mask"), outer("bold_mask"))
		g.Connect(outer("bold_reference_brain"), outer("bold_reference_brain"))
		g.StrategyLabel = labelSyn
		primary = syn
	}

	// Supplementary SyN augments a real field-map correction: only its warp
	// report surfaces, the primary's outputs stand.
	if dec.SupplementarySyn {
		syn, err := attachSyn(g, in, factory)
		if err != nil {
			return nil, err
		}
		g.Connect(at(syn, "warp_report"), outer("syn_sdc_report"))
	}

	report, err := factory.Report(in.Threads)
	if err != nil {
		return nil, fmt.Errorf("report subworkflow: %w", err)
	}
	if err := g.Attach(report); err != nil {
		return nil, err
	}
	g.Connect(outer("t1_segmentation"), at(report, "segmentation"))
	g.Connect(outer("name_source"), at(report, "name_source"))
	g.Connect(outer("bold_reference"), at(report, "pre_correction_reference"))
	g.Connect(outer("affine_transform"), at(report, "affine_transform"))
	g.Connect(at(primary, "corrected_reference"), at(report, "post_correction_reference"))
	g.Connect(at(report, "report_artifact"), outer("out_report"))

	if err := workflow.ValidateErr(g); err != nil {
		return nil, err
	}

	logger.Info("assembled sdc workflow",
		"graph", g.Name,
		"strategy", g.StrategyLabel,
		"supplementary_syn", dec.SupplementarySyn,
		"subworkflows", len(g.Subworkflows),
		"edges", len(g.Edges))
	return g, nil
}

// buildEstimator instantiates the field-map estimator matching the winning
// descriptor and returns it with the graph's strategy label.
func buildEstimator(dec fieldmap.Decision, factory workflow.Factory, threads int) (*workflow.Subworkflow, string, error) {
	if len(dec.Primary) != 1 {
		return nil, "", fmt.Errorf("estimator strategy %q expects one descriptor, got %d", dec.PrimaryType, len(dec.Primary))
	}
	switch d := dec.Primary[0].(type) {
	case fieldmap.DirectFieldmap:
		sw, err := factory.DirectFieldmap(d, threads)
		if err != nil {
			return nil, "", fmt.Errorf("fieldmap subworkflow: %w", err)
		}
		return sw, labelFieldmap, nil
	case fieldmap.PhaseDiff:
		sw, err := factory.PhaseDifference(d, threads)
		if err != nil {
			return nil, "", fmt.Errorf("phasediff subworkflow: %w", err)
		}
		return sw, labelPhaseDiff, nil
	default:
		return nil, "", &UnsupportedFieldmapTypeError{Type: d.Type()}
	}
}

// attachSyn instantiates the SyN estimator and wires its T1-space and
// reference inputs from the outer boundary.
func attachSyn(g *workflow.Graph, in Inputs, factory workflow.Factory) (*workflow.Subworkflow, error) {
	syn, err := factory.SynBased(in.Template, in.BoldPhaseEncodingDirection, in.Threads)
	if err != nil {
		return nil, fmt.Errorf("syn subworkflow: %w", err)
	}
	if err := g.Attach(syn); err != nil {
		return nil, err
	}
	g.Connect(outer("t1_brain"), at(syn, "t1_brain"))
	g.Connect(outer("t1_segmentation"), at(syn, "t1_segmentation"))
	g.Connect(outer("t1_to_template_inverse_transform"), at(syn, "t1_to_template_inverse_transform"))
	g.Connect(outer("bold_reference_brain"), at(syn, "bold_reference"))
	return syn, nil
}

// epiGroup narrows the primary descriptor group to EPI descriptors.
func epiGroup(descs []fieldmap.Descriptor) ([]fieldmap.EPI, error) {
	epis := make([]fieldmap.EPI, 0, len(descs))
	for _, d := range descs {
		e, ok := d.(fieldmap.EPI)
		if !ok {
			return nil, &UnsupportedFieldmapTypeError{Type: d.Type()}
		}
		epis = append(epis, e)
	}
	return epis, nil
}

// checkRequiredInputs verifies, before anything is instantiated, that the
// outer inputs the chosen branch wires are actually available.
func checkRequiredInputs(in Inputs, dec fieldmap.Decision) error {
	present := map[string]bool{
		"name_source":                      in.NameSource != "",
		"bold_reference":                   in.BoldReference != "",
		"bold_reference_brain":             in.BoldReferenceBrain != "",
		"bold_mask":                        in.BoldMask != "",
		"t1_brain":                         in.T1Brain != "",
		"t1_segmentation":                  in.T1Segmentation != "",
		"t1_to_template_inverse_transform": in.T1ToTemplateInverseTransform != "",
		"affine_transform":                 in.AffineTransform != "",
		"template":                         in.Template != "",
	}

	// The report stage needs these on every non-bypass branch.
	required := []string{"name_source", "bold_reference", "t1_segmentation", "affine_transform"}
	if dec.PrimaryType == fieldmap.TypeSyn || dec.SupplementarySyn {
		required = append(required,
			"t1_brain", "t1_to_template_inverse_transform", "bold_reference_brain", "template")
	}

	var missing []string
	for _, name := range required {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &ConfigurationError{Strategy: string(dec.PrimaryType), Missing: missing}
	}
	return nil
}
