package workflow

import "github.com/ravi-parthasarathy/sdcflow/pkg/fieldmap"

// Factory constructs sub-workflow handles, one per correction strategy.
// Implementations live in the builders sub-package; the interface is defined
// here so that the assembler can use it without creating an import cycle.
// Each returned handle's port names are a stable contract: renaming a port
// is a breaking change to every caller that wires it.
type Factory interface {
	// Pepolar builds the blip-up/blip-down estimator from the full EPI
	// group. Ports: in {bold_reference}; out {corrected_reference,
	// warp_field, report_artifact}.
	Pepolar(epis []fieldmap.EPI, threads int) (*Subworkflow, error)

	// DirectFieldmap builds the estimator for a directly measured B0 map.
	// Ports: out {fmap, fmap_reference, fmap_mask}.
	DirectFieldmap(fm fieldmap.DirectFieldmap, threads int) (*Subworkflow, error)

	// PhaseDifference builds the phase-difference estimator with the same
	// output-port contract as DirectFieldmap.
	PhaseDifference(pd fieldmap.PhaseDiff, threads int) (*Subworkflow, error)

	// FieldmapUnwarp builds the strategy-agnostic unwarp stage. Ports:
	// in {fmap, fmap_reference, fmap_mask}; out {corrected_reference,
	// warp_field, corrected_mask}.
	FieldmapUnwarp(threads int, demean bool) (*Subworkflow, error)

	// SynBased builds the fieldmap-less SyN estimator. Ports: in {t1_brain,
	// t1_segmentation, t1_to_template_inverse_transform, bold_reference};
	// out {corrected_reference, warp_field, warp_report}.
	SynBased(template, phaseEncodingDirection string, threads int) (*Subworkflow, error)

	// Report builds the before/after reportlet stage. Ports: in
	// {segmentation, name_source, pre_correction_reference,
	// affine_transform, post_correction_reference}; out {report_artifact}.
	Report(threads int) (*Subworkflow, error)
}
