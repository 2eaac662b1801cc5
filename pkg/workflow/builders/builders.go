// Package builders provides the default workflow.Factory. Each constructor
// returns an opaque handle declaring the strategy's port contract; the
// numerical pipelines behind the handles are implemented by the external
// execution engine.
package builders

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ravi-parthasarathy/sdcflow/pkg/fieldmap"
	"github.com/ravi-parthasarathy/sdcflow/pkg/workflow"
)

// Factory is the default sub-workflow factory.
type Factory struct{}

// New creates a Factory.
func New() *Factory { return &Factory{} }

var _ workflow.Factory = (*Factory)(nil)

// clampThreads normalises the per-node parallelism cap; the executor honors
// it as a ceiling, never a demand.
func clampThreads(threads int) int {
	if threads < 1 {
		return 1
	}
	return threads
}

// Pepolar builds the blip-up/blip-down estimator from the full EPI group.
// Every EPI descriptor must carry its phase-encoding direction; the method
// is meaningless without opposing polarities to compare.
func (f *Factory) Pepolar(epis []fieldmap.EPI, threads int) (*workflow.Subworkflow, error) {
	if len(epis) == 0 {
		return nil, fmt.Errorf("pepolar: no EPI acquisitions supplied")
	}
	files := make([]string, len(epis))
	dirs := make([]string, len(epis))
	for i, e := range epis {
		if e.EPIFile == "" {
			return nil, fmt.Errorf("pepolar: EPI descriptor %d has no file", i)
		}
		if e.PhaseEncodingDirection == "" {
			return nil, fmt.Errorf("pepolar: EPI file %q has no phase-encoding direction", e.EPIFile)
		}
		files[i] = e.EPIFile
		dirs[i] = e.PhaseEncodingDirection
	}
	return &workflow.Subworkflow{
		Name:     "pepolar_unwarp_wf",
		Strategy: "pepolar",
		Params: map[string]string{
			"epi_files":                 strings.Join(files, ","),
			"phase_encoding_directions": strings.Join(dirs, ","),
			"threads":                   strconv.Itoa(clampThreads(threads)),
		},
		Inputs: []workflow.Port{
			workflow.In("bold_reference", workflow.KindImage),
		},
		Outputs: []workflow.Port{
			workflow.Out("corrected_reference", workflow.KindImage),
			workflow.Out("warp_field", workflow.KindWarp),
			workflow.Out("report_artifact", workflow.KindReport),
		},
	}, nil
}

// DirectFieldmap builds the estimator for a directly measured B0 field map.
func (f *Factory) DirectFieldmap(fm fieldmap.DirectFieldmap, threads int) (*workflow.Subworkflow, error) {
	if fm.FieldmapFile == "" {
		return nil, fmt.Errorf("direct fieldmap: descriptor has no fieldmap file")
	}
	return &workflow.Subworkflow{
		Name:     "fmap_wf",
		Strategy: "direct_fieldmap",
		Params: map[string]string{
			"fieldmap":  fm.FieldmapFile,
			"magnitude": fm.MagnitudeFile,
			"threads":   strconv.Itoa(clampThreads(threads)),
		},
		Outputs: estimatorOutputs(),
	}, nil
}

// PhaseDifference builds the phase-difference estimator. The output-port
// contract matches DirectFieldmap: the downstream unwarp stage is
// strategy-agnostic once a field map exists.
func (f *Factory) PhaseDifference(pd fieldmap.PhaseDiff, threads int) (*workflow.Subworkflow, error) {
	if pd.PhaseDiffFile == "" {
		return nil, fmt.Errorf("phase difference: descriptor has no phasediff file")
	}
	return &workflow.Subworkflow{
		Name:     "phdiff_wf",
		Strategy: "phasediff",
		Params: map[string]string{
			"phasediff": pd.PhaseDiffFile,
			"magnitude": strings.Join(pd.MagnitudeFiles, ","),
			"threads":   strconv.Itoa(clampThreads(threads)),
		},
		Outputs: estimatorOutputs(),
	}, nil
}

func estimatorOutputs() []workflow.Port {
	return []workflow.Port{
		workflow.Out("fmap", workflow.KindFieldmap),
		workflow.Out("fmap_reference", workflow.KindImage),
		workflow.Out("fmap_mask", workflow.KindMask),
	}
}

// FieldmapUnwarp builds the unwarp stage that consumes an estimated field map.
func (f *Factory) FieldmapUnwarp(threads int, demean bool) (*workflow.Subworkflow, error) {
	return &workflow.Subworkflow{
		Name:     "sdc_unwarp_wf",
		Strategy: "fieldmap_unwarp",
		Params: map[string]string{
			"demean":  strconv.FormatBool(demean),
			"threads": strconv.Itoa(clampThreads(threads)),
		},
		Inputs: []workflow.Port{
			workflow.In("fmap", workflow.KindFieldmap),
			workflow.In("fmap_reference", workflow.KindImage),
			workflow.In("fmap_mask", workflow.KindMask),
		},
		Outputs: []workflow.Port{
			workflow.Out("corrected_reference", workflow.KindImage),
			workflow.Out("warp_field", workflow.KindWarp),
			workflow.Out("corrected_mask", workflow.KindMask),
		},
	}, nil
}

// SynBased builds the fieldmap-less SyN estimator.
func (f *Factory) SynBased(template, phaseEncodingDirection string, threads int) (*workflow.Subworkflow, error) {
	if template == "" {
		return nil, fmt.Errorf("syn: no registration template supplied")
	}
	return &workflow.Subworkflow{
		Name:     "syn_sdc_wf",
		Strategy: "syn",
		Params: map[string]string{
			"template":                 template,
			"phase_encoding_direction": phaseEncodingDirection,
			"threads":                  strconv.Itoa(clampThreads(threads)),
		},
		Inputs: []workflow.Port{
			workflow.In("t1_brain", workflow.KindImage),
			workflow.In("t1_segmentation", workflow.KindSegmentation),
			workflow.In("t1_to_template_inverse_transform", workflow.KindTransform),
			workflow.In("bold_reference", workflow.KindImage),
		},
		Outputs: []workflow.Port{
			workflow.Out("corrected_reference", workflow.KindImage),
			workflow.Out("warp_field", workflow.KindWarp),
			workflow.Out("warp_report", workflow.KindReport),
		},
	}, nil
}

// Report builds the before/after reportlet stage.
func (f *Factory) Report(threads int) (*workflow.Subworkflow, error) {
	return &workflow.Subworkflow{
		Name:     "fmap_unwarp_report_wf",
		Strategy: "report",
		Params: map[string]string{
			"threads": strconv.Itoa(clampThreads(threads)),
		},
		Inputs: []workflow.Port{
			workflow.In("segmentation", workflow.KindSegmentation),
			workflow.In("name_source", workflow.KindIdentifier),
			workflow.In("pre_correction_reference", workflow.KindImage),
			workflow.In("affine_transform", workflow.KindTransform),
			workflow.In("post_correction_reference", workflow.KindImage),
		},
		Outputs: []workflow.Port{
			workflow.Out("report_artifact", workflow.KindReport),
		},
	}, nil
}
