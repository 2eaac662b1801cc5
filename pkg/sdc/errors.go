package sdc

import (
	"fmt"
	"strings"

	"github.com/ravi-parthasarathy/sdcflow/pkg/fieldmap"
)

// ConfigurationError is returned when a required outer input is missing for
// the selected strategy. It is raised before any sub-workflow is
// instantiated; assembly is deterministic, so retrying reproduces it.
type ConfigurationError struct {
	Strategy string
	Missing  []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("strategy %q requires missing inputs: %s",
		e.Strategy, strings.Join(e.Missing, ", "))
}

// UnsupportedFieldmapTypeError reports a descriptor type outside the
// recognized set. Selection filters those out, so hitting this means the
// caller bypassed the policy.
type UnsupportedFieldmapTypeError struct {
	Type fieldmap.Type
}

func (e *UnsupportedFieldmapTypeError) Error() string {
	return fmt.Sprintf("unsupported fieldmap type %q", e.Type)
}
