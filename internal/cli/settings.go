package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/heron-rebuild/pkg/workflow"
)

// Defaults and environment overrides for the CLI surface.
const (
	DefaultConfig = "rebuild.hr"
	DefaultOutput = "output"
	EnvConfig     = "HERON_REBUILD_CONFIG"
	EnvOutput     = "HERON_REBUILD_OUTPUT"
)

// ErrUsage marks argument errors so the front-end can exit with a usage
// status.
var ErrUsage = errors.New("usage error")

// Settings is the validated CLI configuration for one invocation.
type Settings struct {
	Config     string
	Output     string
	Plan       string
	Tasks      []string
	Branches   []string
	Invalidate bool
	Baseline   bool
	Yes        bool
	DryRun     bool
	Verbose    int
}

// Validate checks flag combinations.
func (s *Settings) Validate() error {
	if s.Invalidate {
		if len(s.Tasks) == 0 {
			return fmt.Errorf("%w: --invalidate requires --task", ErrUsage)
		}
		if s.Plan != "" {
			return fmt.Errorf("%w: --invalidate cannot be combined with --plan", ErrUsage)
		}
		return nil
	}
	if s.Plan == "" && len(s.Tasks) == 0 {
		return fmt.Errorf("%w: either --plan or --task is required", ErrUsage)
	}
	if s.Plan != "" && len(s.Tasks) > 0 {
		return fmt.Errorf("%w: --plan and --task are mutually exclusive", ErrUsage)
	}
	return nil
}

// parseBranchFlag parses one "K=V[+K=V]*" flag into a branch selection.
// The pseudo-pair "Baseline=baseline" specifies nothing and is skipped.
func parseBranchFlag(flag string, strs *workflow.Strings) (workflow.BranchSpec, error) {
	var spec workflow.BranchSpec
	for _, pair := range strings.Split(flag, "+") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" || v == "" {
			return spec, fmt.Errorf("%w: invalid --branch value %q (expected 'Key=Val[+Key2=Val2...]')", ErrUsage, flag)
		}
		if k == "Baseline" && v == "baseline" {
			continue
		}
		bp := strs.AddBranchpoint(k)
		spec.Insert(bp, strs.AddBranchValue(bp, v))
	}
	return spec, nil
}

// branchSelections expands the --branch flags into one selection each;
// with no flags the single all-baseline selection is used.
func (s *Settings) branchSelections(strs *workflow.Strings) ([]workflow.BranchSpec, error) {
	if len(s.Branches) == 0 {
		return []workflow.BranchSpec{{}}, nil
	}
	specs := make([]workflow.BranchSpec, 0, len(s.Branches))
	for _, flag := range s.Branches {
		spec, err := parseBranchFlag(flag, strs)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
