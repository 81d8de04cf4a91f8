package fsio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/heron-rebuild/pkg/workflow"
)

// BranchpointsFile is the name of the record kept at the output root so
// humans and the invalidation sub-protocol can interpret realization
// directory names without reparsing the workflow.
const BranchpointsFile = "branchpoints.txt"

// BranchpointsPath returns the path of branchpoints.txt under the output
// root.
func (f *FS) BranchpointsPath() string {
	return filepath.Join(f.outputRoot, BranchpointsFile)
}

// LoadBranchpoints pre-seeds the string tables from branchpoints.txt, if
// present, so branchpoint ordering and baselines stay consistent between
// runs. Each line is "Name: value value ...", first value is baseline.
func (f *FS) LoadBranchpoints(s *workflow.Strings) error {
	path := f.BranchpointsPath()
	if !f.Exists(path) {
		return nil
	}
	text, err := f.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", BranchpointsFile, err)
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, vals, ok := strings.Cut(line, ":")
		if !ok {
			return fmt.Errorf("invalid %s line: %q", BranchpointsFile, line)
		}
		k := s.AddBranchpoint(strings.TrimSpace(name))
		for _, v := range strings.Fields(vals) {
			s.AddBranchValue(k, v)
		}
	}
	return nil
}

// WriteBranchpoints rewrites branchpoints.txt from the workflow's
// branchpoint tables.
func (f *FS) WriteBranchpoints(s *workflow.Strings) error {
	var sb strings.Builder
	for i := 0; i < s.Branchpoints.Len(); i++ {
		k := workflow.BranchpointID(i)
		name, err := s.Branchpoints.Get(k)
		if err != nil {
			return err
		}
		sb.WriteString(name)
		sb.WriteString(":")
		for _, v := range s.BranchValues(k) {
			val, err := s.Idents.Get(v)
			if err != nil {
				return err
			}
			sb.WriteString(" ")
			sb.WriteString(val)
		}
		sb.WriteString("\n")
	}
	return f.WriteFile(f.BranchpointsPath(), sb.String())
}
