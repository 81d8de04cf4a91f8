package prep

import "strings"

// EnvVar is one shell variable assignment for a task: an input path, an
// output path, or a param value.
type EnvVar struct {
	Name  string
	Value string
}

// CopyPair maps an output file in a module directory to its place in the
// realization directory.
type CopyPair struct {
	From string
	To   string
}

// BuildScript renders the archival task.sh for a realization: shebang and
// shell options, one assignment per header binding, then the task body.
// Module tasks additionally cd into the module and copy their outputs back.
func BuildScript(env []EnvVar, code, moduleDir string, copies []CopyPair) string {
	var sb strings.Builder
	sb.WriteString("#!/usr/bin/env bash\nset -xeuo pipefail\n\n")
	for _, v := range env {
		sb.WriteString(v.Name)
		sb.WriteString("=")
		if v.Value == "" {
			sb.WriteString(`""`)
		} else {
			sb.WriteString(v.Value)
		}
		sb.WriteString("\n")
	}
	if moduleDir != "" {
		sb.WriteString("\n# This is a module task, so we cd to the module directory before running it:\ncd ")
		sb.WriteString(moduleDir)
		sb.WriteString("\n")
	}
	sb.WriteString(code)
	if len(copies) > 0 {
		sb.WriteString("\n# Copy all outputs in module directory back to artifacts directory:\n")
		for _, c := range copies {
			sb.WriteString("cp -r ")
			sb.WriteString(c.From)
			sb.WriteString(" ")
			sb.WriteString(c.To)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\nexit 0\n")
	return sb.String()
}
