// Package fsio funnels every filesystem operation the runner performs
// through one facade. Destructive operations are only allowed under the
// output root, and a dry-run guard turns them into errors wholesale.
package fsio
