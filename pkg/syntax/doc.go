// Package syntax lexes and parses the workflow config language: task
// blocks with input/output/param headers and brace-delimited shell bodies,
// global config blocks, module declarations, and plans with branch
// cross-products. The parser recovers at top-level declarations so a single
// pass can report every syntax error in a file.
package syntax
