// Package traverse walks a workflow backward from a plan's goal tasks and
// produces an ordered list of task realizations.
//
// The traversal happens in three steps:
//  1. A breadth-first search backward from each goal enqueues every needed
//     antecedent, one node per dependency edge, detecting cycles along the
//     way.
//  2. The list is reversed into dependency order.
//  3. Each node's selection is restricted to exactly the branchpoints its
//     task transitively references, so selections can serve as realization
//     keys.
//
// The list may still contain duplicate realizations (one per edge); the
// prep stage collapses them, keeping first-discovery order.
package traverse
