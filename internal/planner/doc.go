// Package planner decides what happens to each video of a project: whether
// it is selected, whether it needs a remux before decoding, and which
// transient local files it creates. The pipeline executes the plans.
package planner
