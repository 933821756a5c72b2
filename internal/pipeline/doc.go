// Package pipeline orchestrates one extraction run: project selection,
// per-project video processing, results upload and summary reporting.
//
// A run moves through these stages:
//
//   - Select: list the data dir, filter project names by subset tokens and
//     Logfile creation date (see package selector).
//   - Plan: list each project's Videos dir and decide per video whether
//     it is sampled directly or remuxed first (see package planner).
//   - Process: download, remux, sample one frame per interval, write the
//     frames into the local results dir, delete the transient copies.
//   - Upload: copy the results dir to the remote once at the end, and
//     optionally after every project.
//
// Projects are independent: with Workers > 1 they run concurrently, and a
// failed project is counted without stopping the others.
package pipeline
