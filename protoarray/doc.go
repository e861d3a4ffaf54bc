// Package protoarray implements the proto-array fork-choice engine: a flat,
// index-addressed block tree (Store/Node/Engine) and the per-validator
// latest-message table that drives it (VoteTracker). See the forkchoice
// package for the checkpoint-aware façade built on top of this package.
package protoarray
