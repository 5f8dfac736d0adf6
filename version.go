// Package gitship stages, commits and pushes every pending change of a git
// working tree in one declarative sequence.
package gitship

// Version is the gitship release, overridden at build time via -ldflags.
var Version = "dev"
