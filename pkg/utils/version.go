// Package utils holds small helpers shared by the gleaner commands and
// services.
package utils

// Build metadata, overwritten at link time with -ldflags "-X".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
