// Package common holds process-wide metadata and logger setup shared by all
// binaries in this module.
package common

// PackageName is the service identifier used for metrics and log tagging.
const PackageName = "ake-orchestrator"

// Version is set at build time via -ldflags.
var Version = "dev"
