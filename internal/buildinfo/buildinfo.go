// Package buildinfo holds build-time metadata injected via ldflags.
package buildinfo

// CurrentVersion is the CLI version, injected at build time via
// -ldflags "-X github.com/bodhisearch/llamacheck/internal/buildinfo.CurrentVersion=v1.2.3".
// Local builds fall back to "dev".
var CurrentVersion = "dev"

// LlamaServerRelease is the default llama-server release tag the harness
// pulls artifacts for when the suite config does not pin one.
var LlamaServerRelease = "latest"
