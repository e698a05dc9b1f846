//go:build tools

// Package toolpins pins the module versions of external analysis binaries
// that the Go tool runner shells out to (golangci-lint, gosec, govulncheck,
// go-licenses). They are never imported at runtime; this file exists only
// so `go mod tidy` keeps their versions in go.sum, the same trick the
// upstream actionlint integration used to pin a Docker image tag instead.
package toolpins

import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "github.com/google/go-licenses"
	_ "github.com/securego/gosec/v2/cmd/gosec"
	_ "golang.org/x/vuln/cmd/govulncheck"
)
