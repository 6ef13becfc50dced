//go:build tools

// Package tools pins the linters used on the threadpool module.
// Run them with: go run github.com/golangci/golangci-lint/cmd/golangci-lint run ./...
package tools

import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
)
