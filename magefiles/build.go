//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the funnel project using Mage.
//
// Usage:
//
//	mage build       Compile the funnel binary to bin/
//	mage test:all    Run all tests
//	mage test:race   Run all tests with the race detector
//	mage test:cover  Write a coverage profile to bin/
//	mage lint        Run golangci-lint
//	mage clean       Remove build artifacts
//	mage install     Install funnel to GOPATH/bin
//	mage stats       Print per-package Go LOC and test counts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "funnel"
	binaryDir  = "bin"
	cmdDir     = "./cmd/funnel"
	modulePath = "github.com/mesh-intelligence/funnel"
)

// Build compiles the funnel binary to bin/, stamping the version from
// $FUNNEL_VERSION when set.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v"}
	if v := os.Getenv("FUNNEL_VERSION"); v != "" {
		args = append(args, "-ldflags", "-X "+modulePath+"/internal/cli.Version="+v)
	}
	args = append(args, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
	return sh.RunV(binGo, args...)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
