//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var (
	binDir  = "bin"
	appName = "solace-web"
)

var Default = Run

// Run starts the web server with go run.
func Run() error {
	mg.Deps(Tidy)
	fmt.Println("Running (go run) ...")
	return sh.RunV("go", "run", "./cmd/web")
}

// Build compiles the server binary into bin/.
func Build() error {
	mg.Deps(Tidy)
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}
	out := filepath.Join(binDir, appName)
	if runtime.GOOS == "windows" {
		out += ".exe"
	}
	fmt.Println("Building", out, "...")
	return sh.RunV("go", "build", "-o", out, "./cmd/web")
}

// Test runs the whole test suite with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet and, when installed, staticcheck.
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	if _, err := exec.LookPath("staticcheck"); err == nil {
		return sh.RunV("staticcheck", "./...")
	}
	fmt.Println("staticcheck not found, skipping")
	return nil
}

// Tidy syncs go.mod/go.sum.
func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

// Migrate creates the database tables.
func Migrate() error {
	return sh.RunV("go", "run", "./cmd/tools/createtable")
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binDir)
}
