// Package pkgmgr detects which JavaScript package manager owns a package
// root and builds/runs the matching install command.
package pkgmgr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Manager identifies a JavaScript package manager.
type Manager string

// Supported package managers.
const (
	NPM  Manager = "npm"
	PNPM Manager = "pnpm"
	Yarn Manager = "yarn"
)

// Detect inspects the lockfiles in root to decide which manager owns it:
// package-lock.json → npm, pnpm-lock.yaml → pnpm, yarn.lock → yarn. When no
// lockfile is present npm is assumed.
func Detect(root string) Manager {
	if exists(filepath.Join(root, "package-lock.json")) {
		return NPM
	}
	if exists(filepath.Join(root, "pnpm-lock.yaml")) {
		return PNPM
	}
	if exists(filepath.Join(root, "yarn.lock")) {
		return Yarn
	}
	return NPM
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// InstallArgs returns the manager's arguments for installing name@rng, or a
// bare install of everything in the manifest when name is empty.
func (m Manager) InstallArgs(name, rng string) []string {
	if name == "" {
		return []string{"install"}
	}
	pkg := name
	if rng != "" {
		pkg = name + "@" + rng
	}
	switch m {
	case Yarn, PNPM:
		return []string{"add", pkg}
	default:
		return []string{"install", pkg}
	}
}

// InstallCommand returns the full command line for installing name@rng in
// root, as the binary name followed by its arguments.
func InstallCommand(root, name, rng string) (string, []string) {
	m := Detect(root)
	return string(m), m.InstallArgs(name, rng)
}

// CommandString renders the install command for display, e.g. in an editor
// terminal: "npm install react@^18.0.0".
func CommandString(root, name, rng string) string {
	bin, args := InstallCommand(root, name, rng)
	return bin + " " + strings.Join(args, " ")
}

// Run executes the install command in root, streaming output to stderr.
func Run(ctx context.Context, root, name, rng string) error {
	bin, args := InstallCommand(root, name, rng)
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = root
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pkgmgr: %s %s: %w", bin, strings.Join(args, " "), err)
	}
	return nil
}
