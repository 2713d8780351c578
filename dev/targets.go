//go:build targ

package main

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/akedrou/textdiff"
	"github.com/toejough/go-reorder"
	"github.com/toejough/targ"
	"github.com/toejough/targ/sh"
)

const (
	coverageFile    = "coverage.out"
	minimumCoverage = 80.0
)

// Check tidies, tests, reorders and lints the module.
func Check() error {
	fmt.Println("Checking...")

	return targ.Deps(Tidy, CheckCoverage, ReorderDecls, Lint)
}

// CheckCoverage fails when any function falls under the coverage floor.
func CheckCoverage() error {
	fmt.Println("Checking coverage...")

	if err := targ.Deps(Test); err != nil {
		return err
	}

	report, err := output("go", "tool", "cover", "-func="+coverageFile)
	if err != nil {
		return err
	}

	funcs, err := parseCoverage(report)
	if err != nil {
		return err
	}

	for _, f := range funcs {
		fmt.Println(f.line)
	}

	if lowest := funcs[0]; lowest.percent < minimumCoverage {
		return fmt.Errorf("%s is under %.1f%% coverage:\n  %s", lowest.name, minimumCoverage, lowest.line)
	}

	return nil
}

// CheckForFail runs the checks without fixing anything, fastest first.
func CheckForFail() error {
	fmt.Println("Checking...")

	return targ.Deps(ReorderDeclsCheck, LintForFail, TestForFail, CheckCoverage)
}

// Clean removes generated reports.
func Clean() {
	fmt.Println("Cleaning...")

	_ = os.Remove(coverageFile)
}

// Lint lints the module, applying fixes.
func Lint() error {
	fmt.Println("Linting...")

	return sh.Run("golangci-lint", "run", "./...")
}

// LintForFail lints the module without fixing anything.
func LintForFail() error {
	fmt.Println("Linting for pass/fail...")

	return sh.Run(
		"golangci-lint", "run",
		"--fix=false",
		"--max-issues-per-linter=1",
		"--max-same-issues=1",
		"./...",
	)
}

// Mutate runs the ooze mutation suite in dev/.
func Mutate() error {
	fmt.Println("Running mutation tests...")

	if err := targ.Deps(TestForFail); err != nil {
		return err
	}

	return sh.Run("go", "test", "-timeout=6000s", "-tags=mutation", "-run=TestMutation", "./dev/...")
}

// ReorderDecls rewrites files whose declarations are out of order.
func ReorderDecls() error {
	fmt.Println("Reordering declarations...")

	pending, err := unordered()
	if err != nil {
		return err
	}

	for _, f := range pending {
		if err := os.WriteFile(f.path, []byte(f.reordered), 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", f.path, err)
		}

		fmt.Printf("  reordered %s\n", f.path)
	}

	return nil
}

// ReorderDeclsCheck shows a diff for every file that ReorderDecls would change.
func ReorderDeclsCheck() error {
	fmt.Println("Checking declaration order...")

	pending, err := unordered()
	if err != nil {
		return err
	}

	for _, f := range pending {
		fmt.Println(textdiff.Unified(f.path, f.path+" (reordered)", f.original, f.reordered))
	}

	if len(pending) > 0 {
		return fmt.Errorf("%d file(s) need reordering, run 'targ reorder-decls'", len(pending))
	}

	return nil
}

// Test runs the race-enabled suite and writes the coverage profile.
func Test() error {
	fmt.Println("Running tests...")

	return sh.Run(
		"go", "test",
		"-timeout=2m",
		"-race",
		"-count=1",
		"-coverprofile="+coverageFile,
		"-coverpkg=./...",
		"./...",
	)
}

// TestForFail runs the suite, stopping at the first failure.
func TestForFail() error {
	fmt.Println("Running tests for pass/fail...")

	return sh.Run("go", "test", "-timeout=30s", "-failfast", "./...")
}

// Tidy tidies go.mod.
func Tidy() error {
	fmt.Println("Tidying go.mod...")

	return sh.Run("go", "mod", "tidy")
}

type funcCoverage struct {
	name    string
	line    string
	percent float64
}

type reorderedFile struct {
	path      string
	original  string
	reordered string
}

var errNoCoverage = errors.New("no coverage data")

// output runs a command and returns its stdout.
func output(command string, args ...string) (string, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()

	return strings.TrimSpace(string(out)), err
}

// parseCoverage reads `go tool cover -func` output, least covered first.
func parseCoverage(report string) ([]funcCoverage, error) {
	percent := regexp.MustCompile(`(\d+\.\d)%$`)
	funcs := []funcCoverage{}

	for _, line := range strings.Split(report, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] == "total:" {
			continue
		}

		match := percent.FindStringSubmatch(line)
		if match == nil {
			return nil, fmt.Errorf("unreadable coverage line %q", line)
		}

		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return nil, fmt.Errorf("unreadable coverage line %q: %w", line, err)
		}

		funcs = append(funcs, funcCoverage{name: fields[1], line: line, percent: value})
	}

	if len(funcs) == 0 {
		return nil, errNoCoverage
	}

	slices.SortStableFunc(funcs, func(a, b funcCoverage) int { return cmp.Compare(a.percent, b.percent) })

	return funcs, nil
}

// unordered returns the module's Go files whose declarations go-reorder would move.
func unordered() ([]reorderedFile, error) {
	pending := []reorderedFile{}

	err := filepath.WalkDir(".", func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := entry.Name()
		if entry.IsDir() {
			if path != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}

			return nil
		}

		if filepath.Ext(name) != ".go" {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		reordered, err := reorder.Source(string(content))
		if err != nil {
			fmt.Printf("  skipping %s: %v\n", path, err)

			return nil
		}

		if reordered != string(content) {
			pending = append(pending, reorderedFile{path: path, original: string(content), reordered: reordered})
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning sources: %w", err)
	}

	return pending, nil
}
