package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePath = "ballfield/server"

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// rule forbids packages under Scope from importing anything under one of the
// Forbidden prefixes.
type rule struct {
	Scope     []string
	Forbidden []string
}

// The simulation core never imports the outer layers, and logging never
// imports internal packages.
var rules = []rule{
	{
		Scope: []string{
			modulePath + "/internal/field",
			modulePath + "/internal/nav",
			modulePath + "/internal/agent",
			modulePath + "/internal/strategy",
			modulePath + "/internal/simutil",
			modulePath + "/internal/sim",
		},
		Forbidden: []string{
			modulePath + "/internal/net",
			modulePath + "/internal/match",
			modulePath + "/internal/results",
			modulePath + "/internal/app",
			"github.com/gorilla/",
			"modernc.org/sqlite",
			"net/http",
		},
	},
	{
		Scope:     []string{modulePath + "/logging"},
		Forbidden: []string{modulePath + "/internal/"},
	},
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	pkgs, err := decodePackages(bytes.NewReader(output))
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
		os.Exit(1)
	}

	if violations := findViolations(pkgs, rules); len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func decodePackages(r io.Reader) ([]packageInfo, error) {
	decoder := json.NewDecoder(r)
	var pkgs []packageInfo
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				return pkgs, nil
			}
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}
}

func findViolations(pkgs []packageInfo, rules []rule) []string {
	var violations []string
	for _, pkg := range pkgs {
		for _, r := range rules {
			if !withinAny(pkg.ImportPath, r.Scope) {
				continue
			}
			for _, imp := range pkg.Imports {
				if hasAnyPrefix(imp, r.Forbidden) {
					violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
				}
			}
		}
	}
	sort.Strings(violations)
	return violations
}

// withinAny matches a package or any of its subpackages.
func withinAny(path string, scopes []string) bool {
	for _, scope := range scopes {
		if path == scope || strings.HasPrefix(path, scope+"/") {
			return true
		}
	}
	return false
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
