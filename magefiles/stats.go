//go:build mage

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// pkgStats is the size record of one Go package directory.
type pkgStats struct {
	Package string `json:"package"`
	ProdLOC int    `json:"go_loc_prod"`
	TestLOC int    `json:"go_loc_test"`
	Tests   int    `json:"tests"`
}

// Stats prints one JSON record per package under cmd/, internal/ and pkg/,
// followed by a total. Tests counts top-level Test functions.
func Stats() error {
	byPkg := make(map[string]*pkgStats)
	for _, root := range []string{"cmd", "internal", "pkg"} {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".go") {
				return nil
			}
			dir := filepath.ToSlash(filepath.Dir(path))
			st := byPkg[dir]
			if st == nil {
				st = &pkgStats{Package: dir}
				byPkg[dir] = st
			}
			lines, tests, err := scanGoFile(path)
			if err != nil {
				return err
			}
			if strings.HasSuffix(path, "_test.go") {
				st.TestLOC += lines
				st.Tests += tests
			} else {
				st.ProdLOC += lines
			}
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	dirs := make([]string, 0, len(byPkg))
	for d := range byPkg {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	total := pkgStats{Package: "total"}
	enc := json.NewEncoder(os.Stdout)
	for _, d := range dirs {
		st := byPkg[d]
		total.ProdLOC += st.ProdLOC
		total.TestLOC += st.TestLOC
		total.Tests += st.Tests
		if err := enc.Encode(st); err != nil {
			return err
		}
	}
	if err := enc.Encode(total); err != nil {
		return fmt.Errorf("write total: %w", err)
	}
	return nil
}

// scanGoFile counts the lines of a Go file and its top-level Test functions.
func scanGoFile(path string) (lines, tests int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
		if strings.HasPrefix(scanner.Text(), "func Test") {
			tests++
		}
	}
	return lines, tests, scanner.Err()
}
