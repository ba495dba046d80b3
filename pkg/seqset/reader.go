// Readers for domain file formats (nanopore FAST5/SLOW5, UCR) are external
// collaborators out of scope for tsdba (spec §1). This file provides the
// one generic reader the CLI needs to be runnable on its own: a
// tab/whitespace-delimited text format of `name<TAB>v1<TAB>v2...`.
package seqset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadTabDelimited reads one Set from path. Each line is
// `name<TAB>value<TAB>value...`; blank lines and lines starting with '#'
// are skipped.
func ReadTabDelimited(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seqset: opening %s: %w", path, err)
	}
	defer f.Close()
	return readTabDelimited(f, path)
}

func readTabDelimited(r io.Reader, path string) (*Set, error) {
	set := &Set{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		values := make([]float64, 0, len(fields)-1)
		for _, raw := range fields[1:] {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("seqset: %s:%d: invalid value %q: %w", path, lineNo, raw, err)
			}
			values = append(values, v)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("seqset: %s:%d: sequence %q has no values", path, lineNo, name)
		}
		set.Names = append(set.Names, name)
		set.Sequences = append(set.Sequences, values)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("seqset: reading %s: %w", path, err)
	}
	return set, nil
}

// ReadMany reads and concatenates multiple containers into one Set,
// preserving encounter order before any sort/sanitize pass.
func ReadMany(paths []string) (*Set, error) {
	combined := &Set{}
	for _, p := range paths {
		part, err := ReadTabDelimited(p)
		if err != nil {
			return nil, err
		}
		combined.Sequences = append(combined.Sequences, part.Sequences...)
		combined.Names = append(combined.Names, part.Names...)
	}
	return combined, nil
}
