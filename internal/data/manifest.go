package data

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ManifestDataset is a Dataset described by an image-list manifest: one
// sample per line, whitespace separated as "path label [domain]". When
// the domain column is absent it is derived from the first path
// segment, which is how DomainNet-style list files encode it.
type ManifestDataset struct {
	paths   []string
	targets []int
	domains []string
}

// LoadManifest reads a manifest file. Blank lines and lines starting
// with '#' are skipped. Payload decoding is left to the consumer; the
// dataset only records paths and labels.
func LoadManifest(path string) (*ManifestDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	ds := &ManifestDataset{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("manifest line %d: want \"path label [domain]\", got %q", lineNo, line)
		}

		label, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("manifest line %d: bad label %q: %w", lineNo, fields[1], err)
		}

		domain := ""
		if len(fields) >= 3 {
			domain = fields[2]
		} else if idx := strings.IndexByte(fields[0], '/'); idx > 0 {
			domain = fields[0][:idx]
		}

		ds.paths = append(ds.paths, fields[0])
		ds.targets = append(ds.targets, label)
		ds.domains = append(ds.domains, domain)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if len(ds.targets) == 0 {
		return nil, fmt.Errorf("manifest %s contains no samples", path)
	}
	return ds, nil
}

// Len returns the number of samples.
func (d *ManifestDataset) Len() int {
	return len(d.targets)
}

// Target returns the class label of sample i.
func (d *ManifestDataset) Target(i int) int {
	return d.targets[i]
}

// Domain returns the domain label of sample i.
func (d *ManifestDataset) Domain(i int) string {
	return d.domains[i]
}

// Path returns the on-disk payload path of sample i.
func (d *ManifestDataset) Path(i int) string {
	return d.paths[i]
}
