// Package kb loads the PCI DSS knowledge base: an immutable mapping from
// requirement identifier (e.g. "3.4.1", or a coarser section like "3") to
// requirement text. Loaded once at startup, read-only thereafter.
package kb

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrNotFound is returned when the knowledge base file does not exist.
var ErrNotFound = errors.New("knowledge base file not found")

// KB is a read-only requirement catalog. The zero value is empty; construct
// via Load or New.
type KB struct {
	requirements map[string]string
	sortedIDs    []string
}

// Load reads the knowledge base JSON object from path.
func Load(path string) (*KB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read knowledge base: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base: %w", err)
	}

	return New(raw)
}

// New builds a KB from an id -> text mapping. Empty bodies are rejected.
func New(requirements map[string]string) (*KB, error) {
	if len(requirements) == 0 {
		return nil, fmt.Errorf("knowledge base is empty")
	}

	m := make(map[string]string, len(requirements))
	ids := make([]string, 0, len(requirements))
	for id, text := range requirements {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("requirement %q has empty body", id)
		}
		m[id] = text
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })

	return &KB{requirements: m, sortedIDs: ids}, nil
}

// Get returns the requirement text for id.
func (k *KB) Get(id string) (string, bool) {
	text, ok := k.requirements[id]
	return text, ok
}

// Has reports whether id is a known requirement.
func (k *KB) Has(id string) bool {
	_, ok := k.requirements[id]
	return ok
}

// Len returns the number of requirements.
func (k *KB) Len() int {
	return len(k.requirements)
}

// SortedIDs returns all identifiers in stable numeric-aware order
// ("3.9" before "3.10"). Callers must not mutate the returned slice.
func (k *KB) SortedIDs() []string {
	return k.sortedIDs
}

// lessID orders dotted requirement identifiers segment by segment, comparing
// numeric parts numerically so "12.5.2" sorts after "3.4.1".
func lessID(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		pa, na := splitSegment(as[i])
		pb, nb := splitSegment(bs[i])
		if pa != pb {
			return pa < pb
		}
		if na != nb {
			return na < nb
		}
	}
	if len(as) != len(bs) {
		return len(as) < len(bs)
	}
	return a < b
}

// splitSegment splits an identifier segment into its optional leading letter
// prefix and numeric value ("A12" -> "A", 12). Non-numeric tails sort as 0.
func splitSegment(seg string) (string, int) {
	i := 0
	for i < len(seg) && (seg[i] < '0' || seg[i] > '9') {
		i++
	}
	n, _ := strconv.Atoi(seg[i:])
	return seg[:i], n
}
