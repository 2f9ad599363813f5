package types

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Retailer identifies a supported retailer integration
type Retailer string

const (
	RetailerHomeDepot Retailer = "homedepot"
	RetailerLowes     Retailer = "lowes"
	RetailerUnknown   Retailer = "unknown"
)

var retailerHosts = map[string]Retailer{
	"homedepot.com": RetailerHomeDepot,
	"lowes.com":     RetailerLowes,
}

// DisplayName returns the human readable retailer label used in reports and tables
func (r Retailer) DisplayName() string {
	switch r {
	case RetailerHomeDepot:
		return "Home Depot"
	case "":
		return "Unknown"
	}
	s := string(r)
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// ResolveRetailer infers the retailer from the URL host
func ResolveRetailer(rawURL string) (Retailer, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return RetailerUnknown, fmt.Errorf("failed to parse URL %q: %w", rawURL, err)
	}
	host := strings.ToLower(u.Hostname())
	for suffix, retailer := range retailerHosts {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return retailer, nil
		}
	}
	return RetailerUnknown, fmt.Errorf("%w: %q", ErrUnknownRetailer, host)
}

// ProductTarget is one row of the links list
type ProductTarget struct {
	Index    int
	URL      string
	Retailer Retailer
}

// BaseName returns the artifact base name shared by the image, text and analysis files
func (t ProductTarget) BaseName() string {
	return fmt.Sprintf("%d_%s", t.Index, t.Retailer)
}

// ParseTargets splits a links list into targets. Blank lines are ignored and do not
// consume a sequence index.
func ParseTargets(content string) []ProductTarget {
	var targets []ProductTarget
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		retailer, _ := ResolveRetailer(line)
		targets = append(targets, ProductTarget{
			Index:    len(targets) + 1,
			URL:      line,
			Retailer: retailer,
		})
	}
	return targets
}

// LoadTargets reads the links list file
func LoadTargets(path string) ([]ProductTarget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return ParseTargets(string(data)), nil
}

// Selection is a sparse set of 1-based sequence indices. An empty selection selects everything.
type Selection map[int]bool

// ParseSelection parses a comma separated list of positive integers such as "1,3,5"
func ParseSelection(s string) (Selection, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	sel := Selection{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q: %w", s, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("invalid selection %q: indices must be positive integers", s)
		}
		sel[n] = true
	}
	if len(sel) == 0 {
		return nil, fmt.Errorf("invalid selection %q: selection cannot be empty", s)
	}
	return sel, nil
}

// Contains reports whether index is selected
func (s Selection) Contains(index int) bool {
	return len(s) == 0 || s[index]
}

// Indices returns the selected indices in ascending order
func (s Selection) Indices() []int {
	indices := make([]int, 0, len(s))
	for i := range s {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// Tag renders the selection for file names, e.g. "_selection_1_3". Empty for no selection.
func (s Selection) Tag() string {
	if len(s) == 0 {
		return ""
	}
	parts := make([]string, 0, len(s))
	for _, i := range s.Indices() {
		parts = append(parts, strconv.Itoa(i))
	}
	return "_selection_" + strings.Join(parts, "_")
}

// Filter returns the targets contained in the selection, in input order
func (s Selection) Filter(targets []ProductTarget) []ProductTarget {
	var out []ProductTarget
	for _, t := range targets {
		if s.Contains(t.Index) {
			out = append(out, t)
		}
	}
	return out
}
