package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultPrefix returns the worker ID prefix used when none is configured.
func DefaultPrefix(acceleratorType string) string {
	return fmt.Sprintf("tn-%s", acceleratorType)
}

// WorkerID returns the ID of the worker with the given index.
func WorkerID(prefix string, index int) string {
	return fmt.Sprintf("%s-%d", prefix, index)
}

// Location returns the provider location path of a zone. Zone "-" addresses
// every zone of the project.
func Location(project, zone string) string {
	return fmt.Sprintf("projects/%s/locations/%s", project, zone)
}

// QueuedResource returns the full queued resource path of a worker.
func QueuedResource(project, zone, id string) string {
	return fmt.Sprintf("%s/queuedResources/%s", Location(project, zone), id)
}

// Node returns the full node path of a worker.
func Node(project, zone, id string) string {
	return fmt.Sprintf("%s/nodes/%s", Location(project, zone), id)
}

// ParseResourcePath splits "projects/{p}/locations/{zone}/{collection}/{id}"
// into zone and id.
func ParseResourcePath(path string) (zone, id string, err error) {
	parts := strings.Split(path, "/")
	if len(parts) != 6 || parts[0] != "projects" || parts[2] != "locations" {
		return "", "", fmt.Errorf("unexpected resource path %q", path)
	}
	return parts[3], parts[5], nil
}

var digits = regexp.MustCompile(`\d+`)

// NaturalLess orders strings so that embedded numbers compare numerically:
// "w-2" sorts before "w-10" and "v5p-8" before "v5p-16".
func NaturalLess(a, b string) bool {
	ca, cb := chunks(a), chunks(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		x, y := ca[i], cb[i]
		if x == y {
			continue
		}
		nx, errX := strconv.Atoi(x)
		ny, errY := strconv.Atoi(y)
		if errX == nil && errY == nil && nx != ny {
			return nx < ny
		}
		return x < y
	}
	return len(ca) < len(cb)
}

// chunks splits s into alternating text and digit runs.
func chunks(s string) []string {
	var out []string
	last := 0
	for _, loc := range digits.FindAllStringIndex(s, -1) {
		if loc[0] > last {
			out = append(out, s[last:loc[0]])
		}
		out = append(out, s[loc[0]:loc[1]])
		last = loc[1]
	}
	if last < len(s) {
		out = append(out, s[last:])
	}
	return out
}
