// Package metrics implements the derived metrics computed by the collectors:
// dependency freshness, rolling windows, median ages, snapshots and release cadence.
package metrics

import (
	"cmp"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
)

// ErrUnparseableVersion is returned when a declared version is not a version.
var ErrUnparseableVersion = errors.New("unparseable version")

// Line selects which releases a declared version is compared against.
type Line int

const (
	// LineAll compares against the newest release overall.
	LineAll Line = iota
	// LineSeries compares against the newest release with the same major.minor.
	LineSeries
)

// Freshness is the result of comparing a declared version with the known releases.
type Freshness struct {
	Version  string `json:"version"`
	Latest   string `json:"latest"`
	Outdated bool   `json:"outdated"`
}

// pep440 matches the release, pre-release, post and dev segments of Python versions.
var pep440 = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:\.\d+)*` +
	`(?:[-_.]?(a|alpha|b|beta|c|rc|pre|preview)[-_.]?(\d*))?` +
	`(?:[-_.]?(post|rev|r)[-_.]?(\d*))?` +
	`(?:[-_.]?(dev)[-_.]?(\d*))?` +
	`(?:\+([0-9A-Za-z.\-_]+))?$`)

// Phases of a release in ascending order. A dev segment without a
// pre-release or post segment sorts before every pre-release.
const (
	phaseDev = iota
	phaseAlpha
	phaseBeta
	phaseRC
	phaseFinal
)

var phases = map[string]int{
	"a":       phaseAlpha,
	"alpha":   phaseAlpha,
	"b":       phaseBeta,
	"beta":    phaseBeta,
	"c":       phaseRC,
	"rc":      phaseRC,
	"pre":     phaseRC,
	"preview": phaseRC,
}

// version is a parsed release ordered the way pip orders it:
// dev < alpha < beta < rc < final < post.
type version struct {
	release string // canonical semver, with the pre-release of a semver input
	phase   int
	pre     int
	post    int // -1 without a post segment
	dev     int // -1 without a dev segment
}

func (v version) prerelease() bool {
	return semver.Prerelease(v.release) != "" || v.phase != phaseFinal || v.dev >= 0
}

func (v version) compare(o version) int {
	if c := semver.Compare(v.release, o.release); c != 0 {
		return c
	}
	for _, pair := range [][2]int{{v.phase, o.phase}, {v.pre, o.pre}, {v.post, o.post}, {devKey(v.dev), devKey(o.dev)}} {
		if c := cmp.Compare(pair[0], pair[1]); c != 0 {
			return c
		}
	}
	return 0
}

// devKey sorts a dev build before the same version without one.
func devKey(dev int) int {
	if dev < 0 {
		return math.MaxInt
	}
	return dev
}

// parseVersion parses a Python or semantic version string.
func parseVersion(s string) (version, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return version{}, false
	}
	if v := "v" + strings.TrimPrefix(s, "v"); semver.IsValid(v) {
		return version{release: semver.Canonical(v), phase: phaseFinal, post: -1, dev: -1}, true
	}

	m := pep440.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return version{}, false
	}
	v := version{
		release: "v" + m[1] + "." + orZero(m[2]) + "." + orZero(m[3]),
		phase:   phaseFinal,
		post:    -1,
		dev:     -1,
	}
	if !semver.IsValid(v.release) {
		return version{}, false
	}
	if m[4] != "" {
		v.phase, v.pre = phases[m[4]], number(m[5])
	}
	if m[6] != "" {
		v.post = number(m[7])
	}
	if m[8] != "" {
		v.dev = number(m[9])
		if m[4] == "" && m[6] == "" {
			v.phase = phaseDev
		}
	}
	return v, true
}

func number(s string) int {
	n, _ := strconv.Atoi(orZero(s))
	return n
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// Series returns the major.minor release series of a version, e.g. "3.2".
func Series(version string) (string, bool) {
	v, ok := parseVersion(version)
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(semver.MajorMinor(v.release), "v"), true
}

// CompareVersions reports whether declared is older than the newest release
// in its line. A declared version that cannot be parsed is passed through
// unchanged with Outdated false, together with ErrUnparseableVersion.
func CompareVersions(declared string, released []string, line Line) (Freshness, error) {
	result := Freshness{Version: declared}

	want, ok := parseVersion(declared)
	if !ok {
		return result, errors.Wrapf(ErrUnparseableVersion, "declared version %q", declared)
	}
	includePre := want.prerelease()

	var best version
	var bestRaw string
	for _, raw := range released {
		v, ok := parseVersion(raw)
		if !ok {
			continue
		}
		if !includePre && v.prerelease() {
			continue
		}
		if line == LineSeries && semver.MajorMinor(v.release) != semver.MajorMinor(want.release) {
			continue
		}
		if bestRaw == "" || v.compare(best) > 0 {
			best, bestRaw = v, raw
		}
	}
	if bestRaw == "" {
		return result, nil
	}

	result.Latest = bestRaw
	result.Outdated = best.compare(want) > 0
	return result, nil
}

// Latest returns the newest stable release of the given versions, or "" when none parse.
func Latest(released []string) string {
	var best version
	var bestRaw string
	for _, raw := range released {
		v, ok := parseVersion(raw)
		if !ok || v.prerelease() {
			continue
		}
		if bestRaw == "" || v.compare(best) > 0 {
			best, bestRaw = v, raw
		}
	}
	return bestRaw
}
