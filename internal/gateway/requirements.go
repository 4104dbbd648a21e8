package gateway

import (
	"bufio"
	"regexp"
	"strings"
)

// RequirementsFile is the path of the pinned dependency list in application repositories.
const RequirementsFile = "requirements.txt"

// UnknownVersion is recorded for requirements that are not pinned.
const UnknownVersion = "unknown"

var (
	requirementName = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)(\[[^\]]*\])?\s*(.*)$`)
	separators      = regexp.MustCompile(`[-_.]+`)
)

// NormalizeName lowercases a package name and folds runs of "-", "_" and "."
// into a single "-".
func NormalizeName(name string) string {
	return separators.ReplaceAllString(strings.ToLower(name), "-")
}

// ParseRequirements reads a requirements.txt body into normalized package
// names and their pinned versions.
func ParseRequirements(text string) map[string]string {
	deps := map[string]string{}
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") || strings.Contains(line, "://") {
			continue
		}
		if i := strings.Index(line, ";"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		m := requirementName.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		deps[NormalizeName(m[1])] = pinned(m[3])
	}
	return deps
}

// pinned returns the version of a "==" or "===" specifier, or UnknownVersion.
func pinned(spec string) string {
	spec = strings.TrimSpace(spec)
	if i := strings.Index(spec, "--"); i >= 0 {
		spec = strings.TrimSpace(spec[:i])
	}
	if strings.Contains(spec, ",") || !strings.HasPrefix(spec, "==") {
		return UnknownVersion
	}
	version := strings.TrimSpace(strings.TrimLeft(spec, "="))
	if version == "" || strings.ContainsAny(version, "*<>!~ ") {
		return UnknownVersion
	}
	return version
}
