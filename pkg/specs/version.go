package specs

import (
	"fmt"
	"strconv"
	"strings"
)

// VersionPredicate is a parsed "name (op ver, op ver, ...)" requirement
// string, e.g. "image_prop (>=1.0.0, <2.0.0)". All clauses must be
// satisfied for SatisfiedBy to return true.
type VersionPredicate struct {
	Name    string
	Clauses []versionClause
}

type versionClause struct {
	op  string
	ver []int
}

var versionOperators = []string{">=", "<=", "==", "!=", ">", "<", "="}

// ParseVersionPredicate parses a requirement string of the form
// "name (op ver, op ver, ...)". An empty or malformed string yields an
// error; callers should treat a parse failure as "predicate not
// satisfied" per the comparator grammar's silent-failure convention.
func ParseVersionPredicate(requirement string) (*VersionPredicate, error) {
	requirement = strings.TrimSpace(requirement)
	open := strings.Index(requirement, "(")
	closeIdx := strings.LastIndex(requirement, ")")
	if open < 0 || closeIdx < 0 || closeIdx < open {
		return nil, fmt.Errorf("specs: malformed version predicate %q", requirement)
	}

	name := strings.TrimSpace(requirement[:open])
	body := requirement[open+1 : closeIdx]

	var clauses []versionClause
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		op, verStr := splitVersionOp(part)
		ver, err := parseVersionString(verStr)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, versionClause{op: op, ver: ver})
	}

	return &VersionPredicate{Name: name, Clauses: clauses}, nil
}

func splitVersionOp(part string) (op, rest string) {
	for _, candidate := range versionOperators {
		if strings.HasPrefix(part, candidate) {
			return candidate, strings.TrimSpace(strings.TrimPrefix(part, candidate))
		}
	}
	return "==", part
}

func parseVersionString(s string) ([]int, error) {
	fields := strings.Split(s, ".")
	ver := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("specs: invalid version component %q in %q", f, s)
		}
		ver[i] = n
	}
	return ver, nil
}

// SatisfiedBy reports whether the dotted version string dottedVersion
// satisfies every clause in p.
func (p *VersionPredicate) SatisfiedBy(dottedVersion string) bool {
	actual, err := parseVersionString(dottedVersion)
	if err != nil {
		return false
	}
	for _, c := range p.Clauses {
		if !clauseSatisfied(actual, c) {
			return false
		}
	}
	return true
}

func clauseSatisfied(actual []int, c versionClause) bool {
	cmp := compareVersions(actual, c.ver)
	switch c.op {
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	case "==", "=":
		return cmp == 0
	case "!=":
		return cmp != 0
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	default:
		return false
	}
}

func compareVersions(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// ConvertVersionToString converts the integer hypervisor version
// reported by a compute node (MAJOR*1,000,000 + MINOR*1,000 + PATCH,
// the libvirt convention) into dotted form, e.g. 2003000 -> "2.3.0".
func ConvertVersionToString(version int64) string {
	major := version / 1000000
	minor := (version % 1000000) / 1000
	patch := version % 1000
	return fmt.Sprintf("%d.%d.%d", major, minor, patch)
}
