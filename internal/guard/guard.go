// Package guard implements the read-only admission policy for incoming SQL.
//
// The policy is a conservative static filter, not a SQL parser: an explicit
// allow-list of leading keywords, a deny-list of mutating/administrative
// keywords matched as whole tokens, a stored-procedure prefix pattern, and a
// stacked-statement check. Ambiguous input is rejected.
package guard

import (
	"regexp"
	"strings"
)

// RejectionReason is returned for every rejected query. A single uniform
// message avoids telling a caller which rule tripped.
const RejectionReason = "only read-only queries are allowed"

// ValidationError reports a query rejected by the guard or malformed
// tool/resource input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Classification is the outcome of Classify: either admitted, or rejected
// with a reason.
type Classification struct {
	Admitted bool
	Reason   string
}

// allowedPrefix matches the read-only leading keywords. WITH and DECLARE are
// permitted because they can prefix a read-only CTE or a variable-scoped
// SELECT.
var allowedPrefix = regexp.MustCompile(`(?i)^(?:SELECT|WITH|DECLARE)(?:[^A-Za-z0-9_]|$)`)

// denyList matches mutating/administrative keywords as whole tokens, so
// identifiers like created_at or updated_by pass.
var denyList = []*regexp.Regexp{
	tokenPattern("INSERT"),
	tokenPattern("UPDATE"),
	tokenPattern("DELETE"),
	tokenPattern("DROP"),
	tokenPattern("CREATE"),
	tokenPattern("ALTER"),
	tokenPattern("TRUNCATE"),
	tokenPattern("MERGE"),
	tokenPattern("UPSERT"),
	tokenPattern("REPLACE"),
	tokenPattern("GRANT"),
	tokenPattern("REVOKE"),
	tokenPattern("EXEC"),
	tokenPattern("EXECUTE"),
}

// procPrefix matches the sp_/xp_ identifier prefixes used for stored
// procedure invocation.
var procPrefix = regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9_])(?:SP|XP)_[A-Za-z0-9_]+`)

// stacked matches a statement separator followed by further non-whitespace,
// blocking "SELECT 1; DROP TABLE t" style smuggling.
var stacked = regexp.MustCompile(`;\s*\S`)

func tokenPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9_])` + keyword + `(?:[^A-Za-z0-9_]|$)`)
}

// Classify decides whether the raw query text may be executed. It is a pure
// function of the text: the original string is what gets executed, the
// trimmed copy is used for matching only.
func Classify(query string) Classification {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return rejected()
	}

	if !allowedPrefix.MatchString(trimmed) {
		return rejected()
	}

	for _, re := range denyList {
		if re.MatchString(trimmed) {
			return rejected()
		}
	}

	if procPrefix.MatchString(trimmed) {
		return rejected()
	}

	if stacked.MatchString(trimmed) {
		return rejected()
	}

	return Classification{Admitted: true}
}

func rejected() Classification {
	return Classification{Admitted: false, Reason: RejectionReason}
}
