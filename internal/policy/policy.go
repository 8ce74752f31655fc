// Package policy maps an affiliation to the roles and display name a member
// should have. It performs no I/O.
package policy

import (
	"fmt"
	"strings"
	"unicode/utf8"

	id "corpauth/pkg/domain"
	dErrors "corpauth/pkg/domain-errors"
)

// MaxDisplayNameLength is the chat platform's nickname limit in characters.
const MaxDisplayNameLength = 32

// Rule grants RoleName to members of CorporationID.
type Rule struct {
	CorporationID id.CorporationID
	RoleName      string
}

// Ruleset is the static role configuration of the community. Only roles
// named here are ever added or removed.
type Ruleset struct {
	BaseRole string
	Rules    []Rule
}

// NewRuleset validates and builds a ruleset.
func NewRuleset(baseRole string, rules []Rule) (Ruleset, error) {
	baseRole = strings.TrimSpace(baseRole)
	if baseRole == "" {
		return Ruleset{}, dErrors.New(dErrors.CodeValidation, "base role is required")
	}
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		name := strings.TrimSpace(r.RoleName)
		if r.CorporationID <= 0 || name == "" {
			return Ruleset{}, dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("invalid rule {corporation_id: %d, role_name: %q}", r.CorporationID, r.RoleName))
		}
		out = append(out, Rule{CorporationID: r.CorporationID, RoleName: name})
	}
	return Ruleset{BaseRole: baseRole, Rules: out}, nil
}

// TargetRoles is the base role plus every rule role for corp, in rule order.
func (r Ruleset) TargetRoles(corp id.CorporationID) []string {
	roles := []string{r.BaseRole}
	for _, rule := range r.Rules {
		if rule.CorporationID == corp {
			roles = appendUnique(roles, rule.RoleName)
		}
	}
	return roles
}

// ManagedRoles is every role name the ruleset controls.
func (r Ruleset) ManagedRoles() []string {
	roles := []string{r.BaseRole}
	for _, rule := range r.Rules {
		roles = appendUnique(roles, rule.RoleName)
	}
	return roles
}

// Diff computes which managed roles to add and remove so that a member
// holding held ends up with exactly target among the managed roles. A nil
// held means the member's roles are unknown: every target role is added and
// every other managed role removed. Both operations are idempotent on the
// chat platform, so the blind form converges too.
func Diff(target, managed, held []string) (add, remove []string) {
	want := toSet(target)
	if held == nil {
		add = append(add, target...)
		for _, role := range managed {
			if !want[role] {
				remove = append(remove, role)
			}
		}
		return add, remove
	}

	has := toSet(held)
	for _, role := range target {
		if !has[role] {
			add = append(add, role)
		}
	}
	for _, role := range managed {
		if !want[role] && has[role] {
			remove = append(remove, role)
		}
	}
	return add, remove
}

// TickerEntity picks whose ticker prefixes the display name: the alliance
// when there is one, the corporation otherwise.
func TickerEntity(corp id.CorporationID, alliance id.AllianceID) (isAlliance bool, entityID int64) {
	if !alliance.IsZero() {
		return true, int64(alliance)
	}
	return false, int64(corp)
}

// Presentation renders "[TICKER] Name". An unknown ticker renders the bare
// name. The result is cut to MaxDisplayNameLength characters.
func Presentation(ticker, characterName string) string {
	name := characterName
	if ticker != "" {
		name = "[" + ticker + "] " + characterName
	}
	return truncate(name, MaxDisplayNameLength)
}

// IsPresentation reports whether displayName is the canonical
// "[TICKER] Name" form for characterName with some non-empty ticker. A bare
// name is not canonical: it only appears when the ticker lookup failed, and
// treating it as drift makes the next pass retry.
func IsPresentation(displayName, characterName string) bool {
	if !strings.HasPrefix(displayName, "[") {
		return false
	}
	end := strings.Index(displayName, "] ")
	if end <= 1 {
		return false
	}
	ticker := displayName[1:end]
	if strings.ContainsAny(ticker, "[]") {
		return false
	}
	return displayName == Presentation(ticker, characterName)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:limit]), " ")
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, v := range list {
		set[v] = true
	}
	return set
}
