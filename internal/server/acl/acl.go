// Package acl evaluates drive and file access rules into an effective
// permission set and composes permission sets across levels
// (drive, sub-drive, version, pre-authorized request).
package acl

import (
	"fmt"
	"slices"

	"github.com/dmitrijs2005/gophdrive/internal/common"
)

// Everyone matches any caller.
const Everyone = "*"

// UserIdentifier is the identifier a verified user carries.
func UserIdentifier(userGUID string) string {
	return "user:" + userGUID
}

// Rule grants permissions to one identifier. Inherit additionally grants
// whatever the upstream level grants.
type Rule struct {
	Identifier string `json:"identifier"`
	Read       bool   `json:"read,omitempty"`
	Write      bool   `json:"write,omitempty"`
	Owner      bool   `json:"owner,omitempty"`
	Inherit    bool   `json:"inherit,omitempty"`
}

type Rules []Rule

// OwnerRule is the rule an auto-created drive starts with.
func OwnerRule(userGUID string) Rule {
	return Rule{Identifier: UserIdentifier(userGUID), Read: true, Write: true, Owner: true}
}

// Set returns a copy of rules with the identifier's rule replaced by r
// (or appended if the identifier had none).
func (rs Rules) Set(r Rule) Rules {
	out := make(Rules, 0, len(rs)+1)
	replaced := false
	for _, existing := range rs {
		if existing.Identifier == r.Identifier {
			if !replaced {
				out = append(out, r)
				replaced = true
			}
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, r)
	}
	return out
}

// EnsureOwner rejects a rule set that leaves nobody owning the resource.
func EnsureOwner(rs Rules) error {
	for _, r := range rs {
		if r.Owner {
			return nil
		}
	}
	return fmt.Errorf("%w: rule set must keep at least one owner", common.ErrorPermission)
}

// EffectiveACL is a resolved permission set.
type EffectiveACL struct {
	Read  bool `json:"read"`
	Write bool `json:"write"`
	Owner bool `json:"owner"`
}

// Full grants everything.
func Full() EffectiveACL {
	return EffectiveACL{Read: true, Write: true, Owner: true}
}

func (a EffectiveACL) DeniedAll() bool {
	return !a.Read && !a.Write && !a.Owner
}

func (a EffectiveACL) union(b EffectiveACL) EffectiveACL {
	return EffectiveACL{Read: a.Read || b.Read, Write: a.Write || b.Write, Owner: a.Owner || b.Owner}
}

// Combine intersects two permission sets. The result never grants anything
// absent from either input.
func Combine(a, b EffectiveACL) EffectiveACL {
	return EffectiveACL{Read: a.Read && b.Read, Write: a.Write && b.Write, Owner: a.Owner && b.Owner}
}

// Resolver turns a rule set and the caller's identifiers into an effective
// ACL. upstream is the permission set of the enclosing level, nil at the top.
type Resolver interface {
	Resolve(rules Rules, identifiers []string, upstream *EffectiveACL) EffectiveACL
}

// DefaultResolver unions the grants of every rule matching one of the
// caller's identifiers. Owner implies read and write. An empty rule set
// inherits upstream unchanged.
type DefaultResolver struct{}

func (DefaultResolver) Resolve(rules Rules, identifiers []string, upstream *EffectiveACL) EffectiveACL {
	if len(rules) == 0 {
		if upstream != nil {
			return *upstream
		}
		return EffectiveACL{}
	}

	var eff EffectiveACL
	for _, r := range rules {
		if r.Identifier != Everyone && !slices.Contains(identifiers, r.Identifier) {
			continue
		}
		eff = eff.union(EffectiveACL{Read: r.Read || r.Owner, Write: r.Write || r.Owner, Owner: r.Owner})
		if r.Inherit && upstream != nil {
			eff = eff.union(*upstream)
		}
	}
	return eff
}
