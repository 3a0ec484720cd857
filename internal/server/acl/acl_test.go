package acl

import (
	"encoding/json"
	"testing"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allACLs() []EffectiveACL {
	var out []EffectiveACL
	for i := 0; i < 8; i++ {
		out = append(out, EffectiveACL{Read: i&1 != 0, Write: i&2 != 0, Owner: i&4 != 0})
	}
	return out
}

func TestCombine_NeverGrantsMoreThanEitherInput(t *testing.T) {
	implies := func(x, y bool) bool { return !x || y }

	for _, a := range allACLs() {
		for _, b := range allACLs() {
			c := Combine(a, b)
			assert.True(t, implies(c.Read, a.Read && b.Read), "%+v %+v", a, b)
			assert.True(t, implies(c.Write, a.Write && b.Write), "%+v %+v", a, b)
			assert.True(t, implies(c.Owner, a.Owner && b.Owner), "%+v %+v", a, b)
			assert.Equal(t, c, Combine(b, a))
		}
	}
}

func TestCombine_FullIsIdentity(t *testing.T) {
	for _, a := range allACLs() {
		assert.Equal(t, a, Combine(a, Full()))
		assert.True(t, Combine(a, EffectiveACL{}).DeniedAll())
	}
}

func TestDefaultResolver(t *testing.T) {
	ids := []string{UserIdentifier("alice"), "group:staff"}
	upstream := EffectiveACL{Read: true, Write: true}

	tests := []struct {
		name     string
		rules    Rules
		upstream *EffectiveACL
		want     EffectiveACL
	}{
		{"no rules no upstream", nil, nil, EffectiveACL{}},
		{"no rules inherits upstream", nil, &upstream, upstream},
		{"owner implies read write", Rules{OwnerRule("alice")}, nil, Full()},
		{"non matching rule denies", Rules{{Identifier: UserIdentifier("bob"), Read: true}}, &upstream, EffectiveACL{}},
		{"matching rules union", Rules{{Identifier: "group:staff", Read: true}, {Identifier: UserIdentifier("alice"), Write: true}}, nil, EffectiveACL{Read: true, Write: true}},
		{"everyone wildcard", Rules{{Identifier: Everyone, Read: true}}, nil, EffectiveACL{Read: true}},
		{"inherit adds upstream", Rules{{Identifier: "group:staff", Inherit: true}}, &upstream, upstream},
		{"inherit without upstream", Rules{{Identifier: "group:staff", Inherit: true, Read: true}}, nil, EffectiveACL{Read: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultResolver{}.Resolve(tt.rules, ids, tt.upstream)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRules_SetReplacesIdentifier(t *testing.T) {
	rs := Rules{OwnerRule("alice"), {Identifier: "group:staff", Read: true}}

	got := rs.Set(Rule{Identifier: "group:staff", Write: true})
	require.Len(t, got, 2)
	assert.Equal(t, Rule{Identifier: "group:staff", Write: true}, got[1])
	assert.Equal(t, Rule{Identifier: "group:staff", Read: true}, rs[1], "input must not be mutated")

	got = rs.Set(Rule{Identifier: "user:bob", Read: true})
	assert.Len(t, got, 3)
}

func TestEnsureOwner(t *testing.T) {
	require.NoError(t, EnsureOwner(Rules{OwnerRule("alice")}))

	err := EnsureOwner(Rules{{Identifier: UserIdentifier("alice"), Read: true}})
	assert.ErrorIs(t, err, common.ErrorPermission)
	assert.ErrorIs(t, EnsureOwner(nil), common.ErrorPermission)
}

func TestRuleJSON_OmitsFalseFlags(t *testing.T) {
	b, err := json.Marshal(Rule{Identifier: "user:a", Read: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"identifier":"user:a","read":true}`, string(b))
}
