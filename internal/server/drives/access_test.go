package drives

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server/acl"
	"github.com/dmitrijs2005/gophdrive/internal/server/auth"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveACL_Modes(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	d := e.drive(t, "alice", "home")
	alice := auth.NewIdentity("alice")

	eff, id, err := d.ResolveACL(ctx, WithIdentity(alice), "r")
	require.NoError(t, err)
	assert.Equal(t, acl.Full(), eff)
	assert.Equal(t, "alice", id.UserGUID)

	token, err := auth.GenerateToken("alice", nil, nil, testSecret, time.Minute)
	require.NoError(t, err)
	eff, id, err = d.ResolveACL(ctx, WithToken(token), "r")
	require.NoError(t, err)
	assert.Equal(t, acl.Full(), eff)
	assert.Equal(t, "alice", id.UserGUID)

	scoped, err := auth.GenerateToken("alice", nil, []string{"elsewhere"}, testSecret, time.Minute)
	require.NoError(t, err)
	_, _, err = d.ResolveACL(ctx, WithToken(scoped), "r")
	assert.ErrorIs(t, err, common.ErrorPermission)

	_, _, err = d.ResolveACL(ctx, WithToken("garbage"), "r")
	assert.ErrorIs(t, err, common.ErrorInvalidToken)

	for name, creds := range map[string]Credentials{
		"none":            {},
		"token and id":    {Token: token, Identity: &alice},
		"par without id":  {AccessToken: &models.AccessToken{DriveUID: d.UID()}},
		"all three modes": {Token: token, AccessToken: &models.AccessToken{}, Identity: &alice},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := d.ResolveACL(ctx, creds, "r")
			assert.ErrorIs(t, err, common.ErrorTypeMismatch)
		})
	}
}

func TestResolveACL_NoVerifier(t *testing.T) {
	e := newTestEnv(t)
	e.sc.Verifier = nil
	d := e.drive(t, "alice", "home")

	_, _, err := d.ResolveACL(context.Background(), WithToken("t"), "r")
	assert.ErrorIs(t, err, common.ErrorUnsupported)
}

func TestAccessToken_NarrowsCallerACL(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	d := e.drive(t, "alice", "home")
	_, _, err := d.Upload(ctx, FileHandle{Filename: "doc", Data: []byte("v1")}, as("alice"), nil)
	require.NoError(t, err)
	require.NoError(t, d.SetPermission(ctx, acl.UserIdentifier("bob"), acl.Rule{Read: true, Write: true}))

	tok, signed, err := d.IssueAccessToken(ctx, as("alice"), acl.EffectiveACL{Read: true}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, acl.EffectiveACL{Read: true}, tok.ACL)

	parsed, err := e.sc.Tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, tok.DriveUID, parsed.DriveUID)
	assert.Equal(t, tok.ACL, parsed.ACL)

	bobsView, err := e.reg.OpenDrive(ctx, d.UID())
	require.NoError(t, err)
	bob := auth.NewIdentity("bob")

	_, payload, err := bobsView.Download(ctx, "doc", WithAccessToken(parsed, bob), DownloadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), payload.Data)

	_, _, err = bobsView.Upload(ctx, FileHandle{Filename: "doc", Data: []byte("v2")}, WithAccessToken(parsed, bob), nil)
	assert.ErrorIs(t, err, common.ErrorPermission, "the token only grants read")

	// Even the owner is limited by the token.
	_, _, err = d.Upload(ctx, FileHandle{Filename: "doc", Data: []byte("v2")}, WithAccessToken(parsed, auth.NewIdentity("alice")), nil)
	assert.ErrorIs(t, err, common.ErrorPermission)

	// A token never adds to what its bearer holds.
	_, _, err = bobsView.Download(ctx, "doc", WithAccessToken(parsed, auth.NewIdentity("mallory")), DownloadOptions{})
	assert.ErrorIs(t, err, common.ErrorPermission)
}

func TestAccessToken_BoundAndExpiring(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	d := e.drive(t, "alice", "home")
	other := e.drive(t, "alice", "other")
	_, _, err := d.Upload(ctx, FileHandle{Filename: "doc", Data: []byte("v1")}, as("alice"), nil)
	require.NoError(t, err)

	tok, _, err := d.IssueAccessToken(ctx, as("alice"), acl.Full(), time.Minute)
	require.NoError(t, err)
	alice := auth.NewIdentity("alice")

	_, _, err = other.Download(ctx, "doc", WithAccessToken(*tok, alice), DownloadOptions{})
	assert.ErrorIs(t, err, common.ErrorPermission)

	e.advance(2 * time.Minute)
	_, _, err = d.Download(ctx, "doc", WithAccessToken(*tok, alice), DownloadOptions{})
	assert.ErrorIs(t, err, common.ErrorPermission)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestIssueAccessToken_OwnersOnly(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	d := e.drive(t, "alice", "home")
	require.NoError(t, d.SetPermission(ctx, acl.UserIdentifier("bob"), acl.Rule{Read: true, Write: true}))

	_, _, err := d.IssueAccessToken(ctx, as("bob"), acl.Full(), time.Minute)
	assert.ErrorIs(t, err, common.ErrorPermission)

	_, _, err = d.IssueAccessToken(ctx, as("alice"), acl.Full(), 0)
	assert.ErrorIs(t, err, common.ErrorValidation)

	e.sc.Tokens = nil
	_, _, err = d.IssueAccessToken(ctx, as("alice"), acl.Full(), time.Minute)
	assert.ErrorIs(t, err, common.ErrorUnsupported)
}

func TestSetPermission_KeepsAnOwner(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	d := e.drive(t, "alice", "home")
	before := d.Record().Rules

	err := d.SetPermission(ctx, acl.UserIdentifier("alice"), acl.Rule{Read: true})
	assert.ErrorIs(t, err, common.ErrorPermission)

	stored, err := e.reg.OpenDrive(ctx, d.UID())
	require.NoError(t, err)
	assert.Equal(t, before, stored.Record().Rules)
	assert.Equal(t, before, d.Record().Rules)

	// Handing ownership over first makes the demotion legal.
	require.NoError(t, d.SetPermission(ctx, acl.UserIdentifier("bob"), acl.Rule{Owner: true}))
	require.NoError(t, d.SetPermission(ctx, acl.UserIdentifier("alice"), acl.Rule{Read: true}))

	stored, err = e.reg.OpenDrive(ctx, d.UID())
	require.NoError(t, err)
	assert.Equal(t, acl.Rules{
		{Identifier: acl.UserIdentifier("alice"), Read: true},
		{Identifier: acl.UserIdentifier("bob"), Owner: true},
	}, stored.Record().Rules)
}

func TestSetPermission_RequiresOwnerOpen(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	d := e.drive(t, "alice", "home")

	byUID, err := e.reg.OpenDrive(ctx, d.UID())
	require.NoError(t, err)
	err = byUID.SetPermission(ctx, acl.UserIdentifier("mallory"), acl.Rule{Owner: true})
	assert.ErrorIs(t, err, common.ErrorPermission)

	assert.ErrorIs(t, d.SetPermission(ctx, "", acl.Rule{Read: true}), common.ErrorValidation)
}

func TestUpload_FileRulesNeedWriteAtBothLevels(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	d := e.drive(t, "alice", "home")

	readOnly := acl.Rules{{Identifier: acl.UserIdentifier("alice"), Read: true}}
	meta, _, err := d.Upload(ctx, FileHandle{Filename: "ro", Data: []byte("x"), Rules: readOnly}, as("alice"), nil)
	assert.ErrorIs(t, err, common.ErrorPermission)
	assert.Equal(t, acl.EffectiveACL{Read: true}, meta.ACL)

	_, _, err = d.OpenUploader(ctx, "ro", readOnly, as("alice"))
	assert.ErrorIs(t, err, common.ErrorPermission)

	keys, err := e.store.List(ctx, models.FilePrefix(d.UID()))
	require.NoError(t, err)
	assert.Empty(t, keys, "nothing is written on denial")

	byUID, err := e.reg.OpenDrive(ctx, d.UID())
	require.NoError(t, err)
	_, _, err = byUID.Upload(ctx, FileHandle{Filename: "x", Data: []byte("x")}, as("mallory"), nil)
	assert.ErrorIs(t, err, common.ErrorPermission)
}

func TestListFiles(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	d := e.drive(t, "alice", "home")
	require.NoError(t, d.SetPermission(ctx, acl.UserIdentifier("bob"), acl.Rule{Read: true}))

	uploads := map[string]acl.Rules{
		"a.txt": nil,
		"b.txt": {{Identifier: acl.UserIdentifier("alice"), Owner: true}, {Identifier: acl.UserIdentifier("bob"), Read: true}},
		"c.txt": {{Identifier: acl.UserIdentifier("alice"), Owner: true}},
	}
	for name, rules := range uploads {
		_, _, err := d.Upload(ctx, FileHandle{Filename: name, Data: []byte(name), Rules: rules}, as("alice"), nil)
		require.NoError(t, err)
	}

	names := func(metas []models.FileMeta) []string {
		out := make([]string, 0, len(metas))
		for _, m := range metas {
			out = append(out, m.Filename)
		}
		return out
	}

	all, err := d.ListFiles(ctx, as("bob"), false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt", "c.txt"}, names(all))
	for _, m := range all {
		assert.Nil(t, m.Details)
		assert.Equal(t, acl.EffectiveACL{Read: true}, m.ACL)
	}

	visible, err := d.ListFiles(ctx, as("bob"), true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, names(visible))
	for _, m := range visible {
		require.NotNil(t, m.Details)
		assert.Nil(t, m.Details.Rules, "rules are for owners only")
	}

	owned, err := d.ListFiles(ctx, as("alice"), true)
	require.NoError(t, err)
	assert.Len(t, owned, 3)

	for _, hydrate := range []bool{false, true} {
		none, err := d.ListFiles(ctx, as("mallory"), hydrate)
		assert.ErrorIs(t, err, common.ErrorPermission, "hydrate=%v", hydrate)
		assert.Empty(t, none)
	}
}

func TestListVersions(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	d := e.drive(t, "alice", "home")

	var uids []string
	for _, body := range []string{"one", "two", "three"} {
		meta, _, err := d.Upload(ctx, FileHandle{Filename: "v.txt", Data: []byte(body)}, as("alice"), nil)
		require.NoError(t, err)
		uids = append(uids, meta.Details.UID)
		e.advance(time.Millisecond)
	}

	plain, err := d.ListVersions(ctx, "v.txt", as("alice"), false)
	require.NoError(t, err)
	require.Len(t, plain, 3)
	for i, m := range plain {
		assert.Equal(t, uids[i], m.Details.UID)
		assert.Nil(t, m.Details.Checksum)
	}
	b, err := json.Marshal(plain[0])
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"filesize"`)
	assert.NotContains(t, string(b), `"datetime"`)

	for _, hydrate := range []bool{false, true} {
		denied, err := d.ListVersions(ctx, "v.txt", as("mallory"), hydrate)
		assert.ErrorIs(t, err, common.ErrorPermission, "hydrate=%v", hydrate)
		assert.Empty(t, denied)
		b, err := json.Marshal(denied)
		require.NoError(t, err)
		assert.NotContains(t, string(b), `"uid"`)
	}

	hydrated, err := d.ListVersions(ctx, "v.txt", as("alice"), true)
	require.NoError(t, err)
	require.Len(t, hydrated, 3)
	for i, m := range hydrated {
		assert.Equal(t, uids[i], m.Details.UID)
		assert.Equal(t, int64(len([]string{"one", "two", "three"}[i])), m.Details.Filesize)
	}

	_, payload, err := d.Download(ctx, "v.txt", as("alice"), DownloadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte("three"), payload.Data)

	_, payload, err = d.Download(ctx, "v.txt", as("alice"), DownloadOptions{Version: uids[0]})
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), payload.Data)
}
