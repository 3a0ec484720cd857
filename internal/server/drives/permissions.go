package drives

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server/acl"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

// SetPermission replaces the rule of identifier on the drive. The drive
// must have been opened with owner access, and the result must keep at
// least one owner.
func (d *Drive) SetPermission(ctx context.Context, identifier string, rule acl.Rule) error {
	if !d.acl.Owner {
		return permissionDenied("only drive owners can change permissions")
	}
	if identifier == "" {
		return fmt.Errorf("%w: empty identifier", common.ErrorValidation)
	}
	rule.Identifier = identifier

	key := models.DriveInfoKey(d.UID())
	var fresh models.DriveRecord
	found, err := d.sc.getJSON(ctx, key, &fresh)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: drive %s", common.ErrorMissingDrive, d.UID())
	}

	rules := fresh.Rules.Set(rule)
	if err := acl.EnsureOwner(rules); err != nil {
		return err
	}
	fresh.Rules = rules
	if err := d.sc.putJSON(ctx, key, fresh); err != nil {
		return err
	}

	d.record = fresh
	d.sc.logger().Info(ctx, "drive permission changed", "drive", d.UID(), "identifier", identifier,
		"read", rule.Read, "write", rule.Write, "owner", rule.Owner)
	return nil
}

// IssueAccessToken signs a pre-authorized request for this drive. Only
// owners may issue one, and the token never grants more than the issuer
// holds.
func (d *Drive) IssueAccessToken(ctx context.Context, creds Credentials, tokenACL acl.EffectiveACL, ttl time.Duration) (*models.AccessToken, string, error) {
	if d.sc.Tokens == nil {
		return nil, "", fmt.Errorf("%w: no access token signer configured", common.ErrorUnsupported)
	}
	if ttl <= 0 {
		return nil, "", fmt.Errorf("%w: access token ttl must be positive", common.ErrorValidation)
	}

	callerACL, _, err := d.ResolveACL(ctx, creds, d.Location().String())
	if err != nil {
		return nil, "", err
	}
	if !callerACL.Owner {
		return nil, "", permissionDenied("only drive owners can issue access tokens")
	}

	tok := &models.AccessToken{
		DriveUID: d.UID(),
		ACL:      acl.Combine(callerACL, tokenACL),
		Expires:  d.sc.now().Add(ttl).Truncate(time.Second),
	}
	signed, err := d.sc.Tokens.Sign(*tok)
	if err != nil {
		return nil, "", fmt.Errorf("sign access token: %w", err)
	}
	d.sc.logger().Info(ctx, "access token issued", "drive", d.UID(), "read", tok.ACL.Read, "write", tok.ACL.Write, "expires", tok.Expires)
	return tok, signed, nil
}
