package drives

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server/acl"
	"github.com/dmitrijs2005/gophdrive/internal/server/auth"
	"github.com/dmitrijs2005/gophdrive/internal/server/metrics"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/objects"
)

// Credentials carry exactly one authorization mode:
//   - Token: a user token, verified against the resource being accessed;
//   - AccessToken with Identity: a pre-authorized request for one drive;
//   - Identity alone: an already verified caller.
type Credentials struct {
	Token       string
	AccessToken *models.AccessToken
	Identity    *auth.Identity
}

func WithToken(token string) Credentials { return Credentials{Token: token} }

func WithIdentity(id auth.Identity) Credentials { return Credentials{Identity: &id} }

func WithAccessToken(tok models.AccessToken, id auth.Identity) Credentials {
	return Credentials{AccessToken: &tok, Identity: &id}
}

// Drive is an opened DriveRecord. acl is what the opening identity was
// granted; operations resolve their own ACL from the credentials they get.
type Drive struct {
	sc       *StorageContext
	name     string
	record   models.DriveRecord
	acl      acl.EffectiveACL
	upstream *acl.EffectiveACL
}

func (d *Drive) UID() string { return d.record.UID }

func (d *Drive) Record() models.DriveRecord { return d.record }

func (d *Drive) Location() models.Location {
	return models.DriveLocation(d.record.UID, d.sc.ServiceID)
}

// Meta is the drive's read view for the identity that opened it.
func (d *Drive) Meta() models.DriveMeta {
	return models.NewDriveMeta(d.name, d.record, d.acl)
}

func (d *Drive) resolve(ids []string) acl.EffectiveACL {
	return d.sc.resolver().Resolve(d.record.Rules, ids, d.upstream)
}

// ResolveACL computes the caller's effective ACL on this drive for resource.
func (d *Drive) ResolveACL(ctx context.Context, creds Credentials, resource string) (acl.EffectiveACL, auth.Identity, error) {
	switch {
	case creds.Token != "" && creds.AccessToken == nil && creds.Identity == nil:
		if d.sc.Verifier == nil {
			return acl.EffectiveACL{}, auth.Identity{}, fmt.Errorf("%w: no token verifier configured", common.ErrorUnsupported)
		}
		id, err := d.sc.Verifier.Verify(ctx, creds.Token, resource)
		if err != nil {
			return acl.EffectiveACL{}, auth.Identity{}, err
		}
		return d.resolve(id.Identifiers), id, nil

	case creds.Token == "" && creds.AccessToken != nil && creds.Identity != nil:
		tok := creds.AccessToken
		if tok.DriveUID != d.record.UID {
			return acl.EffectiveACL{}, auth.Identity{}, fmt.Errorf("%w: access token is bound to another drive", common.ErrorPermission)
		}
		if tok.Expired(d.sc.now()) {
			return acl.EffectiveACL{}, auth.Identity{}, fmt.Errorf("%w: %w", common.ErrorPermission, common.ErrTokenExpired)
		}
		return acl.Combine(d.resolve(creds.Identity.Identifiers), tok.ACL), *creds.Identity, nil

	case creds.Token == "" && creds.AccessToken == nil && creds.Identity != nil:
		return d.resolve(creds.Identity.Identifiers), *creds.Identity, nil

	default:
		return acl.EffectiveACL{}, auth.Identity{}, fmt.Errorf("%w: credentials must carry exactly one authorization mode", common.ErrorTypeMismatch)
	}
}

// fileACL narrows the drive ACL by a version's own rules. Write access is
// needed at both levels.
func (d *Drive) fileACL(rules acl.Rules, id auth.Identity, driveACL acl.EffectiveACL) acl.EffectiveACL {
	fileLevel := d.sc.resolver().Resolve(rules, id.Identifiers, &driveACL)
	return acl.Combine(driveACL, fileLevel)
}

func (d *Drive) fileLocation(encodedFilename, versionUID string) models.Location {
	return models.FileLocation(d.record.UID, d.sc.ServiceID, encodedFilename, versionUID)
}

func (d *Drive) loadFile(ctx context.Context, encodedFilename string) (models.FileRecord, bool, error) {
	var rec models.FileRecord
	found, err := d.sc.getJSON(ctx, models.FileKey(d.record.UID, encodedFilename), &rec)
	rec.EncodedFilename = encodedFilename
	return rec, found, err
}

func (d *Drive) loadVersion(ctx context.Context, encodedFilename, versionUID string) (models.VersionRecord, bool, error) {
	var v models.VersionRecord
	found, err := d.sc.getJSON(ctx, models.VersionKey(d.record.UID, encodedFilename, versionUID), &v)
	return v, found, err
}

// saveVersion persists v into the version history and, unless a newer
// version is already current, as the file's latest version.
func (d *Drive) saveVersion(ctx context.Context, filename, encodedFilename string, v models.VersionRecord) error {
	current, found, err := d.loadFile(ctx, encodedFilename)
	if err != nil {
		return err
	}

	history, err := kvJSON(models.VersionKey(d.record.UID, encodedFilename, v.FileUID), v)
	if err != nil {
		return err
	}
	kvs := []objects.KV{history}

	if !found || current.Latest.FileUID <= v.FileUID {
		file, err := kvJSON(models.FileKey(d.record.UID, encodedFilename), models.FileRecord{
			DriveUID: d.record.UID,
			Filename: filename,
			Latest:   v,
		})
		if err != nil {
			return err
		}
		kvs = append(kvs, file)
	}
	return objects.SetAll(ctx, d.sc.bucket(), kvs)
}

func cleanEncoded(filename string) (string, string, error) {
	clean, err := models.CleanName(filename)
	if err != nil {
		return "", "", err
	}
	return clean, models.EncodeName(clean), nil
}

func permissionDenied(what string) error {
	return fmt.Errorf("%w: %s", common.ErrorPermission, what)
}

// outcome maps an operation error to a metrics result label.
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, common.ErrorPermission):
		return metrics.ResultDenied
	default:
		return metrics.ResultError
	}
}
