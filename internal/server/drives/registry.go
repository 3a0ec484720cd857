package drives

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/allegro/bigcache/v3"
	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/server/acl"
	"github.com/dmitrijs2005/gophdrive/internal/server/auth"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/google/uuid"
)

// Registry maps a user's drive paths to drives. The first path segment is
// a top-level drive of the user; each further segment is a sub-drive of
// the previous one.
type Registry struct {
	sc    *StorageContext
	cache *bigcache.BigCache
	log   logging.Logger
}

// NewRegistry returns a registry over sc. cache may be nil. Mapping keys
// are written once, so cached entries never go stale.
func NewRegistry(sc *StorageContext, cache *bigcache.BigCache) *Registry {
	return &Registry{sc: sc, cache: cache, log: sc.logger().With("component", "registry")}
}

// GetDrive resolves path for identity. Missing segments are created when
// autocreate is set and the identity may create them; otherwise
// common.ErrorMissingDrive is returned.
func (r *Registry) GetDrive(ctx context.Context, identity auth.Identity, path string, autocreate bool) (*Drive, error) {
	clean, err := models.CleanName(path)
	if err != nil {
		return nil, err
	}

	var (
		drive    *Drive
		upstream *acl.EffectiveACL
	)
	for _, segment := range strings.Split(clean, "/") {
		if segment == "" {
			continue
		}
		enc := models.EncodeName(segment)

		var key string
		var parentUID *string
		if drive == nil {
			key = models.DriveMapKey(identity.UserGUID, enc)
		} else {
			uid := drive.UID()
			parentUID = &uid
			key = models.SubdriveMapKey(identity.UserGUID, uid, enc)
		}

		uid, found, err := r.lookup(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			mayCreate := identity.Authenticated() && (upstream == nil || upstream.Write)
			if !autocreate || !mayCreate {
				return nil, fmt.Errorf("%w: %s", common.ErrorMissingDrive, segment)
			}
			if uid, err = r.create(ctx, key); err != nil {
				return nil, err
			}
		}

		rec, err := r.load(ctx, identity, uid, parentUID)
		if err != nil {
			return nil, err
		}
		drive = &Drive{sc: r.sc, name: segment, record: rec, upstream: upstream}
		drive.acl = drive.resolve(identity.Identifiers)
		eff := drive.acl
		upstream = &eff
	}
	drive.name = clean
	return drive, nil
}

// OpenDrive loads a drive by UID. The returned drive grants nothing on its
// own; callers authorize every operation through credentials.
func (r *Registry) OpenDrive(ctx context.Context, uid string) (*Drive, error) {
	var rec models.DriveRecord
	found, err := r.sc.getJSON(ctx, models.DriveInfoKey(uid), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: drive %s", common.ErrorMissingDrive, uid)
	}
	return &Drive{sc: r.sc, name: uid, record: rec}, nil
}

// ListDrives lists the identity's top-level drives, or the sub-drives of
// containerUID when it is set.
func (r *Registry) ListDrives(ctx context.Context, identity auth.Identity, containerUID string) ([]models.DriveMeta, error) {
	prefix := models.DriveMapPrefix(identity.UserGUID)
	var upstream *acl.EffectiveACL
	if containerUID != "" {
		prefix = models.SubdriveMapPrefix(identity.UserGUID, containerUID)
		parent, err := r.OpenDrive(ctx, containerUID)
		if err != nil {
			return nil, err
		}
		eff := parent.resolve(identity.Identifiers)
		upstream = &eff
	}

	keys, err := r.sc.bucket().List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	metas := make([]models.DriveMeta, 0, len(keys))
	for _, key := range keys {
		enc := strings.TrimPrefix(key, prefix)
		if strings.Contains(enc, "/") {
			continue
		}
		name, err := models.DecodeName(enc)
		if err != nil {
			r.log.Warn(ctx, "skipping undecodable drive mapping", "key", key, "error", err)
			continue
		}
		uid, found, err := r.lookup(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		var rec models.DriveRecord
		found, err = r.sc.getJSON(ctx, models.DriveInfoKey(uid), &rec)
		if err != nil {
			return nil, err
		}
		if !found {
			rec = models.DriveRecord{UID: uid}
		}
		d := &Drive{sc: r.sc, record: rec, upstream: upstream}
		metas = append(metas, models.NewDriveMeta(name, rec, d.resolve(identity.Identifiers)))
	}
	return metas, nil
}

func (r *Registry) lookup(ctx context.Context, key string) (string, bool, error) {
	if r.cache != nil {
		if v, err := r.cache.Get(key); err == nil {
			return string(v), true, nil
		} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
			r.log.Warn(ctx, "drive cache read failed", "key", key, "error", err)
		}
	}

	raw, found, err := r.sc.bucket().Get(ctx, key)
	if err != nil || !found {
		return "", false, err
	}
	uid := string(raw)
	r.remember(ctx, key, uid)
	return uid, true, nil
}

func (r *Registry) remember(ctx context.Context, key, uid string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(key, []byte(uid)); err != nil {
		r.log.Warn(ctx, "drive cache write failed", "key", key, "error", err)
	}
}

// create claims key for a fresh UID. Concurrent creators converge on
// whichever UID was stored first.
func (r *Registry) create(ctx context.Context, key string) (string, error) {
	candidate := uuid.NewString()
	won, err := r.sc.bucket().SetIfAbsent(ctx, key, []byte(candidate))
	if err != nil {
		return "", fmt.Errorf("create drive mapping: %w", err)
	}
	if won {
		r.sc.Metrics.DriveCreated()
		r.log.Info(ctx, "drive created", "key", key, "uid", candidate)
	}

	raw, found, err := r.sc.bucket().Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: drive mapping %s vanished", common.ErrorMissingDrive, key)
	}
	uid := string(raw)
	r.remember(ctx, key, uid)
	return uid, nil
}

// load reads the DriveRecord of uid. A mapping without a record (the
// creator died between the two writes) is repaired with identity as owner.
func (r *Registry) load(ctx context.Context, identity auth.Identity, uid string, parentUID *string) (models.DriveRecord, error) {
	key := models.DriveInfoKey(uid)

	var rec models.DriveRecord
	found, err := r.sc.getJSON(ctx, key, &rec)
	if err != nil {
		return models.DriveRecord{}, err
	}
	if found {
		return rec, nil
	}

	if !identity.Authenticated() {
		return models.DriveRecord{}, fmt.Errorf("%w: drive %s has no record", common.ErrorMissingDrive, uid)
	}
	rec = models.DriveRecord{UID: uid, ParentUID: parentUID, Rules: acl.Rules{acl.OwnerRule(identity.UserGUID)}}
	kv, err := kvJSON(key, rec)
	if err != nil {
		return models.DriveRecord{}, err
	}
	if _, err := r.sc.bucket().SetIfAbsent(ctx, key, kv.Value); err != nil {
		return models.DriveRecord{}, fmt.Errorf("create drive record: %w", err)
	}

	// Another caller may have written the record first.
	found, err = r.sc.getJSON(ctx, key, &rec)
	if err != nil {
		return models.DriveRecord{}, err
	}
	if !found {
		return models.DriveRecord{}, fmt.Errorf("%w: drive %s record vanished", common.ErrorMissingDrive, uid)
	}
	return rec, nil
}
