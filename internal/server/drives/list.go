package drives

import (
	"context"
	"sort"
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/server/acl"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"golang.org/x/sync/errgroup"
)

// ListFiles lists the files of the drive. Callers with neither read nor
// write access to the drive get common.ErrorPermission. Without hydrate
// every entry only carries its name and the drive ACL. With hydrate each entry is resolved
// against its latest version and entries the caller can neither read nor
// write are dropped.
func (d *Drive) ListFiles(ctx context.Context, creds Credentials, hydrate bool) ([]models.FileMeta, error) {
	driveACL, id, err := d.ResolveACL(ctx, creds, d.Location().String())
	if err != nil {
		return nil, err
	}
	if !visible(driveACL) {
		return nil, permissionDenied("no access to drive")
	}

	prefix := models.FilePrefix(d.UID())
	keys, err := d.sc.bucket().List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	encs := make([]string, 0, len(keys))
	for _, k := range keys {
		enc := strings.TrimPrefix(k, prefix)
		if enc == "" || strings.Contains(enc, "/") {
			continue
		}
		encs = append(encs, enc)
	}

	if !hydrate {
		metas := make([]models.FileMeta, 0, len(encs))
		for _, enc := range encs {
			name, err := models.DecodeName(enc)
			if err != nil {
				d.sc.logger().Warn(ctx, "skipping undecodable file key", "drive", d.UID(), "key", enc, "error", err)
				continue
			}
			metas = append(metas, models.FileMeta{Filename: name, ACL: driveACL})
		}
		return metas, nil
	}

	return d.hydrate(ctx, encs, func(ctx context.Context, enc string) (*models.FileMeta, error) {
		f, found, err := d.loadFile(ctx, enc)
		if err != nil || !found {
			return nil, err
		}
		meta := models.NewFileMeta(d.UID(), f.Filename, f.Latest, d.fileACL(f.Latest.Rules, id, driveACL))
		return &meta, nil
	})
}

// ListVersions lists the versions of filename oldest first, gated like
// ListFiles. Without hydrate entries only carry their version UID; with hydrate they are resolved and
// filtered like ListFiles.
func (d *Drive) ListVersions(ctx context.Context, filename string, creds Credentials, hydrate bool) ([]models.FileMeta, error) {
	clean, enc, err := cleanEncoded(filename)
	if err != nil {
		return nil, err
	}
	driveACL, id, err := d.ResolveACL(ctx, creds, models.DownloadFingerprint(d.Location(), clean))
	if err != nil {
		return nil, err
	}
	if !visible(driveACL) {
		return nil, permissionDenied("no access to drive")
	}

	prefix := models.VersionPrefix(d.UID(), enc)
	keys, err := d.sc.bucket().List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	uids := make([]string, 0, len(keys))
	for _, k := range keys {
		uids = append(uids, strings.TrimPrefix(k, prefix))
	}
	sort.Strings(uids)

	if !hydrate {
		metas := make([]models.FileMeta, 0, len(uids))
		for _, uid := range uids {
			metas = append(metas, models.FileMeta{
				Filename: clean,
				ACL:      driveACL,
				Details:  &models.FileDetails{UID: uid, DriveUID: d.UID()},
			})
		}
		return metas, nil
	}

	return d.hydrate(ctx, uids, func(ctx context.Context, uid string) (*models.FileMeta, error) {
		v, found, err := d.loadVersion(ctx, enc, uid)
		if err != nil || !found {
			return nil, err
		}
		meta := models.NewFileMeta(d.UID(), clean, v, d.fileACL(v.Rules, id, driveACL))
		return &meta, nil
	})
}

// hydrate loads entries concurrently, keeping their order. Entries that
// vanished or that grant neither read nor write are dropped.
func (d *Drive) hydrate(ctx context.Context, entries []string,
	load func(ctx context.Context, entry string) (*models.FileMeta, error)) ([]models.FileMeta, error) {
	results := make([]*models.FileMeta, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.sc.hydrateLimit())
	for i, entry := range entries {
		g.Go(func() error {
			meta, err := load(gctx, entry)
			if err != nil {
				return err
			}
			results[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metas := make([]models.FileMeta, 0, len(results))
	for _, m := range results {
		if m != nil && visible(m.ACL) {
			metas = append(metas, *m)
		}
	}
	return metas, nil
}

func visible(eff acl.EffectiveACL) bool { return eff.Read || eff.Write }

