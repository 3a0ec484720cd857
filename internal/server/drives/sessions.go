package drives

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/gophdrive/internal/checksum"
	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server/acl"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/google/uuid"
)

const sessionSecretSize = 32

// OpenUploader starts a chunked upload of filename. The caller needs write
// access to the drive and to the new version under rules.
func (d *Drive) OpenUploader(ctx context.Context, filename string, rules acl.Rules, creds Credentials) (meta models.FileMeta, session *models.TransferSession, err error) {
	defer func() { d.sc.Metrics.Upload("chunked", outcome(err)) }()

	clean, enc, err := cleanEncoded(filename)
	if err != nil {
		return models.FileMeta{}, nil, err
	}

	resource := models.UploadFingerprint(d.fileLocation(enc, ""))
	driveACL, id, err := d.ResolveACL(ctx, creds, resource)
	if err != nil {
		return models.FileMeta{}, nil, err
	}
	if !driveACL.Write {
		return models.FileMeta{}, nil, permissionDenied("no write access to drive")
	}

	now := d.sc.now()
	v, err := models.NewChunkedVersion(id.UserGUID, rules, "", now)
	if err != nil {
		return models.FileMeta{}, nil, err
	}
	eff := d.fileACL(rules, id, driveACL)
	meta = models.NewFileMeta(d.UID(), clean, v, eff)
	if !eff.Write {
		return meta, nil, permissionDenied("no write access to file")
	}

	if err := d.saveVersion(ctx, clean, enc, v); err != nil {
		return models.FileMeta{}, nil, err
	}

	secret, err := common.MakeRandHexString(sessionSecretSize)
	if err != nil {
		return models.FileMeta{}, nil, fmt.Errorf("session secret: %w", err)
	}
	session = &models.TransferSession{
		DriveUID: d.UID(),
		FileUID:  v.FileUID,
		Filename: clean,
		FileKey:  models.PayloadKey(v.FileUID),
		Secret:   secret,
		Created:  now,
	}
	if err := d.sc.putJSON(ctx, models.UploaderKey(d.UID(), v.FileUID), session); err != nil {
		return models.FileMeta{}, nil, err
	}

	d.sc.logger().Info(ctx, "upload session opened", "drive", d.UID(), "file", clean, "version", v.FileUID)
	return meta, session, nil
}

// CloseUploader finalizes a chunked upload. Only the caller that takes the
// session aggregates the chunks; every other caller, and any call after
// the session is gone, returns nil.
func (d *Drive) CloseUploader(ctx context.Context, fileUID, secret string) error {
	key := models.UploaderKey(d.UID(), fileUID)

	var s models.TransferSession
	found, err := d.sc.getJSON(ctx, key, &s)
	if err != nil {
		return err
	}
	if !found {
		d.sc.Metrics.Finalize("upload", false)
		return nil
	}
	if !checksum.Equal(s.Secret, secret) {
		return permissionDenied("upload session secret mismatch")
	}

	raw, won, err := d.sc.bucket().Take(ctx, key)
	if err != nil {
		return err
	}
	d.sc.Metrics.Finalize("upload", won)
	if !won {
		return nil
	}

	if err := d.finalizeUpload(ctx, s); err != nil {
		// Put the session back so the close can be retried.
		if _, rerr := d.sc.bucket().SetIfAbsent(ctx, key, raw); rerr != nil {
			d.sc.logger().Error(ctx, "restoring upload session failed", "key", key, "error", rerr)
		}
		return err
	}
	return nil
}

func (d *Drive) finalizeUpload(ctx context.Context, s models.TransferSession) error {
	enc := models.EncodeName(s.Filename)
	v, found, err := d.loadVersion(ctx, enc, s.FileUID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: version %s", common.ErrorNotFound, s.FileUID)
	}

	chunks, err := d.loadChunkMetas(ctx, s.FileUID)
	if err != nil {
		return err
	}
	if !v.Close(chunks) {
		return nil
	}
	if err := d.saveVersion(ctx, s.Filename, enc, v); err != nil {
		return err
	}

	d.sc.logger().Info(ctx, "upload finalized",
		"drive", d.UID(), "file", s.Filename, "version", v.FileUID, "size", v.Filesize, "chunks", *v.Chunks)
	return nil
}

// loadChunkMetas returns the chunk metadata of a version in index order.
// Indices must run from 0 without gaps.
func (d *Drive) loadChunkMetas(ctx context.Context, fileUID string) ([]models.ChunkMeta, error) {
	keys, err := d.sc.bucket().List(ctx, models.ChunkMetaPrefix(fileUID))
	if err != nil {
		return nil, err
	}

	indices := make([]int, 0, len(keys))
	for _, k := range keys {
		if i, ok := models.ChunkIndexFromKey(k); ok {
			indices = append(indices, i)
		}
	}
	sort.Ints(indices)

	chunks := make([]models.ChunkMeta, 0, len(indices))
	for pos, i := range indices {
		if i != pos {
			return nil, fmt.Errorf("%w: chunk %d is missing", common.ErrorValidation, pos)
		}
		var m models.ChunkMeta
		found, err := d.sc.getJSON(ctx, models.ChunkMetaKey(fileUID, i), &m)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: chunk %d meta vanished", common.ErrorValidation, i)
		}
		chunks = append(chunks, m)
	}
	return chunks, nil
}

// openDownloader registers a download session for v under a fresh
// downloader UID.
func (d *Drive) openDownloader(ctx context.Context, filename string, v models.VersionRecord) (*models.TransferSession, error) {
	secret, err := common.MakeRandHexString(sessionSecretSize)
	if err != nil {
		return nil, fmt.Errorf("session secret: %w", err)
	}
	s := &models.TransferSession{
		DriveUID:      d.UID(),
		FileUID:       v.FileUID,
		Filename:      filename,
		FileKey:       models.PayloadKey(v.FileUID),
		Secret:        secret,
		DownloaderUID: uuid.NewString(),
		Created:       d.sc.now(),
	}
	if err := d.sc.putJSON(ctx, models.DownloaderKey(d.UID(), v.FileUID, s.DownloaderUID), s); err != nil {
		return nil, err
	}
	d.sc.logger().Debug(ctx, "download session opened", "drive", d.UID(), "version", v.FileUID, "downloader", s.DownloaderUID)
	return s, nil
}

// OpenDownloader opens a chunked download session for filename. Files that
// were not uploaded in chunks are rejected with common.ErrorTypeMismatch.
func (d *Drive) OpenDownloader(ctx context.Context, filename, version string, creds Credentials) (models.FileMeta, *models.TransferSession, error) {
	meta, payload, err := d.Download(ctx, filename, creds, DownloadOptions{Version: version, MustChunk: true})
	if err != nil {
		return meta, nil, err
	}
	return meta, payload.Session, nil
}

// CloseDownloader drops a download session. Closing a session that is
// already gone is a no-op.
func (d *Drive) CloseDownloader(ctx context.Context, downloaderUID, fileUID, secret string) error {
	key := models.DownloaderKey(d.UID(), fileUID, downloaderUID)

	var s models.TransferSession
	found, err := d.sc.getJSON(ctx, key, &s)
	if err != nil {
		return err
	}
	if !found {
		d.sc.Metrics.Finalize("download", false)
		return nil
	}
	if !checksum.Equal(s.Secret, secret) {
		return permissionDenied("download session secret mismatch")
	}

	_, won, err := d.sc.bucket().Take(ctx, key)
	if err != nil {
		return err
	}
	d.sc.Metrics.Finalize("download", won)
	return nil
}
