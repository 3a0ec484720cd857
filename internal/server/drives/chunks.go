package drives

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/checksum"
	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/compress"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/objects"
)

// UploadChunk stores chunk index of an open upload session. secret is the
// per-chunk secret derived from the session secret; sum is the checksum
// of data as sent. Re-sending a chunk overwrites it.
func (d *Drive) UploadChunk(ctx context.Context, fileUID string, index int, secret string, data []byte, sum, compression string) error {
	var s models.TransferSession
	found, err := d.sc.getJSON(ctx, models.UploaderKey(d.UID(), fileUID), &s)
	if err != nil {
		return err
	}
	if !found {
		return permissionDenied("no upload session")
	}
	if !checksum.Equal(s.ChunkSecret(index), secret) {
		return permissionDenied("chunk secret mismatch")
	}
	if index < 0 {
		return fmt.Errorf("%w: chunk %d", common.ErrorIndex, index)
	}
	if !compress.Valid(compression) {
		return fmt.Errorf("%w: unknown compression %q", common.ErrorValidation, compression)
	}
	if !checksum.Equal(checksum.Sum(data), sum) {
		return fmt.Errorf("%w: chunk %d checksum mismatch", common.ErrorValidation, index)
	}

	meta, err := kvJSON(models.ChunkMetaKey(fileUID, index), models.ChunkMeta{
		Size:        int64(len(data)),
		Checksum:    sum,
		Compression: compression,
	})
	if err != nil {
		return err
	}
	// Data before meta: a chunk counts once its meta exists.
	kvs := []objects.KV{{Key: models.ChunkDataKey(fileUID, index), Value: data}, meta}
	if err := objects.SetAll(ctx, d.sc.bucket(), kvs); err != nil {
		return err
	}

	d.sc.Metrics.Chunk("upload", len(data))
	return nil
}

// DownloadChunk returns chunk index of a closed chunked version. Negative
// indices count from the end. Asking for index == Total yields a chunk
// with no data and no meta, marking the end of the stream.
func (d *Drive) DownloadChunk(ctx context.Context, fileUID, downloaderUID string, index int, secret string) (*models.Chunk, error) {
	var s models.TransferSession
	found, err := d.sc.getJSON(ctx, models.DownloaderKey(d.UID(), fileUID, downloaderUID), &s)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, permissionDenied("no download session")
	}
	if !checksum.Equal(s.ChunkSecret(index), secret) {
		return nil, permissionDenied("chunk secret mismatch")
	}

	v, found, err := d.loadVersion(ctx, models.EncodeName(s.Filename), s.FileUID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: version %s", common.ErrorNotFound, s.FileUID)
	}
	if !v.Chunked() {
		return nil, fmt.Errorf("%w: version %s is not chunked", common.ErrorTypeMismatch, v.FileUID)
	}
	if v.Uploading() {
		return nil, fmt.Errorf("%w: version %s is still uploading", common.ErrorIndex, v.FileUID)
	}

	total := *v.Chunks
	i := index
	if i < 0 {
		i += total
	}
	switch {
	case i < 0 || i > total:
		return nil, fmt.Errorf("%w: chunk %d of %d", common.ErrorIndex, index, total)
	case i == total:
		return &models.Chunk{Index: i, Total: total}, nil
	}

	data, found, err := d.sc.bucket().Get(ctx, models.ChunkDataKey(s.FileUID, i))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: chunk %d data", common.ErrorNotFound, i)
	}
	var meta models.ChunkMeta
	found, err = d.sc.getJSON(ctx, models.ChunkMetaKey(s.FileUID, i), &meta)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: chunk %d meta", common.ErrorNotFound, i)
	}

	d.sc.Metrics.Chunk("download", len(data))
	return &models.Chunk{Data: data, Meta: &meta, Index: i, Total: total}, nil
}
