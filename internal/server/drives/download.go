package drives

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/cryptox"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

// DownloadOptions select what Download returns. Version is a version UID;
// empty means the latest one.
type DownloadOptions struct {
	Version    string
	EncryptKey []byte
	ForcePAR   bool
	MustChunk  bool
}

// Payload is exactly one of embedded bytes, a read-only signed URL or a
// chunked download session.
type Payload struct {
	Data    []byte
	Token   *SignedAccessToken
	Session *models.TransferSession
}

// Download resolves a version of filename for reading. Chunked versions
// always yield a download session. Other versions are returned embedded
// when small enough, or as a signed URL otherwise or when opts.ForcePAR is
// set. Encrypted versions are always returned embedded.
func (d *Drive) Download(ctx context.Context, filename string, creds Credentials, opts DownloadOptions) (meta models.FileMeta, payload *Payload, err error) {
	mode := "embedded"
	defer func() { d.sc.Metrics.Download(mode, outcome(err)) }()

	clean, enc, err := cleanEncoded(filename)
	if err != nil {
		return models.FileMeta{}, nil, err
	}

	resource := models.DownloadFingerprint(d.Location(), clean)
	driveACL, id, err := d.ResolveACL(ctx, creds, resource)
	if err != nil {
		return models.FileMeta{}, nil, err
	}

	v, err := d.findVersion(ctx, enc, opts.Version)
	if err != nil {
		return models.FileMeta{}, nil, err
	}

	eff := d.fileACL(v.Rules, id, driveACL)
	meta = models.NewFileMeta(d.UID(), clean, v, eff)
	if !eff.Read {
		return meta, nil, permissionDenied("no read access to file")
	}

	if v.Chunked() {
		mode = "chunked"
		s, err := d.openDownloader(ctx, clean, v)
		if err != nil {
			return meta, nil, err
		}
		return meta, &Payload{Session: s}, nil
	}
	if opts.MustChunk {
		return meta, nil, fmt.Errorf("%w: %s was not uploaded in chunks", common.ErrorTypeMismatch, clean)
	}

	key := models.PayloadKey(v.FileUID)
	if v.Encrypted || (!opts.ForcePAR && v.Filesize <= d.sc.maxEmbedded()) {
		data, err := d.embeddedPayload(ctx, key, v, opts.EncryptKey)
		if err != nil {
			return meta, nil, err
		}
		return meta, &Payload{Data: data}, nil
	}

	mode = "signed"
	token, err := d.sc.signedURL(ctx, key, true, false, nil)
	if err != nil {
		return meta, nil, err
	}
	return meta, &Payload{Token: token}, nil
}

func (d *Drive) findVersion(ctx context.Context, enc, version string) (models.VersionRecord, error) {
	if version == "" {
		f, found, err := d.loadFile(ctx, enc)
		if err != nil {
			return models.VersionRecord{}, err
		}
		if !found {
			return models.VersionRecord{}, fmt.Errorf("%w: file %s", common.ErrorNotFound, enc)
		}
		return f.Latest, nil
	}

	v, found, err := d.loadVersion(ctx, enc, version)
	if err != nil {
		return models.VersionRecord{}, err
	}
	if !found {
		return models.VersionRecord{}, fmt.Errorf("%w: version %s", common.ErrorNotFound, version)
	}
	return v, nil
}

func (d *Drive) embeddedPayload(ctx context.Context, key string, v models.VersionRecord, encryptKey []byte) ([]byte, error) {
	data, found, err := d.sc.bucket().Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: payload of %s", common.ErrorNotFound, v.FileUID)
	}
	if !v.Encrypted {
		return data, nil
	}

	if len(encryptKey) == 0 {
		return nil, permissionDenied("payload is encrypted")
	}
	plain, err := cryptox.Open(data, encryptKey)
	if err != nil {
		if errors.Is(err, cryptox.ErrCiphertextTooShort) {
			return nil, fmt.Errorf("%w: %w", common.ErrorValidation, err)
		}
		return nil, fmt.Errorf("%w: wrong encryption key", common.ErrorPermission)
	}
	return plain, nil
}
