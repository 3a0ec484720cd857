package drives

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/checksum"
	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/compress"
	"github.com/dmitrijs2005/gophdrive/internal/cryptox"
	"github.com/dmitrijs2005/gophdrive/internal/server/acl"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

// FileHandle describes a whole-file upload. Data may be nil for payloads
// that will be sent through a signed URL; Size and Checksum are then the
// promise the transfer is validated against. Compression names the codec
// Data is already encoded with.
type FileHandle struct {
	Filename    string
	Data        []byte
	Size        int64
	Checksum    string
	Compression string
	Rules       acl.Rules
}

// Upload stores a new direct version of handle.Filename. Payloads that fit
// MaxEmbeddedSize are written at once, sealed with encryptKey when it is
// set. Larger payloads get an empty placeholder and a write-only signed
// URL whose Complete re-validates the written object.
func (d *Drive) Upload(ctx context.Context, handle FileHandle, creds Credentials, encryptKey []byte) (meta models.FileMeta, token *SignedAccessToken, err error) {
	mode := "embedded"
	defer func() { d.sc.Metrics.Upload(mode, outcome(err)) }()

	clean, enc, err := cleanEncoded(handle.Filename)
	if err != nil {
		return models.FileMeta{}, nil, err
	}
	if !compress.Valid(handle.Compression) {
		return models.FileMeta{}, nil, fmt.Errorf("%w: unknown compression %q", common.ErrorValidation, handle.Compression)
	}

	resource := models.UploadFingerprint(d.fileLocation(enc, ""))
	driveACL, id, err := d.ResolveACL(ctx, creds, resource)
	if err != nil {
		return models.FileMeta{}, nil, err
	}
	if !driveACL.Write {
		return models.FileMeta{}, nil, permissionDenied("no write access to drive")
	}

	embedded := handle.Data != nil && int64(len(handle.Data)) <= d.sc.maxEmbedded()
	size, sum := handle.Size, handle.Checksum
	if handle.Data != nil {
		size = int64(len(handle.Data))
		sum = checksum.Sum(handle.Data)
		if handle.Checksum != "" && !checksum.Equal(handle.Checksum, sum) {
			return models.FileMeta{}, nil, fmt.Errorf("%w: checksum mismatch", common.ErrorValidation)
		}
		if handle.Size != 0 && handle.Size != size {
			return models.FileMeta{}, nil, fmt.Errorf("%w: size mismatch", common.ErrorValidation)
		}
	}
	if !embedded {
		mode = "signed"
		if len(encryptKey) > 0 {
			return models.FileMeta{}, nil, fmt.Errorf("%w: only embedded payloads can be encrypted", common.ErrorValidation)
		}
		if len(sum) != checksum.Size || size < 0 {
			return models.FileMeta{}, nil, fmt.Errorf("%w: signed upload needs size and checksum", common.ErrorValidation)
		}
	}

	v, err := models.NewDirectVersion(id.UserGUID, size, sum, handle.Rules, handle.Compression, d.sc.now())
	if err != nil {
		return models.FileMeta{}, nil, err
	}
	v.Encrypted = embedded && len(encryptKey) > 0

	eff := d.fileACL(handle.Rules, id, driveACL)
	meta = models.NewFileMeta(d.UID(), clean, v, eff)
	if !eff.Write {
		return meta, nil, permissionDenied("no write access to file")
	}

	payloadKey := models.PayloadKey(v.FileUID)
	payload := []byte{}
	if embedded {
		payload = handle.Data
		if v.Encrypted {
			if payload, err = cryptox.Seal(handle.Data, encryptKey); err != nil {
				return models.FileMeta{}, nil, fmt.Errorf("seal payload: %w", err)
			}
		}
	}
	if err := d.sc.bucket().Set(ctx, payloadKey, payload); err != nil {
		return models.FileMeta{}, nil, err
	}
	if err := d.saveVersion(ctx, clean, enc, v); err != nil {
		return models.FileMeta{}, nil, err
	}

	if !embedded {
		token, err = d.sc.signedURL(ctx, payloadKey, false, true, d.validatePayload(payloadKey, size, sum))
		if err != nil {
			return models.FileMeta{}, nil, err
		}
	}

	d.sc.logger().Info(ctx, "file uploaded", "drive", d.UID(), "file", clean, "version", v.FileUID, "mode", mode, "size", size)
	return meta, token, nil
}

// validatePayload checks the object written through a signed URL against
// the size and checksum promised when the URL was issued.
func (d *Drive) validatePayload(key string, size int64, sum string) CompletionFunc {
	return func(ctx context.Context) error {
		data, found, err := d.sc.bucket().Get(ctx, key)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: %s was not written", common.ErrorValidation, key)
		}
		if int64(len(data)) != size {
			return fmt.Errorf("%w: %s has %d bytes, want %d", common.ErrorValidation, key, len(data), size)
		}
		if !checksum.Equal(checksum.Sum(data), sum) {
			return fmt.Errorf("%w: %s checksum mismatch", common.ErrorValidation, key)
		}
		return nil
	}
}
