package models

import (
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/checksum"
	"github.com/dmitrijs2005/gophdrive/internal/server/acl"
)

// TransferSession binds a shared secret to one version for an out-of-band
// chunked upload or download. DownloaderUID is empty for upload sessions.
type TransferSession struct {
	DriveUID      string    `json:"drive_uid"`
	FileUID       string    `json:"version_uid"`
	Filename      string    `json:"filename"`
	FileKey       string    `json:"file_key"`
	Secret        string    `json:"secret"`
	DownloaderUID string    `json:"downloader_uid,omitempty"`
	Created       time.Time `json:"created"`
}

// ChunkSecret is the per-chunk credential a client presents for index.
func (s TransferSession) ChunkSecret(index int) string {
	return checksum.Keyed(s.Secret, s.DriveUID, s.FileUID, strconv.Itoa(index))
}

func (s TransferSession) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.Created) > ttl
}

// AccessToken is a pre-authorized request bound to one drive.
type AccessToken struct {
	DriveUID string           `json:"drive_uid"`
	ACL      acl.EffectiveACL `json:"acl"`
	Expires  time.Time        `json:"expires"`
}

func (t AccessToken) Expired(now time.Time) bool {
	return !now.Before(t.Expires)
}
