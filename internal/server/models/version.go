package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/checksum"
	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server/acl"
)

// fileUIDLayout sorts lexicographically in time order.
const fileUIDLayout = "2006-01-02T15:04:05.000000Z"

// NewFileUID returns "{timestamp}/{16 hex}" for a version created at now.
func NewFileUID(now time.Time) (string, error) {
	suffix, err := common.MakeRandHexString(8)
	if err != nil {
		return "", err
	}
	return now.UTC().Format(fileUIDLayout) + "/" + suffix, nil
}

// VersionRecord is one immutable version of a file.
//
// A direct version knows its size and checksum at construction. A chunked
// version starts with Filesize 0, Checksum nil and Chunks pointing at 0; it is
// uploading until Close aggregates its chunks, after which it never changes.
type VersionRecord struct {
	FileUID     string    `json:"file_uid"`
	Created     time.Time `json:"datetime"`
	Filesize    int64     `json:"filesize"`
	Checksum    *string   `json:"checksum"`
	UserGUID    string    `json:"user_guid"`
	Rules       acl.Rules `json:"aclrules,omitempty"`
	Compression string    `json:"compression,omitempty"`
	Chunks      *int      `json:"nchunks,omitempty"`
	// Encrypted marks embedded payloads sealed with a caller key.
	Encrypted   bool      `json:"encrypted,omitempty"`
}

// NewDirectVersion builds a version whose payload is written in one piece.
func NewDirectVersion(userGUID string, size int64, sum string, rules acl.Rules, compression string, now time.Time) (VersionRecord, error) {
	uid, err := NewFileUID(now)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("version uid: %w", err)
	}
	return VersionRecord{
		FileUID:     uid,
		Created:     now.UTC().Truncate(time.Microsecond),
		Filesize:    size,
		Checksum:    &sum,
		UserGUID:    userGUID,
		Rules:       rules,
		Compression: compression,
	}, nil
}

// NewChunkedVersion builds a version in the uploading state.
func NewChunkedVersion(userGUID string, rules acl.Rules, compression string, now time.Time) (VersionRecord, error) {
	uid, err := NewFileUID(now)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("version uid: %w", err)
	}
	zero := 0
	return VersionRecord{
		FileUID:     uid,
		Created:     now.UTC().Truncate(time.Microsecond),
		UserGUID:    userGUID,
		Rules:       rules,
		Compression: compression,
		Chunks:      &zero,
	}, nil
}

func (v VersionRecord) Chunked() bool { return v.Chunks != nil }

// Uploading reports whether the version still accepts chunks.
func (v VersionRecord) Uploading() bool { return v.Chunked() && v.Checksum == nil }

// Close aggregates chunk metadata (in index order) into the version's size,
// checksum and chunk count. It reports false and changes nothing when the
// version is already closed.
func (v *VersionRecord) Close(chunks []ChunkMeta) bool {
	if !v.Uploading() {
		return false
	}
	agg := checksum.NewAggregator()
	for _, c := range chunks {
		agg.Add(c.Checksum, c.Size)
	}
	sum, size, n := agg.Sum()
	v.Filesize = size
	v.Checksum = &sum
	v.Chunks = &n
	return true
}
