// Package models holds the persisted records of drives, files and transfer sessions
// together with the key layout they are stored under.
package models

import (
	"github.com/dmitrijs2005/gophdrive/internal/compress"
	"github.com/dmitrijs2005/gophdrive/internal/server/acl"
)

// DriveRecord is a container of files. ParentUID is set for sub-drives.
type DriveRecord struct {
	UID       string    `json:"uid"`
	ParentUID *string   `json:"parent_uid,omitempty"`
	Rules     acl.Rules `json:"aclrules,omitempty"`
}

// FileRecord is a named file on a drive pointing at its latest version.
// Older versions live under the version history prefix.
type FileRecord struct {
	DriveUID        string        `json:"drive_uid"`
	Filename        string        `json:"filename"`
	EncodedFilename string        `json:"-"`
	Latest          VersionRecord `json:"latest"`
}

// ChunkMeta is stored next to every uploaded chunk.
type ChunkMeta struct {
	Size        int64  `json:"size"`
	Checksum    string `json:"checksum"`
	Compression string `json:"compression,omitempty"`
}

// Chunk is one step of a chunked download. Data and Meta are nil at
// end-of-stream, when the requested index equals Total.
type Chunk struct {
	Data  []byte
	Meta  *ChunkMeta
	Index int
	Total int
}

// Plain returns the chunk payload with its compression removed.
func (c Chunk) Plain() ([]byte, error) {
	if c.Meta == nil {
		return nil, nil
	}
	return compress.Decompress(c.Meta.Compression, c.Data)
}
