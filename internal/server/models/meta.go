package models

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/server/acl"
)

// FileDetails are the fields of a FileMeta visible to a caller with any
// access to the version.
type FileDetails struct {
	UID         string
	DriveUID    string
	Filesize    int64
	Checksum    *string
	UserGUID    string
	Compression string
	Created     time.Time
	Chunks      *int
	Encrypted   bool
	// Rules are only populated for owners.
	Rules acl.Rules
}

// FileMeta is the read view of a file version. Details is nil when the
// caller is denied everything; the view then carries only the filename and
// the denial marker. Unhydrated file listings leave Details nil, and
// unhydrated version listings only fill UID and DriveUID.
type FileMeta struct {
	Filename string
	ACL      acl.EffectiveACL
	Details  *FileDetails
}

// NewFileMeta picks the full or denied variant for eff.
func NewFileMeta(driveUID, filename string, v VersionRecord, eff acl.EffectiveACL) FileMeta {
	m := FileMeta{Filename: filename, ACL: eff}
	if eff.DeniedAll() {
		return m
	}
	d := &FileDetails{
		UID:         v.FileUID,
		DriveUID:    driveUID,
		Filesize:    v.Filesize,
		Checksum:    v.Checksum,
		UserGUID:    v.UserGUID,
		Compression: v.Compression,
		Created:     v.Created,
		Chunks:      v.Chunks,
		Encrypted:   v.Encrypted,
	}
	if eff.Owner {
		d.Rules = v.Rules
	}
	m.Details = d
	return m
}

func (m FileMeta) Denied() bool { return m.ACL.DeniedAll() }

type fileMetaData struct {
	Filename    string           `json:"filename"`
	UID         string           `json:"uid,omitempty"`
	DriveUID    string           `json:"drive_uid,omitempty"`
	Filesize    *int64           `json:"filesize,omitempty"`
	Checksum    *string          `json:"checksum,omitempty"`
	UserGUID    string           `json:"user_guid,omitempty"`
	Compression string           `json:"compression,omitempty"`
	ACL         acl.EffectiveACL `json:"acl"`
	Rules       acl.Rules        `json:"aclrules,omitempty"`
	Created     *time.Time       `json:"datetime,omitempty"`
	Chunks      *int             `json:"nchunks,omitempty"`
	Encrypted   bool             `json:"encrypted,omitempty"`
}

func (m FileMeta) MarshalJSON() ([]byte, error) {
	out := fileMetaData{Filename: m.Filename, ACL: m.ACL}
	if d := m.Details; d != nil {
		out.UID = d.UID
		out.DriveUID = d.DriveUID
		out.Checksum = d.Checksum
		out.UserGUID = d.UserGUID
		out.Compression = d.Compression
		out.Rules = d.Rules
		out.Chunks = d.Chunks
		out.Encrypted = d.Encrypted
		// Every stored version has a creation time; details without one
		// only name the version, so size and time are unknown.
		if !d.Created.IsZero() {
			size, created := d.Filesize, d.Created
			out.Filesize = &size
			out.Created = &created
		}
	}
	return json.Marshal(out)
}

func (m *FileMeta) UnmarshalJSON(b []byte) error {
	var in fileMetaData
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*m = FileMeta{Filename: in.Filename, ACL: in.ACL}
	if in.UID == "" {
		return nil
	}
	d := &FileDetails{
		UID:         in.UID,
		DriveUID:    in.DriveUID,
		Checksum:    in.Checksum,
		UserGUID:    in.UserGUID,
		Compression: in.Compression,
		Rules:       in.Rules,
		Chunks:      in.Chunks,
		Encrypted:   in.Encrypted,
	}
	if in.Filesize != nil {
		d.Filesize = *in.Filesize
	}
	if in.Created != nil {
		d.Created = *in.Created
	}
	m.Details = d
	return nil
}

type DriveDetails struct {
	UID       string
	ParentUID *string
	// Rules are only populated for owners.
	Rules acl.Rules
}

// DriveMeta is the read view of a drive, built like FileMeta.
type DriveMeta struct {
	Name    string
	ACL     acl.EffectiveACL
	Details *DriveDetails
}

func NewDriveMeta(name string, rec DriveRecord, eff acl.EffectiveACL) DriveMeta {
	m := DriveMeta{Name: name, ACL: eff}
	if eff.DeniedAll() {
		return m
	}
	d := &DriveDetails{UID: rec.UID, ParentUID: rec.ParentUID}
	if eff.Owner {
		d.Rules = rec.Rules
	}
	m.Details = d
	return m
}

func (m DriveMeta) Denied() bool { return m.ACL.DeniedAll() }

type driveMetaData struct {
	Name      string           `json:"name"`
	UID       string           `json:"uid,omitempty"`
	ParentUID *string          `json:"parent_uid,omitempty"`
	ACL       acl.EffectiveACL `json:"acl"`
	Rules     acl.Rules        `json:"aclrules,omitempty"`
}

func (m DriveMeta) MarshalJSON() ([]byte, error) {
	out := driveMetaData{Name: m.Name, ACL: m.ACL}
	if d := m.Details; d != nil {
		out.UID = d.UID
		out.ParentUID = d.ParentUID
		out.Rules = d.Rules
	}
	return json.Marshal(out)
}

func (m *DriveMeta) UnmarshalJSON(b []byte) error {
	var in driveMetaData
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*m = DriveMeta{Name: in.Name, ACL: in.ACL}
	if in.UID != "" {
		m.Details = &DriveDetails{UID: in.UID, ParentUID: in.ParentUID, Rules: in.Rules}
	}
	return nil
}
