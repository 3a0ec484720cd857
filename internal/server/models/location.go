package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/common"
)

const (
	driveScheme = "drive://"
	fileScheme  = "file://"
)

// Location addresses a drive or a file (optionally one version of it) on a
// service. It is the fingerprint authorization checks are made against.
type Location struct {
	DriveUID        string
	ServiceID       string
	EncodedFilename string
	VersionUID      string
}

func DriveLocation(driveUID, serviceID string) Location {
	return Location{DriveUID: driveUID, ServiceID: serviceID}
}

func FileLocation(driveUID, serviceID, encodedFilename, versionUID string) Location {
	return Location{DriveUID: driveUID, ServiceID: serviceID, EncodedFilename: encodedFilename, VersionUID: versionUID}
}

// DriveGUID is "{driveUid}@{serviceId}".
func (l Location) DriveGUID() string { return l.DriveUID + "@" + l.ServiceID }

func (l Location) IsFile() bool { return l.EncodedFilename != "" }

func (l Location) String() string {
	if !l.IsFile() {
		return driveScheme + l.DriveGUID()
	}
	s := fileScheme + l.DriveGUID() + "/" + l.EncodedFilename
	if l.VersionUID != "" {
		s += "/" + l.VersionUID
	}
	return s
}

// ParseLocation is the inverse of Location.String. Version UIDs may contain
// '/', encoded filenames never do.
func ParseLocation(s string) (Location, error) {
	var rest string
	var isFile bool
	switch {
	case strings.HasPrefix(s, driveScheme):
		rest = strings.TrimPrefix(s, driveScheme)
	case strings.HasPrefix(s, fileScheme):
		rest = strings.TrimPrefix(s, fileScheme)
		isFile = true
	default:
		return Location{}, fmt.Errorf("%w: unknown location scheme %q", common.ErrorValidation, s)
	}

	guid, path, _ := strings.Cut(rest, "/")
	driveUID, serviceID, ok := strings.Cut(guid, "@")
	if !ok || driveUID == "" || serviceID == "" {
		return Location{}, fmt.Errorf("%w: bad drive guid in %q", common.ErrorValidation, s)
	}
	loc := Location{DriveUID: driveUID, ServiceID: serviceID}

	if !isFile {
		if path != "" {
			return Location{}, fmt.Errorf("%w: drive location has a path: %q", common.ErrorValidation, s)
		}
		return loc, nil
	}

	enc, version, _ := strings.Cut(path, "/")
	if enc == "" {
		return Location{}, fmt.Errorf("%w: file location without filename: %q", common.ErrorValidation, s)
	}
	loc.EncodedFilename = enc
	loc.VersionUID = version
	return loc, nil
}

// UploadFingerprint is the resource string an upload is authorized against.
func UploadFingerprint(l Location) string { return "upload " + l.String() }

// DownloadFingerprint is the resource string a download is authorized against.
func DownloadFingerprint(l Location, filename string) string {
	return "download " + l.DriveGUID() + " " + filename
}
