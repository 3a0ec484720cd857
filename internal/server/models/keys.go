package models

import (
	"strconv"
	"strings"
)

// Object-store key layout.
const (
	storageRoot      = "storage"
	UploaderPrefix   = "storage/uploader/"
	DownloaderPrefix = "storage/downloader/"
)

func key(parts ...string) string {
	return storageRoot + "/" + strings.Join(parts, "/")
}

func DriveInfoKey(driveUID string) string { return key("drive", driveUID, "info") }

func FileKey(driveUID, encodedFilename string) string {
	return key("file", driveUID, encodedFilename)
}

func FilePrefix(driveUID string) string { return key("file", driveUID) + "/" }

func VersionKey(driveUID, encodedFilename, versionUID string) string {
	return key("version", driveUID, encodedFilename, versionUID)
}

func VersionPrefix(driveUID, encodedFilename string) string {
	return key("version", driveUID, encodedFilename) + "/"
}

// PayloadKey is where a direct version's bytes live and the root of a
// chunked version's data and meta keys.
func PayloadKey(versionUID string) string { return key("file", versionUID) }

func ChunkDataKey(versionUID string, index int) string {
	return key("file", versionUID, "data", strconv.Itoa(index))
}

func ChunkMetaKey(versionUID string, index int) string {
	return key("file", versionUID, "meta", strconv.Itoa(index))
}

func ChunkMetaPrefix(versionUID string) string { return key("file", versionUID, "meta") + "/" }

func UploaderKey(driveUID, fileUID string) string { return key("uploader", driveUID, fileUID) }

func DownloaderKey(driveUID, fileUID, downloaderUID string) string {
	return key("downloader", driveUID, fileUID, downloaderUID)
}

func DriveMapKey(userGUID, encodedName string) string {
	return key("drives", userGUID, encodedName)
}

func DriveMapPrefix(userGUID string) string { return key("drives", userGUID) + "/" }

func SubdriveMapKey(userGUID, parentUID, encodedName string) string {
	return key("subdrives", userGUID, parentUID, encodedName)
}

func SubdriveMapPrefix(userGUID, parentUID string) string {
	return key("subdrives", userGUID, parentUID) + "/"
}

// ChunkIndexFromKey extracts the trailing index of a chunk data or meta key.
func ChunkIndexFromKey(k string) (int, bool) {
	i := strings.LastIndexByte(k, '/')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(k[i+1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
