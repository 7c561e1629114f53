package uploader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"drivesend/internal/logger"
	"drivesend/internal/model"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

var mimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".enc":  "application/octet-stream",
}

func mimeType(path string) string {
	if m, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return m
	}

	return "application/octet-stream"
}

// Uploader delivers local files to one Google Drive folder.
type Uploader struct {
	svc        *drive.Service
	folderID   string
	ownerEmail string
	shareOwner bool
}

// New wraps an authenticated Drive service. When shareOwner is set, each
// uploaded file is shared with ownerEmail; required for service-account
// uploads so the files are reachable from the owner's Drive.
func New(svc *drive.Service, folderID, ownerEmail string, shareOwner bool) *Uploader {
	return &Uploader{
		svc:        svc,
		folderID:   folderID,
		ownerEmail: ownerEmail,
		shareOwner: shareOwner && ownerEmail != "",
	}
}

// Deliver uploads path and verifies the reported remote size against the
// local size. A mismatch is not an error: the object exists remotely, so the
// result carries Verified=false and a warning instead.
func (u *Uploader) Deliver(ctx context.Context, path string) (model.UploadResult, error) {
	var result model.UploadResult

	info, err := os.Stat(path)
	if err != nil {
		return result, fmt.Errorf("file not found: %w", err)
	}
	result.LocalSize = info.Size()

	hash, err := sha256Sum(path)
	if err != nil {
		return result, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	result.SHA256 = hash

	f, err := os.Open(path)
	if err != nil {
		return result, fmt.Errorf("failed to open file: %w", err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	meta := &drive.File{
		Name:        filepath.Base(path),
		Description: fmt.Sprintf("Uploaded by drivesend. SHA256: %s", hash),
	}
	if u.folderID != "" {
		meta.Parents = []string{u.folderID}
	}

	created, err := u.svc.Files.Create(meta).
		Media(f, googleapi.ContentType(mimeType(path))).
		Fields("id, name, size").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return result, classify(err)
	}

	result.FileID = created.Id
	result.FileName = created.Name
	result.RemoteSize = created.Size
	result.Verified = created.Size == result.LocalSize
	if !result.Verified {
		result.Warning = fmt.Sprintf("size mismatch: local=%d remote=%d, file may be corrupted", result.LocalSize, created.Size)
	}

	if u.shareOwner {
		u.share(ctx, created.Id)
	}

	return result, nil
}

func (u *Uploader) share(ctx context.Context, fileID string) {
	perm := &drive.Permission{
		Type:         "user",
		Role:         "writer",
		EmailAddress: u.ownerEmail,
	}

	_, err := u.svc.Permissions.Create(fileID, perm).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		logger.Log.Warn("failed to share upload with owner",
			zap.String("file_id", fileID),
			zap.String("owner", u.ownerEmail),
			zap.Error(err))
	}
}

func sha256Sum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
