package model

import (
	"time"

	"gorm.io/gorm"
)

type UploadStatus string

const (
	StatusSuccess   UploadStatus = "SUCCESS"
	StatusFailed    UploadStatus = "FAILED"
	StatusAbandoned UploadStatus = "ABANDONED"
)

// UploadResult is what the delivery client reports back for one attempt.
// Verified means the remote size matched the local size; Warning carries the
// non-fatal mismatch note when it did not.
type UploadResult struct {
	FileID     string
	FileName   string
	RemoteSize int64
	LocalSize  int64
	SHA256     string
	Verified   bool
	Warning    string
}

type Upload struct {
	gorm.Model
	Path       string `gorm:"not null"`
	FileID     string
	LocalSize  int64
	RemoteSize int64
	Status     UploadStatus `gorm:"not null"`
	Attempts   int
	ErrMsg     string
	UploadedAt time.Time `gorm:"not null"`
}
