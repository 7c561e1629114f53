package repository

import (
	"time"

	"drivesend/internal/db"
	"drivesend/internal/model"
)

type UploadRepository struct{}

func NewUploadRepository() *UploadRepository {
	return &UploadRepository{}
}

func (r *UploadRepository) Save(path string, status model.UploadStatus, attempts int, result model.UploadResult, uploadErr error) error {
	errMsg := ""
	if uploadErr != nil {
		errMsg = uploadErr.Error()
	}

	upload := model.Upload{
		Path:       path,
		FileID:     result.FileID,
		LocalSize:  result.LocalSize,
		RemoteSize: result.RemoteSize,
		Status:     status,
		Attempts:   attempts,
		ErrMsg:     errMsg,
		UploadedAt: time.Now(),
	}

	return db.DB.Create(&upload).Error
}

type Stats struct {
	Total     int64
	Success   int64
	Failed    int64
	Abandoned int64
}

func (r *UploadRepository) GetStats() (Stats, error) {
	var stats Stats
	if err := db.DB.Model(&model.Upload{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	if err := db.DB.Model(&model.Upload{}).
		Where("status = ?", model.StatusSuccess).
		Count(&stats.Success).Error; err != nil {
		return stats, err
	}

	if err := db.DB.Model(&model.Upload{}).
		Where("status = ?", model.StatusAbandoned).
		Count(&stats.Abandoned).Error; err != nil {
		return stats, err
	}

	stats.Failed = stats.Total - stats.Success - stats.Abandoned
	return stats, nil
}

func (r *UploadRepository) GetRecent(limit int) ([]model.Upload, error) {
	var uploads []model.Upload
	result := db.DB.
		Order("uploaded_at desc").
		Limit(limit).
		Find(&uploads)

	return uploads, result.Error
}

func (r *UploadRepository) GetFailed() ([]model.Upload, error) {
	var uploads []model.Upload
	result := db.DB.
		Where("status <> ?", model.StatusSuccess).
		Order("uploaded_at desc").
		Find(&uploads)

	return uploads, result.Error
}
