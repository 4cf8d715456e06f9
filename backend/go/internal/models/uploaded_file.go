package models

import (
	"time"

	"gorm.io/datatypes"
)

// UploadedFile records a file accepted by the upload endpoint.
// Name is unique; re-uploading the same name updates the row.
type UploadedFile struct {
	ID         uint           `gorm:"primaryKey"`
	Name       string         `gorm:"uniqueIndex;not null;size:255"`
	Size       int64          `gorm:"not null"`
	MIMEType   string         `gorm:"size:128"`
	ObjectKey  string         `gorm:"size:512"` // key in the object store mirror, empty when not mirrored
	LastTaskID string         `gorm:"size:64"`
	Metadata   datatypes.JSON // free-form details such as the detected extension
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FileInfo is one entry of the upload directory listing.
type FileInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}
