package types

import "time"

// FileUpload is the metadata of an object stored in object storage and
// attached to another entity (an incident photo, a patrol photo, a contract).
type FileUpload struct {
	ID          string    `json:"id" db:"id"`
	EntityType  string    `json:"entity_type" db:"entity_type" validate:"required,oneof=client property incident patrol_report appointment user"`
	EntityID    string    `json:"entity_id" db:"entity_id" validate:"required,uuid"`
	Filename    string    `json:"filename" db:"filename" validate:"required,max=255"`
	ContentType string    `json:"content_type" db:"content_type"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	ObjectKey   string    `json:"-" db:"object_key"`
	UploadedBy  *string   `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type FileFilter struct {
	EntityType string
	EntityID   string
}
