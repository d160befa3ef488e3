package model

import "time"

// ReportExport records a recap workbook uploaded to object storage.
type ReportExport struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrderID   int64  `gorm:"not null;index" json:"order_id"`
	ObjectKey string `gorm:"type:varchar(255);not null" json:"object_key"`
	URL       string `gorm:"type:text;not null" json:"url"`
	SizeBytes int64  `json:"size_bytes"`
	ActorName string `gorm:"type:varchar(100)" json:"actor_name,omitempty"`
}

func (ReportExport) TableName() string {
	return "report_exports"
}
