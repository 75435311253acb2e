package models

import "gorm.io/gorm"

type Photo struct {
	gorm.Model
	Filename     string  `json:"filename" gorm:"uniqueIndex"`
	OriginalName string  `json:"original_name"`
	MimeType     string  `json:"mime_type"`
	FileSize     int64   `json:"file_size"`
	GuestName    string  `json:"guest_name"`
	Message      *string `json:"message"`
	Approved     bool    `json:"approved" gorm:"index"`
}
