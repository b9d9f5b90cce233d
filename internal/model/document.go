package model

import "time"

// Document is an archived generated file.
// This is a pure domain model with no database-specific dependencies or tags.
type Document struct {
	ID             string       `json:"id"`
	Kind           DocumentKind `json:"kind"`
	Filename       string       `json:"filename"`
	DocumentNumber string       `json:"document_number"`
	Customer       string       `json:"customer"`
	Vendor         string       `json:"vendor"`
	GrandTotal     string       `json:"grand_total"`
	StoragePath    string       `json:"storage_path"`
	Size           int64        `json:"size"`
	ContentType    string       `json:"content_type"`
	CreatedAt      time.Time    `json:"created_at"`
}
