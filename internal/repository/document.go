// Package repository contains data access abstractions for the archive of
// generated documents. Implementations live in subpackages (postgres).
package repository

import (
	"context"

	"quotegen/internal/model"
)

// DocumentRepository defines data access for archived documents using SQL queries only.
// No business logic here, strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns a page of documents, newest first, and the total count for the filter.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}

// PageQuery holds limit/offset pagination parameters and an optional
// document number filter.
type PageQuery struct {
	Limit          int
	Offset         int
	DocumentNumber string
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
