package postgres

import (
	"context"
	"database/sql"

	"quotegen/internal/model"
	"quotegen/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const columns = `id, kind, filename, document_number, customer, vendor, grand_total, storage_path, size, content_type, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*model.Document, error) {
	var d model.Document
	if err := s.Scan(
		&d.ID,
		&d.Kind,
		&d.Filename,
		&d.DocumentNumber,
		&d.Customer,
		&d.Vendor,
		&d.GrandTotal,
		&d.StoragePath,
		&d.Size,
		&d.ContentType,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO generated_documents (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + columns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Kind,
		doc.Filename,
		doc.DocumentNumber,
		doc.Customer,
		doc.Vendor,
		doc.GrandTotal,
		doc.StoragePath,
		doc.Size,
		doc.ContentType,
		doc.CreatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID; sql.ErrNoRows is returned as is.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + columns + ` FROM generated_documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
// An empty DocumentNumber matches every row.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM generated_documents WHERE ($1 = '' OR document_number = $1)`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, pq.DocumentNumber).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + columns + `
		FROM generated_documents
		WHERE ($3 = '' OR document_number = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset, pq.DocumentNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM generated_documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
