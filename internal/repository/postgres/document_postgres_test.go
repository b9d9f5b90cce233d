package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotegen/internal/model"
	"quotegen/internal/repository"
)

var cols = []string{"id", "kind", "filename", "document_number", "customer", "vendor", "grand_total", "storage_path", "size", "content_type", "created_at"}

func sampleDoc(now time.Time) *model.Document {
	return &model.Document{
		ID:             "test-uuid",
		Kind:           model.KindQuotation,
		Filename:       "КП_42_Kyiv.docx",
		DocumentNumber: "42",
		Customer:       "ТОВ Сонце",
		Vendor:         "tov",
		GrandTotal:     "61200.00",
		StoragePath:    "documents/test-uuid.docx",
		Size:           123,
		ContentType:    "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		CreatedAt:      now,
	}
}

func docRow(rows *sqlmock.Rows, d *model.Document) *sqlmock.Rows {
	return rows.AddRow(d.ID, string(d.Kind), d.Filename, d.DocumentNumber, d.Customer, d.Vendor, d.GrandTotal, d.StoragePath, d.Size, d.ContentType, d.CreatedAt)
}

func TestDocumentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()
	doc := sampleDoc(time.Now().UTC())

	mock.ExpectQuery("INSERT INTO generated_documents").
		WithArgs(doc.ID, string(doc.Kind), doc.Filename, doc.DocumentNumber, doc.Customer, doc.Vendor,
			doc.GrandTotal, doc.StoragePath, doc.Size, doc.ContentType, doc.CreatedAt).
		WillReturnRows(docRow(sqlmock.NewRows(cols), doc))

	result, err := repo.Create(ctx, doc)

	require.NoError(t, err)
	assert.Equal(t, doc, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_CreateError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO generated_documents").WillReturnError(errors.New("unique violation"))

	result, err := NewDocumentPostgres(db).Create(context.Background(), sampleDoc(time.Now()))
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM generated_documents WHERE id = ?").
			WithArgs("test-uuid").
			WillReturnRows(docRow(sqlmock.NewRows(cols), sampleDoc(time.Now())))

		doc, err := repo.FindByID(ctx, "test-uuid")

		require.NoError(t, err)
		assert.Equal(t, "test-uuid", doc.ID)
		assert.Equal(t, model.KindQuotation, doc.Kind)
		assert.Equal(t, "61200.00", doc.GrandTotal)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM generated_documents WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		doc, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, doc)
	})
}

func TestDocumentPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM generated_documents").
			WithArgs("42").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery("SELECT (.+) FROM generated_documents WHERE (.+) ORDER BY").
			WithArgs(10, 0, "42").
			WillReturnRows(docRow(sqlmock.NewRows(cols), sampleDoc(time.Now())))

		res, err := repo.List(ctx, repository.PageQuery{Limit: 10, Offset: 0, DocumentNumber: "42"})

		require.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Len(t, res.Items, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count error", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM generated_documents").
			WithArgs("").
			WillReturnError(errors.New("connection reset"))

		res, err := repo.List(ctx, repository.PageQuery{Limit: 10})
		assert.Error(t, err)
		assert.Nil(t, res)
	})

	t.Run("empty page", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM generated_documents").
			WithArgs("").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("SELECT (.+) FROM generated_documents WHERE (.+) ORDER BY").
			WithArgs(10, 0, "").
			WillReturnRows(sqlmock.NewRows(cols))

		res, err := repo.List(ctx, repository.PageQuery{Limit: 10})
		require.NoError(t, err)
		assert.NotNil(t, res.Items)
		assert.Empty(t, res.Items)
	})
}

func TestDocumentPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM generated_documents WHERE id = ?").
		WithArgs("test-id").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Delete(ctx, "test-id")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
