package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/safetyspeak/backend/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrDocumentNotFound is returned when a document does not exist in a collection
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDocumentExists is returned when a document is created twice
	ErrDocumentExists = errors.New("document already exists")
)

// mysqlDuplicateEntry is the MySQL error number for a primary key violation
const mysqlDuplicateEntry = 1062

type documentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository backed by the "documents" table.
//
// Every document is a JSON body addressed by its collection and ID.
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) *documentRepository {
	return &documentRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the body of a document
func (r *documentRepository) Get(ctx context.Context, collection, id string) ([]byte, error) {
	query := `
		SELECT body
		FROM documents
		WHERE collection = ? AND doc_id = ?
		LIMIT 1
	`

	var body []byte
	err := r.db.QueryRowContext(ctx, query, collection, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		r.logger.Error("failed to get document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return body, nil
}

// Set writes the whole body of a document, creating it if missing
func (r *documentRepository) Set(ctx context.Context, collection, id string, body []byte) error {
	query := `
		INSERT INTO documents (collection, doc_id, body)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE body = VALUES(body), version = version + 1
	`

	if _, err := r.db.ExecContext(ctx, query, collection, id, body); err != nil {
		r.logger.Error("failed to set document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to set document: %w", err)
	}

	return nil
}

// Create inserts a new document and returns ErrDocumentExists if the ID is taken
func (r *documentRepository) Create(ctx context.Context, collection, id string, body []byte) error {
	query := `
		INSERT INTO documents (collection, doc_id, body)
		VALUES (?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, collection, id, body); err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return ErrDocumentExists
		}
		r.logger.Error("failed to create document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// Update applies field updates to an existing document
func (r *documentRepository) Update(ctx context.Context, collection, id string, fields models.FieldUpdates) error {
	_, err := r.Transact(ctx, collection, id, func([]byte) (models.FieldUpdates, error) {
		return fields, nil
	})
	return err
}

// Transact runs a read-modify-write cycle on a single document.
//
// The document row stays locked from the read until commit, so concurrent
// transactions on the same document are applied one after another.
// "fn" receives the current body and returns the fields to change.
// When "fn" returns no fields nothing is written.
// Returns the body as it is after the transaction.
func (r *documentRepository) Transact(ctx context.Context, collection, id string, fn func(body []byte) (models.FieldUpdates, error)) ([]byte, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("failed to begin transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			r.logger.Warn("failed to rollback transaction", zap.Error(err))
		}
	}()

	query := `
		SELECT body
		FROM documents
		WHERE collection = ? AND doc_id = ?
		FOR UPDATE
	`

	var body []byte
	err = tx.QueryRowContext(ctx, query, collection, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		r.logger.Error("failed to lock document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to lock document: %w", err)
	}

	fields, err := fn(body)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return body, nil
	}

	updated, err := ApplyFields(body, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to apply fields: %w", err)
	}

	updateQuery := `
		UPDATE documents
		SET body = ?, version = version + 1
		WHERE collection = ? AND doc_id = ?
	`
	if _, err := tx.ExecContext(ctx, updateQuery, updated, collection, id); err != nil {
		r.logger.Error("failed to update document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("failed to commit transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return updated, nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (r *documentRepository) Delete(ctx context.Context, collection, id string) error {
	query := `DELETE FROM documents WHERE collection = ? AND doc_id = ?`

	if _, err := r.db.ExecContext(ctx, query, collection, id); err != nil {
		r.logger.Error("failed to delete document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return nil
}

// DeleteByPrefix removes every document of a collection whose ID starts with the prefix.
//
// Returns the number of deleted documents.
func (r *documentRepository) DeleteByPrefix(ctx context.Context, collection, prefix string) (int64, error) {
	query := `DELETE FROM documents WHERE collection = ? AND doc_id LIKE ?`

	result, err := r.db.ExecContext(ctx, query, collection, escapeLike(prefix)+"%")
	if err != nil {
		r.logger.Error("failed to delete documents", zap.String("collection", collection), zap.String("prefix", prefix), zap.Error(err))
		return 0, fmt.Errorf("failed to delete documents: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected, nil
}

// escapeLike escapes LIKE wildcards so the value matches literally
func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
