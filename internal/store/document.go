package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bullwork-fleet/apiserver/types"
)

// DocumentRepository handles metadata for vehicle documents. The object
// bytes live in the configured storage backend under ObjectKey.
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) ListByVehicle(ctx context.Context, vehicleID int) ([]types.VehicleDocument, error) {
	const query = `
		SELECT id, vehicle_id, object_key, filename, content_type, size_bytes, created_at
		FROM vehicle_documents
		WHERE vehicle_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]types.VehicleDocument, 0)
	for rows.Next() {
		var doc types.VehicleDocument
		if err := rows.Scan(
			&doc.ID,
			&doc.VehicleID,
			&doc.ObjectKey,
			&doc.Filename,
			&doc.ContentType,
			&doc.SizeBytes,
			&doc.CreatedAt,
		); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

func (r *DocumentRepository) Get(ctx context.Context, vehicleID, documentID int) (types.VehicleDocument, error) {
	const query = `
		SELECT id, vehicle_id, object_key, filename, content_type, size_bytes, created_at
		FROM vehicle_documents
		WHERE id = $1 AND vehicle_id = $2`
	var doc types.VehicleDocument
	err := r.db.QueryRowContext(ctx, query, documentID, vehicleID).Scan(
		&doc.ID,
		&doc.VehicleID,
		&doc.ObjectKey,
		&doc.Filename,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.VehicleDocument{}, ErrNotFound
		}
		return types.VehicleDocument{}, err
	}
	return doc, nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc types.VehicleDocument) (types.VehicleDocument, error) {
	doc.CreatedAt = time.Now()

	const query = `
		INSERT INTO vehicle_documents (vehicle_id, object_key, filename, content_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		doc.VehicleID,
		doc.ObjectKey,
		doc.Filename,
		doc.ContentType,
		doc.SizeBytes,
		doc.CreatedAt,
	).Scan(&doc.ID); err != nil {
		return types.VehicleDocument{}, err
	}
	return doc, nil
}
