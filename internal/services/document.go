package services

import (
	"bytes"
	"context"
	"io"
	"path"

	"github.com/bullwork-fleet/apiserver/internal/storage"
	"github.com/bullwork-fleet/apiserver/types"
	"github.com/google/uuid"
)

// DocumentRepository defines metadata persistence for vehicle documents.
type DocumentRepository interface {
	ListByVehicle(ctx context.Context, vehicleID int) ([]types.VehicleDocument, error)
	Get(ctx context.Context, vehicleID, documentID int) (types.VehicleDocument, error)
	Create(ctx context.Context, doc types.VehicleDocument) (types.VehicleDocument, error)
}

// DocumentService stores vehicle document bytes in object storage and
// their metadata in the document repository.
type DocumentService struct {
	repo    DocumentRepository
	storage *storage.Storage
}

func NewDocumentService(repo DocumentRepository, objectStorage *storage.Storage) *DocumentService {
	return &DocumentService{repo: repo, storage: objectStorage}
}

func (s *DocumentService) List(ctx context.Context, vehicleID int) ([]types.VehicleDocument, error) {
	return s.repo.ListByVehicle(ctx, vehicleID)
}

// Upload writes the document to object storage under a generated key and
// records its metadata. The object is removed again if the metadata
// insert fails.
func (s *DocumentService) Upload(ctx context.Context, vehicleID int, filename, contentType string, data []byte) (types.VehicleDocument, error) {
	key := uuid.NewString() + path.Ext(filename)

	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return types.VehicleDocument{}, err
	}

	doc, err := s.repo.Create(ctx, types.VehicleDocument{
		VehicleID:   vehicleID,
		ObjectKey:   key,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	})
	if err != nil {
		_ = s.storage.Delete(ctx, key)
		return types.VehicleDocument{}, err
	}
	return doc, nil
}

// Open returns the document metadata and a reader over its bytes. The
// caller closes the reader.
func (s *DocumentService) Open(ctx context.Context, vehicleID, documentID int) (types.VehicleDocument, io.ReadCloser, error) {
	doc, err := s.repo.Get(ctx, vehicleID, documentID)
	if err != nil {
		return types.VehicleDocument{}, nil, err
	}

	reader, err := s.storage.Get(ctx, doc.ObjectKey)
	if err != nil {
		return types.VehicleDocument{}, nil, err
	}
	return doc, reader, nil
}
