// ABOUTME: This file provides the repository for deal-attached objects (tasks, activity).
// ABOUTME: It implements CRUD operations for the objects table with JSON field storage.

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/objects"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidObject  = errors.New("invalid object")
)

// ObjectsRepository provides CRUD operations for objects.
type ObjectsRepository struct {
	db *sql.DB
}

// NewObjectsRepository creates a new objects repository.
func NewObjectsRepository(db *sql.DB) *ObjectsRepository {
	return &ObjectsRepository{db: db}
}

// Create creates a new object in the database.
func (r *ObjectsRepository) Create(ctx context.Context, obj *objects.BaseObject) error {
	if obj == nil || obj.Kind == "" {
		return ErrInvalidObject
	}

	if obj.ID == uuid.Nil {
		obj.ID = uuid.New()
	}
	if obj.CreatedAt.IsZero() {
		obj.CreatedAt = time.Now().UTC()
	}
	obj.UpdatedAt = obj.CreatedAt

	fieldsJSON, err := json.Marshal(obj.Fields)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO objects (id, type, name, owner_id, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		obj.ID.String(),
		obj.Kind,
		obj.CreatedBy,
		obj.OwnerID.String(),
		fieldsJSON,
		obj.CreatedAt,
		obj.UpdatedAt,
	)

	return translate(err)
}

// Get retrieves an object by ID.
func (r *ObjectsRepository) Get(ctx context.Context, id uuid.UUID) (*objects.BaseObject, error) {
	query := `
		SELECT id, type, name, owner_id, metadata, created_at, updated_at
		FROM objects
		WHERE id = ?
	`

	obj, err := scanObject(r.db.QueryRowContext(ctx, query, id.String()))
	if err == sql.ErrNoRows {
		return nil, ErrObjectNotFound
	}
	return obj, err
}

// Update updates an existing object's fields.
func (r *ObjectsRepository) Update(ctx context.Context, obj *objects.BaseObject) error {
	if obj == nil || obj.ID == uuid.Nil {
		return ErrInvalidObject
	}

	obj.UpdatedAt = time.Now().UTC()

	fieldsJSON, err := json.Marshal(obj.Fields)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE objects
		SET metadata = ?, updated_at = ?
		WHERE id = ?
	`, fieldsJSON, obj.UpdatedAt, obj.ID.String())
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrObjectNotFound
	}

	return nil
}

// ListByOwner retrieves objects of a kind attached to an owner, oldest first.
func (r *ObjectsRepository) ListByOwner(ctx context.Context, kind string, ownerID uuid.UUID) ([]*objects.BaseObject, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, name, owner_id, metadata, created_at, updated_at
		FROM objects
		WHERE type = ? AND owner_id = ?
		ORDER BY created_at ASC
	`, kind, ownerID.String())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	list := make([]*objects.BaseObject, 0)

	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, obj)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func scanObject(row interface{ Scan(...any) error }) (*objects.BaseObject, error) {
	var obj objects.BaseObject
	var fieldsJSON []byte

	err := row.Scan(
		&obj.ID,
		&obj.Kind,
		&obj.CreatedBy,
		&obj.OwnerID,
		&fieldsJSON,
		&obj.CreatedAt,
		&obj.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(fieldsJSON) > 0 && string(fieldsJSON) != "null" {
		if err := json.Unmarshal(fieldsJSON, &obj.Fields); err != nil {
			return nil, err
		}
	} else {
		obj.Fields = make(map[string]interface{})
	}

	return &obj, nil
}
