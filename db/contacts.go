// ABOUTME: Contact and tag database operations
// ABOUTME: Handles contact CRUD, lookups and contact tagging
package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
)

func CreateContact(ctx context.Context, db *sql.DB, contact *models.Contact) error {
	contact.ID = uuid.New()
	if contact.Status == "" {
		contact.Status = models.ContactStatusLead
	}
	now := time.Now().UTC()

	_, err := db.ExecContext(ctx, `
		INSERT INTO contacts (id, name, email, company, phone, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, contact.ID.String(), contact.Name, contact.Email, contact.Company, contact.Phone, contact.Status, now, now)
	if err != nil {
		return translate(err)
	}

	for _, tag := range contact.Tags {
		if err := TagContact(ctx, db, contact.ID, tag.ID); err != nil {
			return err
		}
	}
	return nil
}

// GetContact returns the contact with its tags, or nil when it does not exist.
func GetContact(ctx context.Context, db *sql.DB, id uuid.UUID) (*models.Contact, error) {
	c := &models.Contact{}
	err := db.QueryRowContext(ctx, `
		SELECT id, name, email, company, phone, status FROM contacts WHERE id = ?
	`, id.String()).Scan(&c.ID, &c.Name, &c.Email, &c.Company, &c.Phone, &c.Status)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tags, err := contactTags(ctx, db)
	if err != nil {
		return nil, err
	}
	c.Tags = tags[c.ID]
	return c, nil
}

// ListContacts returns contacts whose name, email or company contains query.
func ListContacts(ctx context.Context, db *sql.DB, query string) ([]models.Contact, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, email, company, phone, status FROM contacts
		WHERE LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?
		ORDER BY name ASC
	`, pattern, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	contacts := []models.Contact{}
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Company, &c.Phone, &c.Status); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tags, err := contactTags(ctx, db)
	if err != nil {
		return nil, err
	}
	for i := range contacts {
		contacts[i].Tags = tags[contacts[i].ID]
	}
	return contacts, nil
}

func CreateTag(ctx context.Context, db *sql.DB, tag *models.Tag) error {
	tag.ID = uuid.New()
	_, err := db.ExecContext(ctx, `INSERT INTO tags (id, name, color) VALUES (?, ?, ?)`,
		tag.ID.String(), tag.Name, tag.Color)
	return translate(err)
}

func ListTags(ctx context.Context, db *sql.DB) ([]models.Tag, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, color FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func TagContact(ctx context.Context, db *sql.DB, contactID, tagID uuid.UUID) error {
	_, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO contact_tags (contact_id, tag_id) VALUES (?, ?)
	`, contactID.String(), tagID.String())
	return translate(err)
}

func contactTags(ctx context.Context, db *sql.DB) (map[uuid.UUID][]models.Tag, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT ct.contact_id, t.id, t.name, t.color
		FROM contact_tags ct
		JOIN tags t ON t.id = ct.tag_id
		ORDER BY t.name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[uuid.UUID][]models.Tag)
	for rows.Next() {
		var contactID uuid.UUID
		var t models.Tag
		if err := rows.Scan(&contactID, &t.ID, &t.Name, &t.Color); err != nil {
			return nil, err
		}
		out[contactID] = append(out[contactID], t)
	}
	return out, rows.Err()
}
