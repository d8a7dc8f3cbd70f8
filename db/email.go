// ABOUTME: Email account and send-log database operations
// ABOUTME: Tracks which account last corresponded with each contact
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
)

func CreateEmailAccount(ctx context.Context, db *sql.DB, account *models.EmailAccount) error {
	account.ID = uuid.New()
	if account.Provider == "" {
		account.Provider = "smtp"
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO email_accounts (id, address, display_name, provider) VALUES (?, ?, ?, ?)
	`, account.ID.String(), account.Address, account.DisplayName, account.Provider)
	return translate(err)
}

// GetEmailAccount returns nil when the account does not exist.
func GetEmailAccount(ctx context.Context, db *sql.DB, id uuid.UUID) (*models.EmailAccount, error) {
	a := &models.EmailAccount{}
	err := db.QueryRowContext(ctx, `
		SELECT id, address, display_name, provider FROM email_accounts WHERE id = ?
	`, id.String()).Scan(&a.ID, &a.Address, &a.DisplayName, &a.Provider)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListEmailAccounts returns every account, with LastUsedAt set to the most
// recent send to the given contact from that account.
func ListEmailAccounts(ctx context.Context, db *sql.DB, contactID uuid.UUID) ([]models.EmailAccount, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT a.id, a.address, a.display_name, a.provider, MAX(l.sent_unix)
		FROM email_accounts a
		LEFT JOIN email_log l ON l.account_id = a.id AND l.contact_id = ?
		GROUP BY a.id
		ORDER BY a.address ASC
	`, contactID.String())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	accounts := []models.EmailAccount{}
	for rows.Next() {
		var a models.EmailAccount
		var lastSent sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Address, &a.DisplayName, &a.Provider, &lastSent); err != nil {
			return nil, err
		}
		if lastSent.Valid {
			t := time.Unix(lastSent.Int64, 0).UTC()
			a.LastUsedAt = &t
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// LogEmail records a send so later account selection can prefer it.
func LogEmail(ctx context.Context, db *sql.DB, msg models.EmailMessage, sentAt time.Time) error {
	var deal *string
	if msg.DealID != uuid.Nil {
		s := msg.DealID.String()
		deal = &s
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO email_log (id, account_id, contact_id, deal_id, subject, sent_unix)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), msg.AccountID.String(), msg.ContactID.String(), deal, msg.Subject, sentAt.Unix())
	return translate(err)
}
