package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Info is the delivery-relevant slice of a customer or staff account,
// used to address notifications and to snapshot the actor into audit
// entries.
type Info struct {
	Username      string `json:"username"`
	RecipientName string `json:"recipientName,omitempty"`
	Email         string `json:"gmail,omitempty"`
	ContactNumber string `json:"contactNumber,omitempty"`
	HouseStreet   string `json:"houseStreet,omitempty"`
	Region        string `json:"region,omitempty"`
}

// Snapshot renders the record as the loose map stored in audit entries.
func (i *Info) Snapshot() map[string]any {
	if i == nil {
		return map[string]any{}
	}
	return map[string]any{
		"username":      i.Username,
		"recipientName": i.RecipientName,
		"gmail":         i.Email,
		"contactNumber": i.ContactNumber,
		"houseStreet":   i.HouseStreet,
		"region":        i.Region,
	}
}

// Directory is read-only access to the account and staff records
// maintained elsewhere. A missing record resolves to nil, not an error.
type Directory interface {
	FindAccountInfo(ctx context.Context, username string) (*Info, error)
	FindStaffInfo(ctx context.Context, username string) (*Info, error)
}

type postgresDirectory struct {
	db *pgxpool.Pool
}

func NewDirectory(db *pgxpool.Pool) Directory {
	return &postgresDirectory{db: db}
}

func (d *postgresDirectory) FindAccountInfo(ctx context.Context, username string) (*Info, error) {
	query := `
		SELECT username, recipient_name, gmail, contact_number, house_street, region
		FROM account_info
		WHERE username = $1
	`

	var info Info
	err := d.db.QueryRow(ctx, query, username).Scan(
		&info.Username,
		&info.RecipientName,
		&info.Email,
		&info.ContactNumber,
		&info.HouseStreet,
		&info.Region,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("account: failed to select account info for %s: %w", username, err)
	}

	return &info, nil
}

func (d *postgresDirectory) FindStaffInfo(ctx context.Context, username string) (*Info, error) {
	query := `
		SELECT username, staff_name, gmail, contact_number
		FROM staff
		WHERE username = $1
	`

	var info Info
	err := d.db.QueryRow(ctx, query, username).Scan(
		&info.Username,
		&info.RecipientName,
		&info.Email,
		&info.ContactNumber,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("account: failed to select staff info for %s: %w", username, err)
	}

	return &info, nil
}
