package store

import (
	"context"
	"fmt"

	"voiceagent-server/internal/observability"
	"voiceagent-server/internal/targeting"
)

const sqlLoadContacts = `
SELECT id, position, name, email, phone, tags, vehicle_age, mileage, warranty_status, loyalty_tier
FROM contacts
ORDER BY position ASC
`

// LoadContacts returns every persisted contact in insertion order.
func (s *Store) LoadContacts(ctx context.Context) ([]targeting.Contact, error) {
	var rows []Contact
	if err := s.db.SelectContext(ctx, &rows, sqlLoadContacts); err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}
	contacts := make([]targeting.Contact, len(rows))
	for i, r := range rows {
		contacts[i] = r.ToDomain()
	}
	return contacts, nil
}

const sqlMaxContactPosition = `SELECT COALESCE(MAX(position), 0) FROM contacts`

const sqlInsertContact = `
INSERT INTO contacts (id, position, name, email, phone, tags, vehicle_age, mileage, warranty_status, loyalty_tier)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// PersistContacts writes a batch in one transaction. Either every contact is stored
// or none is.
func (s *Store) PersistContacts(ctx context.Context, batch []targeting.Contact) error {
	if len(batch) == 0 {
		return nil
	}
	ctx = observability.WithFields(ctx, observability.Field{Key: "batch_size", Value: len(batch)})

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var position int64
	if err := tx.GetContext(ctx, &position, sqlMaxContactPosition); err != nil {
		return fmt.Errorf("failed to read contact position: %w", err)
	}

	insert := tx.Rebind(sqlInsertContact)
	for _, c := range batch {
		position++
		row := contactFromDomain(c, position)
		_, err := tx.ExecContext(ctx, insert,
			row.ID,
			row.Position,
			row.Name,
			row.Email,
			row.Phone,
			row.Tags,
			row.VehicleAge,
			row.Mileage,
			row.WarrantyStatus,
			row.LoyaltyTier)
		if err != nil {
			s.logger.Error(ctx, "failed to insert contact", err)
			return fmt.Errorf("failed to insert contact %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit contacts: %w", err)
	}
	return nil
}

const sqlCountContacts = `SELECT COUNT(*) FROM contacts`

// CountContacts returns the number of persisted contacts.
func (s *Store) CountContacts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, sqlCountContacts); err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return n, nil
}
