package store

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voiceagent-server/internal/targeting"
)

// JSONList is a string list stored as a JSON array in a text column.
type JSONList []string

// Value implements the driver.Valuer interface for JSONList
func (l JSONList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for JSONList
func (l *JSONList) Scan(value interface{}) error {
	raw, err := jsonBytes(value)
	if err != nil {
		return err
	}
	if raw == nil {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

// Criteria stores filter criteria as a JSON object.
type Criteria targeting.FilterCriteria

// Value implements the driver.Valuer interface for Criteria
func (c Criteria) Value() (driver.Value, error) {
	b, err := json.Marshal(targeting.FilterCriteria(c))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for Criteria
func (c *Criteria) Scan(value interface{}) error {
	raw, err := jsonBytes(value)
	if err != nil {
		return err
	}
	var f targeting.FilterCriteria
	if raw != nil {
		if err := json.Unmarshal(raw, &f); err != nil {
			return err
		}
	}
	*c = Criteria(f)
	return nil
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		if len(v) == 0 || string(v) == "null" {
			return nil, nil
		}
		return v, nil
	case string:
		if v == "" || v == "null" {
			return nil, nil
		}
		return []byte(v), nil
	default:
		return nil, errors.New("incompatible type for JSON column")
	}
}

// Contact is a persisted contact row.
type Contact struct {
	ID             string        `db:"id"`
	Position       int64         `db:"position"`
	Name           string        `db:"name"`
	Email          string        `db:"email"`
	Phone          string        `db:"phone"`
	Tags           JSONList      `db:"tags"`
	VehicleAge     sql.NullInt64 `db:"vehicle_age"`
	Mileage        sql.NullInt64 `db:"mileage"`
	WarrantyStatus string        `db:"warranty_status"`
	LoyaltyTier    string        `db:"loyalty_tier"`
}

func contactFromDomain(c targeting.Contact, position int64) Contact {
	return Contact{
		ID:             c.ID,
		Position:       position,
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		Tags:           JSONList(c.Tags),
		VehicleAge:     nullInt(c.VehicleAge),
		Mileage:        nullInt(c.Mileage),
		WarrantyStatus: string(c.WarrantyStatus),
		LoyaltyTier:    string(c.LoyaltyTier),
	}
}

// ToDomain converts the row back into a targeting contact.
func (c Contact) ToDomain() targeting.Contact {
	out := targeting.Contact{
		ID:             c.ID,
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		Tags:           []string(c.Tags),
		WarrantyStatus: targeting.WarrantyStatus(c.WarrantyStatus),
		LoyaltyTier:    targeting.LoyaltyTier(c.LoyaltyTier),
	}
	if len(out.Tags) == 0 {
		out.Tags = nil
	}
	if c.VehicleAge.Valid {
		out.VehicleAge = targeting.Int(int(c.VehicleAge.Int64))
	}
	if c.Mileage.Valid {
		out.Mileage = targeting.Int(int(c.Mileage.Int64))
	}
	return out
}

// SavedList is a persisted saved list row.
type SavedList struct {
	ID         string   `db:"id"`
	Position   int64    `db:"position"`
	Name       string   `db:"name"`
	Filters    Criteria `db:"filters"`
	ContactIDs JSONList `db:"contact_ids"`
	CreatedAt  string   `db:"created_at"`
}

func savedListFromDomain(l targeting.SavedList, position int64) SavedList {
	return SavedList{
		ID:         l.ID,
		Position:   position,
		Name:       l.Name,
		Filters:    Criteria(l.Filters),
		ContactIDs: JSONList(l.ContactIDs),
		CreatedAt:  l.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ToDomain converts the row back into a targeting saved list.
func (l SavedList) ToDomain() (targeting.SavedList, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, l.CreatedAt)
	if err != nil {
		return targeting.SavedList{}, fmt.Errorf("invalid created_at for saved list %s: %w", l.ID, err)
	}
	ids := []string(l.ContactIDs)
	if ids == nil {
		ids = []string{}
	}
	return targeting.SavedList{
		ID:         l.ID,
		Name:       l.Name,
		Filters:    targeting.FilterCriteria(l.Filters),
		ContactIDs: ids,
		CreatedAt:  createdAt,
	}, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
