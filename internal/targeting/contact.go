// Package targeting holds the target-list domain: contacts, filter criteria, the
// contact store, the filter engine, selection bookkeeping and saved lists.
package targeting

import (
	"slices"
	"strings"
)

// WarrantyStatus is the warranty state of a contact's vehicle.
type WarrantyStatus string

const (
	WarrantyActive   WarrantyStatus = "Active"
	WarrantyExpiring WarrantyStatus = "Expiring"
	WarrantyExpired  WarrantyStatus = "Expired"
)

// LoyaltyTier is the dealership loyalty program tier.
type LoyaltyTier string

const (
	LoyaltyPlatinum LoyaltyTier = "Platinum"
	LoyaltyGold     LoyaltyTier = "Gold"
	LoyaltySilver   LoyaltyTier = "Silver"
	LoyaltyBronze   LoyaltyTier = "Bronze"
)

var warrantyAliases = map[string]WarrantyStatus{
	"active":        WarrantyActive,
	"expiring":      WarrantyExpiring,
	"expiring soon": WarrantyExpiring,
	"expired":       WarrantyExpired,
}

var loyaltyAliases = map[string]LoyaltyTier{
	"platinum": LoyaltyPlatinum,
	"gold":     LoyaltyGold,
	"silver":   LoyaltySilver,
	"bronze":   LoyaltyBronze,
}

// ParseWarrantyStatus normalizes user or spreadsheet input. Blank input yields "" and ok.
func ParseWarrantyStatus(s string) (WarrantyStatus, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", true
	}
	status, ok := warrantyAliases[s]
	return status, ok
}

// ParseLoyaltyTier normalizes user or spreadsheet input. Blank input yields "" and ok.
func ParseLoyaltyTier(s string) (LoyaltyTier, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", true
	}
	tier, ok := loyaltyAliases[s]
	return tier, ok
}

// Valid reports whether s is one of the canonical statuses.
func (s WarrantyStatus) Valid() bool {
	switch s {
	case WarrantyActive, WarrantyExpiring, WarrantyExpired:
		return true
	}
	return false
}

// Valid reports whether t is one of the canonical tiers.
func (t LoyaltyTier) Valid() bool {
	switch t {
	case LoyaltyPlatinum, LoyaltyGold, LoyaltySilver, LoyaltyBronze:
		return true
	}
	return false
}

// Contact is one customer-vehicle targeting record.
type Contact struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	Tags           []string       `json:"tags"`
	VehicleAge     *int           `json:"vehicle_age,omitempty"`
	Mileage        *int           `json:"mileage,omitempty"`
	WarrantyStatus WarrantyStatus `json:"warranty_status,omitempty"`
	LoyaltyTier    LoyaltyTier    `json:"loyalty_tier,omitempty"`
}

// Clone returns a deep copy so callers never share tag slices or optional fields.
func (c Contact) Clone() Contact {
	out := c
	out.Tags = slices.Clone(c.Tags)
	if c.VehicleAge != nil {
		v := *c.VehicleAge
		out.VehicleAge = &v
	}
	if c.Mileage != nil {
		v := *c.Mileage
		out.Mileage = &v
	}
	return out
}

// HasTag reports whether the contact carries tag, ignoring case.
func (c Contact) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Int returns a pointer to v, convenient for the optional numeric fields.
func Int(v int) *int {
	return &v
}

// ContactIDs extracts the ids of contacts in order.
func ContactIDs(contacts []Contact) []string {
	ids := make([]string, len(contacts))
	for i, c := range contacts {
		ids[i] = c.ID
	}
	return ids
}
