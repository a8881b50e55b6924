package processor

import (
	"strings"
)

// Canonical import fields.
const (
	fieldID             = "id"
	fieldName           = "name"
	fieldFirstName      = "first_name"
	fieldLastName       = "last_name"
	fieldEmail          = "email"
	fieldPhone          = "phone"
	fieldTags           = "tags"
	fieldVehicleAge     = "vehicle_age"
	fieldMileage        = "mileage"
	fieldWarrantyStatus = "warranty_status"
	fieldLoyaltyTier    = "loyalty_tier"
)

// Common header aliases for auto-mapping spreadsheet columns
var headerAliases = map[string][]string{
	fieldID:             {"id", "contact_id", "customer_id", "customerid", "customer_number", "external_id"},
	fieldName:           {"name", "full_name", "fullname", "customer_name", "customer", "contact_name"},
	fieldFirstName:      {"first_name", "firstname", "first", "fname", "given_name"},
	fieldLastName:       {"last_name", "lastname", "last", "lname", "surname", "family_name"},
	fieldEmail:          {"email", "email_address", "e-mail", "emailaddress", "mail"},
	fieldPhone:          {"phone", "phone_number", "phonenumber", "mobile", "cell", "telephone", "tel"},
	fieldTags:           {"tags", "labels", "categories", "segments"},
	fieldVehicleAge:     {"vehicle_age", "vehicleage", "age", "vehicle_age_years", "years"},
	fieldMileage:        {"mileage", "miles", "odometer", "odometer_miles"},
	fieldWarrantyStatus: {"warranty_status", "warrantystatus", "warranty"},
	fieldLoyaltyTier:    {"loyalty_tier", "loyaltytier", "loyalty", "tier"},
}

var aliasIndex = func() map[string]string {
	idx := make(map[string]string)
	for field, aliases := range headerAliases {
		for _, a := range aliases {
			idx[normalizeHeader(a)] = field
		}
	}
	return idx
}()

// normalizeHeader lowercases a header and folds spaces and dashes into underscores.
func normalizeHeader(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(h)
}

// mapHeaders returns, per column, the canonical field or "" for unknown columns.
func mapHeaders(headers []string) []string {
	fields := make([]string, len(headers))
	seen := make(map[string]bool)
	for i, h := range headers {
		f, ok := aliasIndex[normalizeHeader(h)]
		if !ok || seen[f] {
			continue
		}
		seen[f] = true
		fields[i] = f
	}
	return fields
}

// Row is one candidate record keyed by canonical field. Line is the 1-based line in
// the source (the header is line 1); CRM records use their 1-based position.
type Row struct {
	Line   int
	Fields map[string]string
}

func (r Row) get(field string) string {
	return strings.TrimSpace(r.Fields[field])
}
