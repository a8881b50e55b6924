package processor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"voiceagent-server/internal/targeting"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// rowValidator turns candidate rows into contacts or a rejection reason.
type rowValidator struct {
	validate      *validator.Validate
	verifier      PhoneVerifier
	onVerifyError func(ctx context.Context, err error)
	newID         func() string
}

func newRowValidator(verifier PhoneVerifier, onVerifyError func(context.Context, error)) *rowValidator {
	return &rowValidator{
		validate:      validator.New(),
		verifier:      verifier,
		onVerifyError: onVerifyError,
		newID:         func() string { return uuid.New().String() },
	}
}

// toContact validates row. A non-empty reason means the row is rejected.
func (v *rowValidator) toContact(ctx context.Context, row Row) (targeting.Contact, string) {
	name := row.get(fieldName)
	if name == "" {
		name = strings.TrimSpace(strings.Join([]string{row.get(fieldFirstName), row.get(fieldLastName)}, " "))
	}
	if name == "" {
		return targeting.Contact{}, "name is required"
	}

	email := row.get(fieldEmail)
	phone := row.get(fieldPhone)
	if email == "" && phone == "" {
		return targeting.Contact{}, "email or phone is required"
	}
	if email != "" {
		if err := v.validate.Var(email, "email"); err != nil {
			return targeting.Contact{}, fmt.Sprintf("invalid email %q", email)
		}
	}
	if phone != "" {
		if reason := v.checkPhone(ctx, phone); reason != "" {
			return targeting.Contact{}, reason
		}
	}

	c := targeting.Contact{
		ID:    row.get(fieldID),
		Name:  name,
		Email: email,
		Phone: phone,
		Tags:  splitTags(row.get(fieldTags)),
	}
	if c.ID == "" {
		c.ID = v.newID()
	}

	var reason string
	if c.VehicleAge, reason = parseCount(fieldVehicleAge, row.get(fieldVehicleAge)); reason != "" {
		return targeting.Contact{}, reason
	}
	if c.Mileage, reason = parseCount(fieldMileage, row.get(fieldMileage)); reason != "" {
		return targeting.Contact{}, reason
	}

	status, ok := targeting.ParseWarrantyStatus(row.get(fieldWarrantyStatus))
	if !ok {
		return targeting.Contact{}, fmt.Sprintf("unknown warranty status %q", row.get(fieldWarrantyStatus))
	}
	c.WarrantyStatus = status

	tier, ok := targeting.ParseLoyaltyTier(row.get(fieldLoyaltyTier))
	if !ok {
		return targeting.Contact{}, fmt.Sprintf("unknown loyalty tier %q", row.get(fieldLoyaltyTier))
	}
	c.LoyaltyTier = tier

	return c, ""
}

func (v *rowValidator) checkPhone(ctx context.Context, phone string) string {
	digits := 0
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ', r == '-', r == '.', r == '(', r == ')':
		default:
			return fmt.Sprintf("invalid phone %q", phone)
		}
	}
	if digits < minPhoneDigits || digits > maxPhoneDigits {
		return fmt.Sprintf("invalid phone %q: expected %d to %d digits", phone, minPhoneDigits, maxPhoneDigits)
	}

	if v.verifier == nil {
		return ""
	}
	ok, err := v.verifier.VerifyPhone(ctx, phone)
	if err != nil {
		// Lookup outages must not block imports; the format check above already passed.
		if v.onVerifyError != nil {
			v.onVerifyError(ctx, err)
		}
		return ""
	}
	if !ok {
		return fmt.Sprintf("phone %q is not a valid number", phone)
	}
	return ""
}

// parseCount parses an optional non-negative integer, allowing thousands separators.
func parseCount(field, raw string) (*int, string) {
	if raw == "" {
		return nil, ""
	}
	n, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil || n < 0 {
		return nil, fmt.Sprintf("%s must be a non-negative integer, got %q", field, raw)
	}
	return &n, ""
}

// splitTags accepts ";", "|" or "," separated labels and drops case-insensitive repeats.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '|' || r == ',' })
	var tags []string
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		key := strings.ToLower(p)
		if p == "" || seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, p)
	}
	return tags
}
