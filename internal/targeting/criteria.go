package targeting

import "fmt"

// Range is an inclusive integer interval.
type Range struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Contains reports whether v lies in [Min, Max]. An inverted range contains nothing.
func (r Range) Contains(v int) bool {
	return r.Min <= r.Max && v >= r.Min && v <= r.Max
}

// FilterCriteria is the current targeting predicate. Every dimension is independent;
// a nil range or an empty string leaves that dimension unconstrained.
type FilterCriteria struct {
	VehicleAge     *Range         `json:"vehicle_age,omitempty" yaml:"vehicle_age,omitempty"`
	Mileage        *Range         `json:"mileage,omitempty" yaml:"mileage,omitempty"`
	WarrantyStatus WarrantyStatus `json:"warranty_status,omitempty" yaml:"warranty_status,omitempty"`
	LoyaltyTier    LoyaltyTier    `json:"loyalty_tier,omitempty" yaml:"loyalty_tier,omitempty"`
	Search         string         `json:"search,omitempty" yaml:"search,omitempty"`
	Tag            string         `json:"tag,omitempty" yaml:"tag,omitempty"`
}

// DefaultCriteria mirrors the dashboard's initial slider positions.
func DefaultCriteria() FilterCriteria {
	return FilterCriteria{
		VehicleAge: &Range{Min: 0, Max: 10},
		Mileage:    &Range{Min: 0, Max: 150000},
	}
}

// Active reports whether any dimension constrains the result.
func (f FilterCriteria) Active() bool {
	return f.VehicleAge != nil ||
		f.Mileage != nil ||
		f.WarrantyStatus != "" ||
		f.LoyaltyTier != "" ||
		f.Search != "" ||
		f.Tag != ""
}

// Clone deep-copies the criteria so a snapshot never aliases live filter state.
func (f FilterCriteria) Clone() FilterCriteria {
	out := f
	if f.VehicleAge != nil {
		r := *f.VehicleAge
		out.VehicleAge = &r
	}
	if f.Mileage != nil {
		r := *f.Mileage
		out.Mileage = &r
	}
	return out
}

// Validate checks the criteria at an input boundary. The filter engine itself
// tolerates invalid ranges and simply matches nothing.
func (f FilterCriteria) Validate() error {
	if err := validateRange("vehicle_age", f.VehicleAge); err != nil {
		return err
	}
	if err := validateRange("mileage", f.Mileage); err != nil {
		return err
	}
	if f.WarrantyStatus != "" && !f.WarrantyStatus.Valid() {
		return &ValidationError{Field: "warranty_status", Reason: fmt.Sprintf("unknown status %q", f.WarrantyStatus)}
	}
	if f.LoyaltyTier != "" && !f.LoyaltyTier.Valid() {
		return &ValidationError{Field: "loyalty_tier", Reason: fmt.Sprintf("unknown tier %q", f.LoyaltyTier)}
	}
	return nil
}

func validateRange(field string, r *Range) error {
	if r == nil {
		return nil
	}
	if r.Min < 0 || r.Max < 0 {
		return &ValidationError{Field: field, Reason: "bounds must not be negative"}
	}
	if r.Min > r.Max {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("min %d is greater than max %d", r.Min, r.Max)}
	}
	return nil
}
