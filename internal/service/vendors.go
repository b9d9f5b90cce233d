package service

import (
	"errors"

	"quotegen/internal/model"
)

var ErrUnknownVendor = errors.New("unknown vendor")

// VendorDirectory resolves the issuing company of a request.
type VendorDirectory struct {
	vendors  []model.VendorProfile
	fallback string
}

// NewVendorDirectory keeps vendors in the given order. fallback is used for
// an empty id; when it is empty too, the first vendor is the default.
func NewVendorDirectory(vendors []model.VendorProfile, fallback string) *VendorDirectory {
	if fallback == "" && len(vendors) > 0 {
		fallback = vendors[0].ID
	}
	return &VendorDirectory{vendors: vendors, fallback: fallback}
}

// All returns every vendor.
func (d *VendorDirectory) All() []model.VendorProfile {
	return append([]model.VendorProfile(nil), d.vendors...)
}

// Default is the id used when a request names no vendor.
func (d *VendorDirectory) Default() string { return d.fallback }

// Lookup returns the vendor with id, or the default for an empty id.
func (d *VendorDirectory) Lookup(id string) (model.VendorProfile, error) {
	if id == "" {
		id = d.fallback
	}
	for _, v := range d.vendors {
		if v.ID == id {
			return v, nil
		}
	}
	return model.VendorProfile{}, ErrUnknownVendor
}
