package form

// DefaultAdditionalInfoMax is the character cap on the free-text notes.
const DefaultAdditionalInfoMax = 500

// Capabilities selects the form variant.  One component serves every
// deployment; the differences that used to live in copied components are
// switches here.
type Capabilities struct {
	// DetailedAddress renders the detailed-address input after an address
	// is picked.
	DetailedAddress bool `koanf:"detailed_address"`
	// Coordinates enables geocoding of the picked address.
	Coordinates bool `koanf:"coordinates"`
	// AdditionalInfoMax caps additionalInfo in characters.  Zero means
	// DefaultAdditionalInfoMax.
	AdditionalInfoMax int `koanf:"additional_info_max" validate:"gte=0"`
	// EnforceDistrictMembership rejects a district that does not belong to
	// the chosen state.
	EnforceDistrictMembership bool `koanf:"enforce_district_membership"`
}

// DefaultCapabilities enables every optional part of the form.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		DetailedAddress:           true,
		Coordinates:               true,
		AdditionalInfoMax:         DefaultAdditionalInfoMax,
		EnforceDistrictMembership: true,
	}
}

func (c Capabilities) infoMax() int {
	if c.AdditionalInfoMax <= 0 {
		return DefaultAdditionalInfoMax
	}
	return c.AdditionalInfoMax
}
