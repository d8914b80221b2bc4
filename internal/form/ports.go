// internal/form/ports.go
//
// Intake – Forms subsystem: external collaborators.
//
// Context
//   The controller consumes five outside services.  Each one is a small
//   interface here so crm, picklist, geocode, and the HTTP component can
//   supply the concrete implementation and tests can supply fakes.
//
//------------------------------------------------------------------------------

package form

import "context"

// Picklist object and field names used by the application form.
const (
	PicklistObject     = "Application_Form__c"
	PicklistBrandField = "Brand_Name__c"
	PicklistStateField = "Preferred_State__c"
)

// Lead is the prefill record returned by the identity lookup.
type Lead struct {
	LastName  string `db:"last_name"  json:"lastName"`
	FirstName string `db:"first_name" json:"firstName"`
	Email     string `db:"email"      json:"email"`
	Phone     string `db:"phone"      json:"phone"`
	Brand     string `db:"brand"      json:"brand"`
}

// DisplayName joins last and first name without a separator, which is how
// Korean names are written.
func (l Lead) DisplayName() string { return l.LastName + l.FirstName }

// AddressResult is the single value produced by the postcode widget.
type AddressResult struct {
	PostalCode   string `json:"postalCode"`
	RoadAddress  string `json:"roadAddress"`
	JibunAddress string `json:"jibunAddress"`
}

// Resolved prefers the road-name address and falls back to the lot number.
func (a AddressResult) Resolved() string {
	if a.RoadAddress != "" {
		return a.RoadAddress
	}
	return a.JibunAddress
}

// Coordinate is one geocoder candidate.  Values stay textual; the validator
// decides whether they parse.
type Coordinate struct {
	Longitude string `json:"longitude"`
	Latitude  string `json:"latitude"`
}

// LeadLookup resolves the lead that owns an entry identifier.
type LeadLookup interface {
	LeadByID(ctx context.Context, id string) (Lead, error)
}

// PicklistSource returns the allowed values of one object field.
type PicklistSource interface {
	PicklistValues(ctx context.Context, object, field string) ([]string, error)
}

// Geocoder turns an address into candidate coordinates, best first.
type Geocoder interface {
	Coordinates(ctx context.Context, address string) ([]Coordinate, error)
}

// RecordCreator persists a validated submission.
type RecordCreator interface {
	CreateApplication(ctx context.Context, sub Submission) error
}

// AddressWidget is a one-shot postcode search.  Open blocks until the user
// picks an address or ctx ends.
type AddressWidget interface {
	Open(ctx context.Context) (AddressResult, error)
}

// AddressWidgetFunc adapts a plain function to AddressWidget.
type AddressWidgetFunc func(ctx context.Context) (AddressResult, error)

// Open implements AddressWidget.
func (f AddressWidgetFunc) Open(ctx context.Context) (AddressResult, error) { return f(ctx) }
