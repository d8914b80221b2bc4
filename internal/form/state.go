// internal/form/state.go
//
// Intake – Forms subsystem: application form state.
//
// Context
//   One State value holds everything a single form-fill session knows: the
//   field values the applicant typed or picked, the values resolved by
//   external lookups (lead prefill, address widget, geocoder), and the UI
//   flags that drive rendering.  State is a plain value.  It is only ever
//   changed by Reduce (reducer.go), and only ever shared through a Store
//   (store.go), so handlers and tests can reason about it without a browser.
//
// Invariants
//   •  IsDistrictSelectorEnabled is true iff PreferredState is non-empty and
//      the region catalog knows that state.
//   •  IsSubmitting is true only between SubmitStarted and SubmitFinished.
//   •  Identifier is session-scoped.  Reset never clears it.
//
//------------------------------------------------------------------------------

package form

// Submit button labels.  The working variant is shown while a create call is
// in flight.
const (
	SubmitLabel        = "제출"
	SubmitLabelWorking = "제출 중..."
)

// Status texts shown in place of the form once the session is terminal.
const (
	StatusNoPermission = "작성 권한이 없습니다."
	StatusSubmitted    = "🎉 제출이 완료되었습니다!"
)

// Field names one input on the application form.  The string value doubles
// as the HTML input name and the JSON key of the submission payload.
type Field string

const (
	FieldBrand             Field = "brand"
	FieldName              Field = "name"
	FieldEmail             Field = "email"
	FieldPhone             Field = "phone"
	FieldAddress           Field = "address"
	FieldDetailedAddress   Field = "detailedAddress"
	FieldZipcode           Field = "zipcode"
	FieldPreferredState    Field = "preferredState"
	FieldPreferredDistrict Field = "preferredDistrict"
	FieldAdditionalInfo    Field = "additionalInfo"
	FieldLongitude         Field = "coordinatesLongitude"
	FieldLatitude          Field = "coordinatesLatitude"
)

// Fields lists every editable field in payload order.
var Fields = []Field{
	FieldBrand, FieldName, FieldEmail, FieldPhone,
	FieldAddress, FieldDetailedAddress, FieldZipcode,
	FieldPreferredState, FieldPreferredDistrict,
	FieldAdditionalInfo, FieldLongitude, FieldLatitude,
}

// TypedFields are the fields a browser may post directly.  Address, zipcode,
// and coordinates are written only by the postcode widget and geocoder.
var TypedFields = []Field{
	FieldBrand, FieldName, FieldEmail, FieldPhone, FieldDetailedAddress,
	FieldPreferredState, FieldPreferredDistrict, FieldAdditionalInfo,
}

// Option is one (label, value) pair of a select control.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// OptionsFromValues turns a flat picklist into select options whose label
// and value are identical.
func OptionsFromValues(values []string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Label: v, Value: v})
	}
	return out
}

// State is the mutable record of one form-fill session.
type State struct {
	Identifier string `json:"leadId"`

	Brand                string `json:"brand"`
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Phone                string `json:"phone"`
	Address              string `json:"address"`
	DetailedAddress      string `json:"detailedAddress"`
	Zipcode              string `json:"zipcode"`
	PreferredState       string `json:"preferredState"`
	PreferredDistrict    string `json:"preferredDistrict"`
	AdditionalInfo       string `json:"additionalInfo"`
	CoordinatesLongitude string `json:"coordinatesLongitude"`
	CoordinatesLatitude  string `json:"coordinatesLatitude"`

	IsSubmitted               bool `json:"isSubmitted"`
	IsSubmitting              bool `json:"isSubmitting"`
	IsDistrictSelectorEnabled bool `json:"isDistrictSelectorEnabled"`
	IsDetailedAddressEnabled  bool `json:"isDetailedAddressEnabled"`

	SubmitLabel     string   `json:"submitLabel"`
	StatusText      string   `json:"statusText,omitempty"`
	DistrictOptions []Option `json:"districtOptions"`

	// RequestToken identifies the pending submission.  It survives failed
	// attempts so the record store can drop a duplicate retry.
	RequestToken string `json:"-"`
}

// NewState returns the empty state a session starts from.
func NewState() State {
	return State{SubmitLabel: SubmitLabel}
}

// Value returns the current value of f.  Unknown fields yield "".
func (s State) Value(f Field) string {
	if p := s.ptr(f); p != nil {
		return *p
	}
	return ""
}

// Terminal reports whether the session no longer accepts input.
func (s State) Terminal() bool { return s.IsSubmitted }

// ptr maps a Field to the backing struct field.  The receiver is a pointer so
// the reducer can write through it.
func (s *State) ptr(f Field) *string {
	switch f {
	case FieldBrand:
		return &s.Brand
	case FieldName:
		return &s.Name
	case FieldEmail:
		return &s.Email
	case FieldPhone:
		return &s.Phone
	case FieldAddress:
		return &s.Address
	case FieldDetailedAddress:
		return &s.DetailedAddress
	case FieldZipcode:
		return &s.Zipcode
	case FieldPreferredState:
		return &s.PreferredState
	case FieldPreferredDistrict:
		return &s.PreferredDistrict
	case FieldAdditionalInfo:
		return &s.AdditionalInfo
	case FieldLongitude:
		return &s.CoordinatesLongitude
	case FieldLatitude:
		return &s.CoordinatesLatitude
	default:
		return nil
	}
}

// clone copies s including its option slice so callers never alias the
// store's backing array.
func (s State) clone() State {
	if s.DistrictOptions != nil {
		s.DistrictOptions = append([]Option(nil), s.DistrictOptions...)
	}
	return s
}
