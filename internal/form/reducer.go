// internal/form/reducer.go
//
// Intake – Forms subsystem: events and the pure reducer.
//
// Context
//   Every change to a session's State is expressed as an Event.  Reduce maps
//   (State, Event) to the next State and has no side effects, so the whole
//   update surface is testable with plain values.  Lookups, notifications,
//   and network calls live in the Controller; the Controller turns their
//   results into events.
//
//------------------------------------------------------------------------------

package form

// Event is one state transition.  The unexported marker keeps the set closed.
type Event interface{ isEvent() }

// FieldChanged records a free-text edit.  Selector fields have their own
// events so the cascading rules cannot be bypassed.
type FieldChanged struct {
	Field Field
	Value string
}

// IdentifierSet stores the external lead key read from the entry URL.
type IdentifierSet struct{ Identifier string }

// AccessDenied moves the session to the terminal "no permission" state.
type AccessDenied struct{}

// PrefillLoaded copies identity-lookup values into the form.
type PrefillLoaded struct{ Lead Lead }

// StateSelected picks the parent region.  Selection is precomputed from the
// catalog so Reduce stays pure.
type StateSelected struct {
	State     string
	Selection Selection
}

// DistrictSelected picks the child region.
type DistrictSelected struct{ District string }

// AddressSelected applies one postcode-widget result.
type AddressSelected struct{ Address AddressResult }

// CoordinatesResolved applies a geocoder hit for ForAddress.  A result for a
// superseded address is ignored.
type CoordinatesResolved struct {
	ForAddress string
	Coordinate Coordinate
}

// SubmitStarted flips the in-flight flag before the create call.  Token is
// adopted only when no earlier attempt left one behind.
type SubmitStarted struct{ Token string }

// SubmitSucceeded marks the record as created and resets the form.
type SubmitSucceeded struct{}

// SubmitFailed leaves every field as it was.
type SubmitFailed struct{ Err error }

// SubmitFinished is the finalizer shared by both outcomes.
type SubmitFinished struct{}

func (FieldChanged) isEvent()        {}
func (IdentifierSet) isEvent()       {}
func (AccessDenied) isEvent()        {}
func (PrefillLoaded) isEvent()       {}
func (StateSelected) isEvent()       {}
func (DistrictSelected) isEvent()    {}
func (AddressSelected) isEvent()     {}
func (CoordinatesResolved) isEvent() {}
func (SubmitStarted) isEvent()       {}
func (SubmitSucceeded) isEvent()     {}
func (SubmitFailed) isEvent()        {}
func (SubmitFinished) isEvent()      {}

// Reduce returns the state that follows s after ev.
func Reduce(s State, ev Event) State {
	s = s.clone()

	switch e := ev.(type) {
	case FieldChanged:
		switch e.Field {
		case FieldPreferredState, FieldPreferredDistrict:
			// Routed through StateSelected / DistrictSelected.
			return s
		}
		if p := s.ptr(e.Field); p != nil {
			*p = e.Value
		}

	case IdentifierSet:
		s.Identifier = e.Identifier

	case AccessDenied:
		s.IsSubmitted = true
		s.StatusText = StatusNoPermission

	case PrefillLoaded:
		s.Name = e.Lead.DisplayName()
		s.Email = e.Lead.Email
		s.Phone = e.Lead.Phone
		s.Brand = e.Lead.Brand

	case StateSelected:
		s.PreferredState = e.State
		s.PreferredDistrict = ""
		s.DistrictOptions = append([]Option(nil), e.Selection.Options...)
		s.IsDistrictSelectorEnabled = e.Selection.Enabled

	case DistrictSelected:
		s.PreferredDistrict = e.District

	case AddressSelected:
		s.Zipcode = e.Address.PostalCode
		s.Address = e.Address.Resolved()
		s.IsDetailedAddressEnabled = true
		s.CoordinatesLongitude = ""
		s.CoordinatesLatitude = ""

	case CoordinatesResolved:
		if e.ForAddress != s.Address {
			return s
		}
		s.CoordinatesLongitude = e.Coordinate.Longitude
		s.CoordinatesLatitude = e.Coordinate.Latitude

	case SubmitStarted:
		s.IsSubmitting = true
		s.SubmitLabel = SubmitLabelWorking
		if s.RequestToken == "" {
			s.RequestToken = e.Token
		}

	case SubmitSucceeded:
		s = reset(s)
		s.IsSubmitted = true
		s.StatusText = StatusSubmitted

	case SubmitFailed:
		// Input is preserved for a manual retry.

	case SubmitFinished:
		s.IsSubmitting = false
		s.SubmitLabel = SubmitLabel
	}
	return s
}

// reset empties every field and selector flag.  Identifier and the
// in-flight flag are carried over; the finalizer owns the latter.
func reset(s State) State {
	out := NewState()
	out.Identifier = s.Identifier
	out.IsSubmitting = s.IsSubmitting
	out.SubmitLabel = s.SubmitLabel
	return out
}
