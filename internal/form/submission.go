package form

// Submission is the payload handed to the record-creation endpoint.  Every
// field is copied from State, including empty coordinates.
type Submission struct {
	RequestToken         string `json:"requestToken"          db:"request_token"`
	LeadID               string `json:"leadId"                db:"lead_id"`
	Name                 string `json:"name"                  db:"name"`
	Email                string `json:"email"                 db:"email"`
	Phone                string `json:"phone"                 db:"phone"`
	Address              string `json:"address"               db:"address"`
	DetailedAddress      string `json:"detailedAddress"       db:"detailed_address"`
	Zipcode              string `json:"zipcode"               db:"zipcode"`
	Brand                string `json:"brand"                 db:"brand"`
	PreferredState       string `json:"preferredState"        db:"preferred_state"`
	PreferredDistrict    string `json:"preferredDistrict"     db:"preferred_district"`
	AdditionalInfo       string `json:"additionalInfo"        db:"additional_info"`
	CoordinatesLongitude string `json:"coordinatesLongitude"  db:"coordinates_longitude"`
	CoordinatesLatitude  string `json:"coordinatesLatitude"   db:"coordinates_latitude"`
}

// NewSubmission builds the payload from a snapshot.
func NewSubmission(s State) Submission {
	return Submission{
		RequestToken:         s.RequestToken,
		LeadID:               s.Identifier,
		Name:                 s.Name,
		Email:                s.Email,
		Phone:                s.Phone,
		Address:              s.Address,
		DetailedAddress:      s.DetailedAddress,
		Zipcode:              s.Zipcode,
		Brand:                s.Brand,
		PreferredState:       s.PreferredState,
		PreferredDistrict:    s.PreferredDistrict,
		AdditionalInfo:       s.AdditionalInfo,
		CoordinatesLongitude: s.CoordinatesLongitude,
		CoordinatesLatitude:  s.CoordinatesLatitude,
	}
}
