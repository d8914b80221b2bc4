// internal/crm/repository.go
//
// MySQL-backed CRM collaborators for the application form.
//
// Context
// -------
// The form needs three things from the CRM: the lead that owns an entry
// link, the values of two picklists, and a place to write the finished
// application.  All three live in the CRM database:
//
//	leads           (id PK, last_name, first_name, email, phone, brand)
//	picklist_value  (object_name, field_name, value, sort_order, active)
//	application     (id PK, request_token UNIQUE, lead_id, …form fields…,
//	                 client_ip, user_agent, country, is_bot, created_at)
//
// Repository implements form.LeadLookup, form.PicklistSource, and
// form.RecordCreator over one *sqlx.DB.
//
// Idempotency
// -----------
// CreateApplication inserts with `ON DUPLICATE KEY UPDATE` on request_token.
// A retry of a submission whose first attempt did commit is a no-op and
// reports success, so the applicant never ends up with two records.
//
// Notes
// -----
// • Client IP, user agent, country, and bot flag are copied from the
//   requestinfo attached to ctx, when present.
package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/intake/internal/form"
	"github.com/yanizio/intake/internal/logger"
	"github.com/yanizio/intake/internal/requestinfo"
)

// ErrNotFound is returned when no lead matches the identifier.
var ErrNotFound = errors.New("crm: lead not found")

// Repository is safe for concurrent use.
type Repository struct {
	db *sqlx.DB
}

// New wraps db.
func New(db *sqlx.DB) *Repository { return &Repository{db: db} }

//
// Identity lookup
//

// LeadByID returns the prefill record for id.
func (r *Repository) LeadByID(ctx context.Context, id string) (form.Lead, error) {
	const q = `SELECT last_name, first_name, email, phone, brand
                 FROM leads
                WHERE id = ?`

	var l form.Lead
	err := r.db.GetContext(ctx, &l, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return form.Lead{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return form.Lead{}, fmt.Errorf("lead %s: %w", id, err)
	}
	return l, nil
}

//
// Picklists
//

// PicklistValues returns the active values of object.field in sort order.
func (r *Repository) PicklistValues(ctx context.Context, object, field string) ([]string, error) {
	const q = `SELECT value
                 FROM picklist_value
                WHERE object_name = ? AND field_name = ? AND active = TRUE
                ORDER BY sort_order, value`

	values := make([]string, 0, 16)
	if err := r.db.SelectContext(ctx, &values, q, object, field); err != nil {
		return nil, fmt.Errorf("picklist %s.%s: %w", object, field, err)
	}
	return values, nil
}

//
// Record creation
//

// ClientMeta is the request context stored next to each application.
type ClientMeta struct {
	ClientIP  string `db:"client_ip"`
	UserAgent string `db:"user_agent"`
	Country   string `db:"country"`
	IsBot     bool   `db:"is_bot"`
}

type applicationRow struct {
	form.Submission
	ClientMeta
}

const insertApplication = `INSERT INTO application
       (request_token, lead_id, name, email, phone, address, detailed_address,
        zipcode, brand, preferred_state, preferred_district, additional_info,
        coordinates_longitude, coordinates_latitude,
        client_ip, user_agent, country, is_bot, created_at)
VALUES (:request_token, :lead_id, :name, :email, :phone, :address, :detailed_address,
        :zipcode, :brand, :preferred_state, :preferred_district, :additional_info,
        :coordinates_longitude, :coordinates_latitude,
        :client_ip, :user_agent, :country, :is_bot, UTC_TIMESTAMP())
ON DUPLICATE KEY UPDATE request_token = request_token`

// CreateApplication writes sub.  A submission without a request token is
// rejected; the controller always assigns one.
func (r *Repository) CreateApplication(ctx context.Context, sub form.Submission) error {
	if sub.RequestToken == "" {
		return errors.New("crm: submission has no request token")
	}

	row := applicationRow{Submission: sub, ClientMeta: metaFrom(ctx)}
	res, err := r.db.NamedExecContext(ctx, insertApplication, row)
	if err != nil {
		return fmt.Errorf("insert application for lead %s: %w", sub.LeadID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		logger.FromContext(ctx).Infow("duplicate application ignored",
			"lead", sub.LeadID, "request_token", sub.RequestToken)
	}
	return nil
}

// maxUserAgent caps the stored user agent, in bytes.
const maxUserAgent = 512

func metaFrom(ctx context.Context) ClientMeta {
	info := requestinfo.FromContext(ctx)
	if info == nil {
		return ClientMeta{}
	}
	m := ClientMeta{
		UserAgent: info.UA.Raw,
		Country:   info.Geo.CountryISO,
		IsBot:     info.UA.IsBot,
	}
	if info.Geo.IP != nil {
		m.ClientIP = info.Geo.IP.String()
	}
	if len(m.UserAgent) > maxUserAgent {
		n := maxUserAgent
		for n > 0 && !utf8.RuneStart(m.UserAgent[n]) {
			n--
		}
		m.UserAgent = m.UserAgent[:n]
	}
	return m
}
