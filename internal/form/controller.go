// internal/form/controller.go
//
// Intake – Forms subsystem: session controller.
//
// Context
//   A Controller drives one form-fill session.  It owns the session Store,
//   reads the shared RegionCatalog, and talks to the external collaborators
//   declared in ports.go.  Every public method corresponds to one UI event:
//
//     Mount          – entry: identifier gate, lead prefill, picklists.
//     Change         – free-text edit.
//     SelectState    – parent region pick (clears the district).
//     SelectDistrict – child region pick.
//     SelectAddress  – postcode widget result, then optional geocoding.
//     Submit         – validate, create the record, reset on success.
//
//   Lookup failures are logged, counted, and swallowed.  Submission failures
//   are reported through the Notifier and returned wrapped in
//   ErrSubmitFailed so the HTTP layer can choose a status code.
//
// Ordering
//   Submit flips IsSubmitting inside the same locked transaction that
//   validated the state, before the create call begins.  The finalizer that
//   clears it is deferred, so it runs exactly once after either outcome,
//   even if the record store panics.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/intake/internal/logger"
	"github.com/yanizio/intake/internal/message"
	"github.com/yanizio/intake/internal/metrics"
)

// Errors returned by Controller methods.
var (
	ErrClosed           = errors.New("form: session is closed")
	ErrSubmitInProgress = errors.New("form: submission already in progress")
	ErrSubmitFailed     = errors.New("form: submission failed")
	ErrUnknownField     = errors.New("form: unknown field")
)

var (
	toastCreated = message.Toast{
		Title:   "성공",
		Message: "창업 신청서가 성공적으로 제출되었습니다!",
		Variant: message.VariantSuccess,
	}
	toastFailed = message.Toast{
		Title:   "오류 발생",
		Message: "신청서 제출 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요.",
		Variant: message.VariantError,
	}
)

// Deps bundles the external collaborators.  Geocoder and Notifier may be nil.
type Deps struct {
	Leads     LeadLookup
	Picklists PicklistSource
	Geocoder  Geocoder
	Records   RecordCreator
	Notifier  message.Notifier
}

// Outcome describes one Submit call.
type Outcome struct {
	Created bool   `json:"created"`
	Errors  Result `json:"errors,omitempty"`
	State   State  `json:"state"`
}

// Controller is safe for concurrent use; the Store serialises mutation.
type Controller struct {
	store   *Store
	catalog *RegionCatalog
	caps    Capabilities
	deps    Deps

	// NewToken mints submission request tokens.  Tests may replace it.
	NewToken func() string

	mounted atomic.Bool

	optMu   sync.Mutex
	options map[Field][]Option
}

// NewController returns a controller over a fresh empty State.  A nil catalog
// selects DefaultRegionCatalog.
func NewController(catalog *RegionCatalog, caps Capabilities, deps Deps) *Controller {
	if catalog == nil {
		catalog = DefaultRegionCatalog()
	}
	return &Controller{
		store:    NewStore(NewState()),
		catalog:  catalog,
		caps:     caps,
		deps:     deps,
		NewToken: uuid.NewString,
		options:  make(map[Field][]Option, 2),
	}
}

// Store exposes the session store for subscription.
func (c *Controller) Store() *Store { return c.store }

// State returns a snapshot of the session state.
func (c *Controller) State() State { return c.store.Snapshot() }

// Capabilities returns the variant switches.
func (c *Controller) Capabilities() Capabilities { return c.caps }

// Catalog returns the region catalog.
func (c *Controller) Catalog() *RegionCatalog { return c.catalog }

// Options returns the cached picklist options for FieldBrand or
// FieldPreferredState.
func (c *Controller) Options(f Field) []Option {
	c.optMu.Lock()
	defer c.optMu.Unlock()
	out := make([]Option, len(c.options[f]))
	copy(out, c.options[f])
	return out
}

// -----------------------------------------------------------------------------
// Mount
// -----------------------------------------------------------------------------

// Mount runs the entry sequence once per session.  An empty identifier closes
// the session immediately and issues no lookups.  Otherwise the lead prefill
// and both picklists are fetched concurrently; each failure is non-fatal.
func (c *Controller) Mount(ctx context.Context, identifier string) State {
	if !c.mounted.CompareAndSwap(false, true) {
		return c.store.Snapshot()
	}
	log := logger.FromContext(ctx)

	id := strings.TrimSpace(identifier)
	if id == "" {
		metrics.AccessDeniedTotal.Inc()
		log.Warnw("form mounted without lead id")
		return c.store.Dispatch(AccessDenied{})
	}
	c.store.Dispatch(IdentifierSet{Identifier: id})

	var g errgroup.Group
	g.Go(func() error { c.loadLead(ctx, id); return nil })
	g.Go(func() error { c.loadOptions(ctx, FieldBrand, PicklistBrandField); return nil })
	g.Go(func() error { c.loadOptions(ctx, FieldPreferredState, PicklistStateField); return nil })
	_ = g.Wait()

	return c.store.Snapshot()
}

func (c *Controller) loadLead(ctx context.Context, id string) {
	if c.deps.Leads == nil {
		return
	}
	lead, err := c.deps.Leads.LeadByID(ctx, id)
	if err != nil {
		metrics.LookupFailuresTotal.WithLabelValues(metrics.LookupIdentity).Inc()
		logger.FromContext(ctx).Errorw("lead lookup failed", "lead", id, "err", err)
		return
	}
	c.store.Dispatch(PrefillLoaded{Lead: lead})
}

// loadOptions fetches one picklist.  The result, empty on failure, is cached
// for the rest of the session.
func (c *Controller) loadOptions(ctx context.Context, f Field, picklistField string) {
	var opts []Option
	if c.deps.Picklists != nil {
		values, err := c.deps.Picklists.PicklistValues(ctx, PicklistObject, picklistField)
		if err != nil {
			metrics.LookupFailuresTotal.WithLabelValues(metrics.LookupPicklist).Inc()
			logger.FromContext(ctx).Errorw("picklist lookup failed",
				"object", PicklistObject, "field", picklistField, "err", err)
		} else {
			opts = OptionsFromValues(values)
		}
	}
	if opts == nil {
		opts = []Option{}
	}

	c.optMu.Lock()
	c.options[f] = opts
	c.optMu.Unlock()
}

// -----------------------------------------------------------------------------
// Field and selector events
// -----------------------------------------------------------------------------

// Change records a user edit.  The region fields are routed through the
// selector methods so the cascading rules always apply.
func (c *Controller) Change(f Field, value string) (State, error) {
	switch f {
	case FieldPreferredState:
		if _, err := c.SelectState(value); err != nil {
			return c.store.Snapshot(), err
		}
		return c.store.Snapshot(), nil
	case FieldPreferredDistrict:
		return c.SelectDistrict(value)
	}
	if !c.editable(f) {
		return c.store.Snapshot(), fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return c.store.Transact(func(s State) ([]Event, error) {
		if s.Terminal() {
			return nil, ErrClosed
		}
		return []Event{FieldChanged{Field: f, Value: value}}, nil
	})
}

// editable reports whether f may be written by a free-text edit.  Address,
// zipcode, and coordinates belong to the postcode widget and geocoder.
func (c *Controller) editable(f Field) bool {
	if f == FieldDetailedAddress {
		return c.caps.DetailedAddress
	}
	for _, t := range TypedFields {
		if t == f {
			return true
		}
	}
	return false
}

// SelectState picks the parent region and returns the child selector it
// implies.  Any previously chosen district is cleared.
func (c *Controller) SelectState(state string) (Selection, error) {
	sel := c.catalog.OnStateSelected(state)
	_, err := c.store.Transact(func(s State) ([]Event, error) {
		if s.Terminal() {
			return nil, ErrClosed
		}
		return []Event{StateSelected{State: state, Selection: sel}}, nil
	})
	if err != nil {
		return Selection{Options: []Option{}}, err
	}
	return sel, nil
}

// SelectDistrict records the child region as given.
func (c *Controller) SelectDistrict(district string) (State, error) {
	return c.store.Transact(func(s State) ([]Event, error) {
		if s.Terminal() {
			return nil, ErrClosed
		}
		return []Event{DistrictSelected{District: district}}, nil
	})
}

// -----------------------------------------------------------------------------
// Address and coordinates
// -----------------------------------------------------------------------------

// SearchAddress opens the postcode widget and applies its single result.
func (c *Controller) SearchAddress(ctx context.Context, w AddressWidget) (State, error) {
	res, err := w.Open(ctx)
	if err != nil {
		return c.store.Snapshot(), fmt.Errorf("address widget: %w", err)
	}
	return c.SelectAddress(ctx, res)
}

// SelectAddress applies a widget result and, when the variant has
// coordinates, geocodes the new address.  Geocoding never fails the call.
func (c *Controller) SelectAddress(ctx context.Context, a AddressResult) (State, error) {
	st, err := c.store.Transact(func(s State) ([]Event, error) {
		if s.Terminal() {
			return nil, ErrClosed
		}
		return []Event{AddressSelected{Address: a}}, nil
	})
	if err != nil {
		return st, err
	}
	if !c.caps.Coordinates || c.deps.Geocoder == nil || st.Address == "" {
		return st, nil
	}

	log := logger.FromContext(ctx)
	cands, err := c.deps.Geocoder.Coordinates(ctx, st.Address)
	if err != nil {
		metrics.LookupFailuresTotal.WithLabelValues(metrics.LookupGeocode).Inc()
		log.Warnw("geocode failed", "address", st.Address, "err", err)
		return st, nil
	}
	if len(cands) == 0 {
		log.Infow("geocode returned no candidates", "address", st.Address)
		return st, nil
	}
	return c.store.Dispatch(CoordinatesResolved{ForAddress: st.Address, Coordinate: cands[0]}), nil
}

// -----------------------------------------------------------------------------
// Submit
// -----------------------------------------------------------------------------

// Submit validates the session and, when valid, creates the record exactly
// once.  A validation failure returns ValidationError and touches nothing.
func (c *Controller) Submit(ctx context.Context) (out Outcome, err error) {
	log := logger.FromContext(ctx)
	token := c.NewToken()

	st, err := c.store.Transact(func(s State) ([]Event, error) {
		switch {
		case s.Terminal():
			return nil, ErrClosed
		case s.IsSubmitting:
			return nil, ErrSubmitInProgress
		}
		if res := Validate(s, c.catalog, c.caps); !res.Valid() {
			return nil, ValidationError{Result: res}
		}
		return []Event{SubmitStarted{Token: token}}, nil
	})
	if err != nil {
		var ve ValidationError
		if errors.As(err, &ve) {
			metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
			log.Infow("submission rejected by validation",
				"lead", st.Identifier, "errors", ve.Result.Messages())
			return Outcome{Errors: ve.Result, State: st}, err
		}
		return Outcome{State: st}, err
	}

	sub := NewSubmission(st)
	outcome := Event(SubmitFailed{Err: errors.New("record store did not return")})
	defer func() {
		out.State = c.store.Dispatch(outcome, SubmitFinished{})
	}()

	// The create call outlives a dropped client connection.
	if cerr := c.create(context.WithoutCancel(ctx), sub); cerr != nil {
		outcome = SubmitFailed{Err: cerr}
		metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		log.Errorw("application create failed",
			"lead", sub.LeadID, "request_token", sub.RequestToken, "err", cerr)
		c.notify(ctx, toastFailed)
		return Outcome{}, fmt.Errorf("%w: %w", ErrSubmitFailed, cerr)
	}

	outcome = SubmitSucceeded{}
	metrics.SubmissionsTotal.WithLabelValues("created").Inc()
	log.Infow("application created", "lead", sub.LeadID, "request_token", sub.RequestToken)
	c.notify(ctx, toastCreated)
	return Outcome{Created: true}, nil
}

func (c *Controller) create(ctx context.Context, sub Submission) error {
	if c.deps.Records == nil {
		return errors.New("no record store configured")
	}
	return c.deps.Records.CreateApplication(ctx, sub)
}

func (c *Controller) notify(ctx context.Context, t message.Toast) {
	if c.deps.Notifier != nil {
		c.deps.Notifier.Notify(ctx, t)
	}
}
