// components/apply/apply.go
//
// Franchise application component – the /apply page and its event API.
//
// Context
//   A GET of /apply?leadId=… starts a fresh form session, mounts it with
//   the lead id from the URL, and renders the form.  A reload after a
//   successful submit shows the completed status instead.  The page script then
//   reports each UI event to the session through small POST endpoints:
//
//     POST /apply/field     field, value           free-text edit
//     POST /apply/state     state                  parent region pick
//     POST /apply/district  district               child region pick
//     POST /apply/address   postalCode, road…      postcode widget result
//     POST /apply/submit    every typed field      validate + create
//
//   and may read
//
//     GET  /apply/api/state               session snapshot + pending toasts
//     GET  /apply/api/districts?state=…   child options for a state
//
//   Every POST must carry the session's CSRF token, in the X-CSRF-Token
//   header or the csrf_token form value.  Responses are JSON; a plain form
//   POST to /apply/submit (no script) gets the re-rendered page instead.
//
// Status codes
//   400 unknown field • 403 bad CSRF token • 409 session closed or busy
//   410 unknown session • 422 validation failed • 502 record store failed
//
//------------------------------------------------------------------------------

package apply

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/intake/internal/component"
	"github.com/yanizio/intake/internal/form"
	"github.com/yanizio/intake/internal/head"
	"github.com/yanizio/intake/internal/logger"
	"github.com/yanizio/intake/internal/message"
	"github.com/yanizio/intake/internal/session"
)

//go:embed templates/page.html
var pageHTML string

//go:embed static
var staticFS embed.FS

// maxBody caps every POST body.
const maxBody = 64 << 10

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component serves the application form.
type Component struct {
	sessions *session.Store
	tokens   *form.Tokens
	catalog  *form.RegionCatalog
	page     *template.Template
}

// New builds the component.  catalog must be the one the session builder
// hands to its controllers.
func New(sessions *session.Store, tokens *form.Tokens, catalog *form.RegionCatalog) *Component {
	if catalog == nil {
		catalog = form.DefaultRegionCatalog()
	}
	return &Component{
		sessions: sessions,
		tokens:   tokens,
		catalog:  catalog,
		page:     template.Must(template.New("page").Parse(pageHTML)),
	}
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key, which is also its mount path.
func (c *Component) Name() string { return "apply" }

// Routes builds the router mounted at “/apply”.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", c.handlePage)

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/apply/static/", http.FileServer(http.FS(static))))

	r.Get("/api/districts", c.handleDistricts)

	r.Group(func(r chi.Router) {
		r.Use(c.withSession)
		r.Get("/api/state", c.handleState)

		r.Group(func(r chi.Router) {
			r.Use(c.verifyCSRF)
			r.Post("/field", c.handleField)
			r.Post("/state", c.handleSelectState)
			r.Post("/district", c.handleSelectDistrict)
			r.Post("/address", c.handleAddress)
			r.Post("/submit", c.handleSubmit)
		})
	})
	return r
}

/*──────────────────────────── Middleware ───────────────────────────────────*/

type sessionKey struct{}

func contextWithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func sessionFrom(r *http.Request) *session.Session {
	s, _ := r.Context().Value(sessionKey{}).(*session.Session)
	return s
}

// withSession resolves the cookie session and attaches it, plus a child
// logger, to the request context.
func (c *Component) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := c.sessions.FromRequest(r)
		if !ok {
			writeError(w, http.StatusGone, "세션이 만료되었습니다. 페이지를 새로고침해주세요.")
			return
		}
		ctx := r.Context()
		ctx = logger.WithContext(ctx, requestLogger(r, s.ID))
		ctx = contextWithSession(ctx, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// verifyCSRF rejects a POST whose token was not minted for its session.
func (c *Component) verifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		tok := r.Header.Get("X-CSRF-Token")
		if tok == "" {
			tok = r.PostFormValue("csrf_token")
		}
		s := sessionFrom(r)
		if !c.tokens.Verify(s.ID, tok) {
			logger.FromContext(r.Context()).Warnw("csrf token rejected", "path", r.URL.Path)
			writeError(w, http.StatusForbidden, http.StatusText(http.StatusForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(r *http.Request, sessionID string) *zap.SugaredLogger {
	return zap.S().With("request_id", middleware.GetReqID(r.Context()), "session", sessionID)
}

/*──────────────────────────── Page ─────────────────────────────────────────*/

// Resources loaded by every page.
const (
	postcodeScript = "https://t1.daumcdn.net/mapjsapi/bundle/postcode/prod/postcode.v2.js"
	pageScript     = "/apply/static/apply.js"
	pageStyle      = "/apply/static/apply.css"
	pageTitle      = "창업 신청서"
)

type pageData struct {
	Head   *head.Builder
	Title  string
	Form   template.HTML
	Toasts []message.Toast
}

// handlePage starts a new session for every page load, except that a
// browser whose session already submitted for the same lead gets that
// terminal page back.
func (c *Component) handlePage(w http.ResponseWriter, r *http.Request) {
	leadID := strings.TrimSpace(r.URL.Query().Get("leadId"))
	if s, ok := c.sessions.FromRequest(r); ok {
		if st := s.Controller.State(); st.IsSubmitted && st.Identifier != "" && st.Identifier == leadID {
			ctx := logger.WithContext(r.Context(), requestLogger(r, s.ID))
			c.renderPage(w, r.WithContext(ctx), s, http.StatusOK, nil)
			return
		}
	}

	s := c.sessions.Create()
	ctx := logger.WithContext(r.Context(), requestLogger(r, s.ID))

	s.Controller.Mount(ctx, leadID)
	c.sessions.SetCookie(w, r, s)
	c.renderPage(w, r.WithContext(ctx), s, http.StatusOK, nil)
}

func (c *Component) renderPage(w http.ResponseWriter, r *http.Request, s *session.Session, status int, errs form.Result) {
	tok, err := c.tokens.Generate(s.ID)
	if err != nil {
		logger.FromContext(r.Context()).Errorw("csrf token generation failed", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctl := s.Controller
	stateOpts := ctl.Options(form.FieldPreferredState)
	if len(stateOpts) == 0 {
		stateOpts = form.OptionsFromValues(c.catalog.States())
	}
	view := form.View{
		State:        ctl.State(),
		Caps:         ctl.Capabilities(),
		BrandOptions: ctl.Options(form.FieldBrand),
		StateOptions: stateOpts,
		Errors:       errs,
		CSRFToken:    tok,
		Action:       "/apply/submit",
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	h := head.New()
	h.SetTitle(pageTitle)
	h.Meta("viewport", "width=device-width, initial-scale=1")
	h.Meta("csrf-token", tok)
	h.Stylesheet(pageStyle)
	h.Script(postcodeScript)
	h.Script(pageScript)

	data := pageData{Head: h, Title: pageTitle, Form: form.Render(view), Toasts: s.Flash.Drain()}
	if err := c.page.Execute(w, data); err != nil {
		logger.FromContext(r.Context()).Errorw("page render failed", "err", err)
	}
}

/*──────────────────────────── JSON API ─────────────────────────────────────*/

type stateResponse struct {
	State     form.State        `json:"state"`
	Selection *form.Selection   `json:"selection,omitempty"`
	Errors    []form.ErrorField `json:"errors,omitempty"`
	Summary   string            `json:"summary,omitempty"`
	Created   bool              `json:"created,omitempty"`
	Toasts    []message.Toast   `json:"toasts,omitempty"`
}

func (c *Component) handleState(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	writeJSON(w, http.StatusOK, stateResponse{State: s.Controller.State(), Toasts: s.Flash.Drain()})
}

func (c *Component) handleDistricts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.catalog.OnStateSelected(r.URL.Query().Get("state")))
}

func (c *Component) handleField(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	st, err := s.Controller.Change(form.Field(r.PostFormValue("field")), r.PostFormValue("value"))
	c.respond(w, s, stateResponse{State: st}, err)
}

func (c *Component) handleSelectState(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	sel, err := s.Controller.SelectState(r.PostFormValue("state"))
	c.respond(w, s, stateResponse{State: s.Controller.State(), Selection: &sel}, err)
}

func (c *Component) handleSelectDistrict(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	st, err := s.Controller.SelectDistrict(r.PostFormValue("district"))
	c.respond(w, s, stateResponse{State: st}, err)
}

func (c *Component) handleAddress(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	st, err := s.Controller.SelectAddress(r.Context(), form.AddressResult{
		PostalCode:   strings.TrimSpace(r.PostFormValue("postalCode")),
		RoadAddress:  strings.TrimSpace(r.PostFormValue("roadAddress")),
		JibunAddress: strings.TrimSpace(r.PostFormValue("jibunAddress")),
	})
	c.respond(w, s, stateResponse{State: st}, err)
}

/*──────────────────────────── Submit ───────────────────────────────────────*/

// handleSubmit applies the posted typed fields and submits.  Fields are
// applied in form order, so a changed state clears the district before the
// posted district is recorded.
func (c *Component) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	ctl := s.Controller

	if err := applyPosted(r, ctl); err != nil {
		c.respond(w, s, stateResponse{State: ctl.State()}, err)
		return
	}

	out, err := ctl.Submit(r.Context())
	if !wantsJSON(r) {
		c.renderPage(w, r, s, statusFor(err), out.Errors)
		return
	}
	c.respond(w, s, stateResponse{State: out.State, Created: out.Created}, err)
}

func applyPosted(r *http.Request, ctl *form.Controller) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	caps := ctl.Capabilities()
	for _, f := range form.TypedFields {
		if f == form.FieldDetailedAddress && !caps.DetailedAddress {
			continue
		}
		vals, ok := r.PostForm[string(f)]
		if !ok {
			continue
		}
		v := vals[0]
		if ctl.State().Value(f) == v {
			continue
		}
		if _, err := ctl.Change(f, v); err != nil {
			return err
		}
	}
	return nil
}

/*──────────────────────────── Helpers ──────────────────────────────────────*/

// respond writes resp, or the error mapped to its status code.  Pending
// toasts are always included.
func (c *Component) respond(w http.ResponseWriter, s *session.Session, resp stateResponse, err error) {
	resp.Toasts = s.Flash.Drain()
	status := statusFor(err)

	var ve form.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &ve):
		resp.Errors = ve.Result
		resp.Summary = ve.Result.Summary()
	default:
		resp.Summary = err.Error()
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	var mbe *http.MaxBytesError
	switch {
	case err == nil:
		return http.StatusOK
	case form.IsValidationError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, form.ErrUnknownField):
		return http.StatusBadRequest
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, form.ErrClosed), errors.Is(err, form.ErrSubmitInProgress):
		return http.StatusConflict
	case errors.Is(err, form.ErrSubmitFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("json encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
