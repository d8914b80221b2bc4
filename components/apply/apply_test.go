package apply

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/intake/internal/form"
	"github.com/yanizio/intake/internal/message"
	"github.com/yanizio/intake/internal/session"
)

type stubLeads struct{}

func (stubLeads) LeadByID(_ context.Context, _ string) (form.Lead, error) {
	return form.Lead{LastName: "홍", FirstName: "길동", Email: "gildong@example.co.kr", Phone: "010-1234-5678", Brand: "한솥"}, nil
}

type stubPicklists struct{}

func (stubPicklists) PicklistValues(_ context.Context, _, field string) ([]string, error) {
	if field == form.PicklistBrandField {
		return []string{"한솥", "본죽"}, nil
	}
	return nil, errors.New("picklist offline")
}

type failingPicklists struct{}

func (failingPicklists) PicklistValues(_ context.Context, _, _ string) ([]string, error) {
	return nil, errors.New("picklist offline")
}

type stubRecords struct {
	mu   sync.Mutex
	err  error
	subs []form.Submission
}

func (s *stubRecords) CreateApplication(_ context.Context, sub form.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.subs = append(s.subs, sub)
	return nil
}

type fixture struct {
	router  http.Handler
	tokens  *form.Tokens
	records *stubRecords
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, stubPicklists{})
}

func newFixtureWith(t *testing.T, picklists form.PicklistSource) *fixture {
	t.Helper()
	tokens, err := form.NewTokens([]byte(strings.Repeat("k", 32)), 0)
	if err != nil {
		t.Fatal(err)
	}
	catalog := form.DefaultRegionCatalog()
	recs := &stubRecords{}
	build := func(n message.Notifier) *form.Controller {
		return form.NewController(catalog, form.DefaultCapabilities(), form.Deps{
			Leads: stubLeads{}, Picklists: picklists, Records: recs, Notifier: n,
		})
	}
	c := New(session.New(build, session.Options{}), tokens, catalog)

	r := chi.NewRouter()
	r.Mount("/"+c.Name(), c.Routes())
	return &fixture{router: r, tokens: tokens, records: recs}
}

// open loads the page and returns the session cookie plus a valid token.
func (f *fixture) open(t *testing.T, leadID string) (*http.Cookie, string) {
	t.Helper()
	rec := f.do(httptest.NewRequest(http.MethodGet, "/apply?leadId="+leadID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /apply = %d", rec.Code)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("session cookie not set")
	}
	tok, err := f.tokens.Generate(cookie.Value)
	if err != nil {
		t.Fatal(err)
	}
	return cookie, tok
}

func (f *fixture) do(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, r)
	return rec
}

func (f *fixture) post(t *testing.T, path string, cookie *http.Cookie, tok string, vals url.Values) (*httptest.ResponseRecorder, stateResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if tok != "" {
		req.Header.Set("X-CSRF-Token", tok)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := f.do(req)
	var resp stateResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: bad json: %v", path, err)
		}
	}
	return rec, resp
}

func TestPage_Prefill(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/apply?leadId=00Q5g00000AbCdE", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`name="csrf-token"`,
		`value="홍길동"`,
		`postcode.v2.js`,
		`/apply/static/apply.js`,
		// state picklist failed; the catalog fills in
		`서울특별시`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestPage_NoLeadID(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/apply", nil))
	if !strings.Contains(rec.Body.String(), form.StatusNoPermission) {
		t.Fatal("no-permission status not rendered")
	}
	if strings.Contains(rec.Body.String(), `class="intake-form"`) {
		t.Fatal("form rendered for a closed session")
	}
}

func TestStatic(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/apply/static/apply.js", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "X-CSRF-Token") {
		t.Fatalf("apply.js not served: %d", rec.Code)
	}
	body := rec.Body.String()
	// a failed request must hand the submit button back
	if !strings.Contains(body, ".catch(") || !strings.Contains(body, "restoreSubmit") {
		t.Error("apply.js has no failure path for submit")
	}
	if strings.Contains(body, "location.reload") {
		t.Error("apply.js reloads the page, which starts a new session")
	}
}

func TestEvents_RequireSessionAndToken(t *testing.T) {
	f := newFixture(t)
	cookie, tok := f.open(t, "00Q5g00000AbCdE")
	vals := url.Values{"field": {"name"}, "value": {"김철수"}}

	if rec, _ := f.post(t, "/apply/field", nil, tok, vals); rec.Code != http.StatusGone {
		t.Errorf("no cookie: status = %d", rec.Code)
	}
	if rec, _ := f.post(t, "/apply/field", cookie, "", vals); rec.Code != http.StatusForbidden {
		t.Errorf("no token: status = %d", rec.Code)
	}
	other, _ := f.tokens.Generate("another-session")
	if rec, _ := f.post(t, "/apply/field", cookie, other, vals); rec.Code != http.StatusForbidden {
		t.Errorf("foreign token: status = %d", rec.Code)
	}

	// form value is accepted in place of the header
	vals.Set("csrf_token", tok)
	rec, resp := f.post(t, "/apply/field", cookie, "", vals)
	if rec.Code != http.StatusOK || resp.State.Name != "김철수" {
		t.Fatalf("status = %d, name = %q", rec.Code, resp.State.Name)
	}
}

func TestEvents_UnknownField(t *testing.T) {
	f := newFixture(t)
	cookie, tok := f.open(t, "00Q5g00000AbCdE")
	rec, _ := f.post(t, "/apply/field", cookie, tok, url.Values{"field": {"isSubmitted"}, "value": {"true"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestEvents_WidgetFieldsRejected(t *testing.T) {
	f := newFixture(t)
	cookie, tok := f.open(t, "00Q5g00000AbCdE")
	f.post(t, "/apply/address", cookie, tok, url.Values{
		"postalCode": {"06236"}, "roadAddress": {"서울 강남구 테헤란로 152"},
	})

	for _, field := range []string{"address", "zipcode", "coordinatesLongitude", "coordinatesLatitude"} {
		rec, _ := f.post(t, "/apply/field", cookie, tok, url.Values{"field": {field}, "value": {"99999"}})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", field, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/apply/api/state", nil)
	req.AddCookie(cookie)
	var resp stateResponse
	if err := json.Unmarshal(f.do(req).Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.State.Address != "서울 강남구 테헤란로 152" || resp.State.Zipcode != "06236" {
		t.Fatalf("widget fields changed: %+v", resp.State)
	}
}

func TestEvents_StateThenDistrict(t *testing.T) {
	f := newFixture(t)
	cookie, tok := f.open(t, "00Q5g00000AbCdE")

	rec, resp := f.post(t, "/apply/state", cookie, tok, url.Values{"state": {"서울특별시"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.Selection == nil || !resp.Selection.Enabled || len(resp.Selection.Options) == 0 {
		t.Fatalf("selection = %+v", resp.Selection)
	}

	_, resp = f.post(t, "/apply/district", cookie, tok, url.Values{"district": {"강남구"}})
	if resp.State.PreferredDistrict != "강남구" {
		t.Fatalf("district = %q", resp.State.PreferredDistrict)
	}

	_, resp = f.post(t, "/apply/state", cookie, tok, url.Values{"state": {"부산광역시"}})
	if resp.State.PreferredDistrict != "" {
		t.Fatal("district kept after state change")
	}
}

func TestDistricts(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/apply/api/districts?state="+url.QueryEscape("서울특별시"), nil))
	var sel form.Selection
	if err := json.Unmarshal(rec.Body.Bytes(), &sel); err != nil {
		t.Fatal(err)
	}
	if !sel.Enabled {
		t.Fatal("selector disabled for a known state")
	}

	rec = f.do(httptest.NewRequest(http.MethodGet, "/apply/api/districts?state="+url.QueryEscape("없는도"), nil))
	sel = form.Selection{}
	_ = json.Unmarshal(rec.Body.Bytes(), &sel)
	if sel.Enabled || len(sel.Options) != 0 {
		t.Fatalf("unknown state: %+v", sel)
	}
}

func TestSubmit_Created(t *testing.T) {
	f := newFixture(t)
	cookie, tok := f.open(t, "00Q5g00000AbCdE")

	f.post(t, "/apply/address", cookie, tok, url.Values{
		"postalCode": {"06236"}, "roadAddress": {"서울 강남구 테헤란로 152"},
	})
	rec, resp := f.post(t, "/apply/submit", cookie, tok, url.Values{
		"brand":             {"한솥"},
		"name":              {"홍길동"},
		"email":             {"gildong@example.co.kr"},
		"phone":             {"010-1234-5678"},
		"detailedAddress":   {"12층"},
		"preferredState":    {"서울특별시"},
		"preferredDistrict": {"강남구"},
		"additionalInfo":    {"매장 경험 3년"},
	})
	if rec.Code != http.StatusOK || !resp.Created {
		t.Fatalf("status = %d, created = %v, summary = %q", rec.Code, resp.Created, resp.Summary)
	}
	if !resp.State.IsSubmitted {
		t.Error("session not terminal after success")
	}
	if len(resp.Toasts) != 1 || resp.Toasts[0].Variant != message.VariantSuccess {
		t.Errorf("toasts = %+v", resp.Toasts)
	}

	if len(f.records.subs) != 1 {
		t.Fatalf("records = %d", len(f.records.subs))
	}
	sub := f.records.subs[0]
	if sub.LeadID != "00Q5g00000AbCdE" || sub.PreferredDistrict != "강남구" || sub.DetailedAddress != "12층" {
		t.Errorf("submission = %+v", sub)
	}

	// closed after success
	rec, _ = f.post(t, "/apply/submit", cookie, tok, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second submit: status = %d", rec.Code)
	}
}

func TestSubmit_Invalid(t *testing.T) {
	f := newFixture(t)
	cookie, tok := f.open(t, "00Q5g00000AbCdE")

	rec, resp := f.post(t, "/apply/submit", cookie, tok, url.Values{"email": {"not-an-email"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(resp.Errors) == 0 || !strings.HasPrefix(resp.Summary, "입력 실패 :") {
		t.Fatalf("errors = %+v, summary = %q", resp.Errors, resp.Summary)
	}
	if len(f.records.subs) != 0 {
		t.Fatal("record created for invalid input")
	}
}

func TestSubmit_RecordStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.records.err = errors.New("connection refused")
	cookie, tok := f.open(t, "00Q5g00000AbCdE")

	f.post(t, "/apply/address", cookie, tok, url.Values{"roadAddress": {"서울 강남구 테헤란로 152"}})
	rec, resp := f.post(t, "/apply/submit", cookie, tok, url.Values{
		"preferredState": {"서울특별시"}, "preferredDistrict": {"강남구"},
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d (%s)", rec.Code, resp.Summary)
	}
	if resp.State.IsSubmitted || resp.State.IsSubmitting {
		t.Error("session should be editable after failure")
	}
	if resp.State.PreferredDistrict != "강남구" {
		t.Error("input lost after failure")
	}
	if len(resp.Toasts) != 1 || resp.Toasts[0].Variant != message.VariantError {
		t.Errorf("toasts = %+v", resp.Toasts)
	}
}

func TestSubmit_HTMLFallback(t *testing.T) {
	f := newFixture(t)
	cookie, tok := f.open(t, "00Q5g00000AbCdE")

	vals := url.Values{"csrf_token": {tok}, "name": {""}}
	req := httptest.NewRequest(http.MethodPost, "/apply/submit", strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := f.do(req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("content type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), `class="form-errors"`) {
		t.Fatal("errors not rendered")
	}
}

func TestStateEndpoint(t *testing.T) {
	f := newFixture(t)
	cookie, _ := f.open(t, "00Q5g00000AbCdE")

	req := httptest.NewRequest(http.MethodGet, "/apply/api/state", nil)
	req.AddCookie(cookie)
	rec := f.do(req)

	var resp stateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.State.Identifier != "00Q5g00000AbCdE" || resp.State.Email != "gildong@example.co.kr" {
		t.Fatalf("state = %+v", resp.State)
	}
}

func TestPage_PrefillSurvivesPicklistFailure(t *testing.T) {
	f := newFixtureWith(t, failingPicklists{})
	rec := f.do(httptest.NewRequest(http.MethodGet, "/apply?leadId=00Q5g00000AbCdE", nil))
	if !strings.Contains(rec.Body.String(), `<option value="한솥" selected>한솥</option>`) {
		t.Fatal("prefilled brand not selected when the picklist is unavailable")
	}

	cookie, tok := f.open(t, "00Q5g00000AbCdE")
	f.post(t, "/apply/address", cookie, tok, url.Values{"roadAddress": {"서울 강남구 테헤란로 152"}})
	// the browser posts the selected brand back
	rec, resp := f.post(t, "/apply/submit", cookie, tok, url.Values{
		"brand": {"한솥"}, "preferredState": {"서울특별시"}, "preferredDistrict": {"강남구"},
	})
	if rec.Code != http.StatusOK || !resp.Created {
		t.Fatalf("status = %d, summary = %q", rec.Code, resp.Summary)
	}
	if got := f.records.subs[0].Brand; got != "한솥" {
		t.Fatalf("brand = %q", got)
	}
}

func TestPage_ReloadAfterSubmitShowsStatus(t *testing.T) {
	f := newFixture(t)
	cookie, tok := f.open(t, "00Q5g00000AbCdE")
	f.post(t, "/apply/address", cookie, tok, url.Values{"roadAddress": {"서울 강남구 테헤란로 152"}})
	if rec, _ := f.post(t, "/apply/submit", cookie, tok, url.Values{
		"preferredState": {"서울특별시"}, "preferredDistrict": {"강남구"},
	}); rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/apply?leadId=00Q5g00000AbCdE", nil)
	req.AddCookie(cookie)
	body := f.do(req).Body.String()
	if !strings.Contains(body, form.StatusSubmitted) {
		t.Error("completed status not shown on reload")
	}
	if strings.Contains(body, `class="intake-form"`) {
		t.Error("editable form rendered after submit")
	}

	// another lead on the same browser starts over
	req = httptest.NewRequest(http.MethodGet, "/apply?leadId=00Q5g00000ZzZzZ", nil)
	req.AddCookie(cookie)
	if !strings.Contains(f.do(req).Body.String(), `class="intake-form"`) {
		t.Error("form not rendered for a different lead")
	}
}
