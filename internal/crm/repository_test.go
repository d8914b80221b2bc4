// internal/crm/repository_test.go
//
// Unit-tests for the CRM repository using sqlmock.
//
// Run: go test ./internal/crm -v

package crm

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/intake/internal/form"
	"github.com/yanizio/intake/internal/requestinfo"
)

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "mysql")), mock
}

func TestLeadByID(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT last_name, first_name, email, phone, brand FROM leads WHERE id = ?`,
	)).
		WithArgs("00Q1").
		WillReturnRows(sqlmock.NewRows([]string{"last_name", "first_name", "email", "phone", "brand"}).
			AddRow("홍", "길동", "g@d.kr", "010-1111-2222", "한솥"))

	got, err := repo.LeadByID(context.Background(), "00Q1")
	if err != nil {
		t.Fatalf("LeadByID error: %v", err)
	}
	if got.DisplayName() != "홍길동" || got.Brand != "한솥" {
		t.Fatalf("unexpected lead: %#v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestLeadByID_NotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`SELECT .* FROM leads`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"last_name", "first_name", "email", "phone", "brand"}))

	if _, err := repo.LeadByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPicklistValues(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT value FROM picklist_value WHERE object_name = ? AND field_name = ? AND active = TRUE ORDER BY sort_order, value`,
	)).
		WithArgs(form.PicklistObject, form.PicklistStateField).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("서울특별시").AddRow("부산광역시"))

	got, err := repo.PicklistValues(context.Background(), form.PicklistObject, form.PicklistStateField)
	if err != nil {
		t.Fatalf("PicklistValues error: %v", err)
	}
	if len(got) != 2 || got[0] != "서울특별시" {
		t.Fatalf("unexpected result: %#v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestPicklistValues_Error(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT value FROM picklist_value`).WillReturnError(errors.New("conn reset"))

	if _, err := repo.PicklistValues(context.Background(), "o", "f"); err == nil {
		t.Fatal("error swallowed")
	}
}

func TestCreateApplication(t *testing.T) {
	repo, mock := newMock(t)

	sub := form.Submission{
		RequestToken: "tok-1", LeadID: "00Q1", Name: "홍길동", Email: "g@d.kr",
		Phone: "010", Address: "서울 강남구 테헤란로 152", Brand: "한솥",
		PreferredState: "서울특별시", PreferredDistrict: "강남구",
		CoordinatesLongitude: "127.0276", CoordinatesLatitude: "37.4979",
	}

	mock.ExpectExec(`INSERT INTO application .* ON DUPLICATE KEY UPDATE request_token = request_token`).
		WithArgs(
			"tok-1", "00Q1", "홍길동", "g@d.kr", "010", "서울 강남구 테헤란로 152", "",
			"", "한솥", "서울특별시", "강남구", "",
			"127.0276", "37.4979",
			"198.51.100.4", "curl/8.0", "KR", false,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ctx := requestinfo.WithInfo(context.Background(), &requestinfo.RequestInfo{
		UA:  requestinfo.UA{Raw: "curl/8.0"},
		Geo: requestinfo.Geo{IP: net.ParseIP("198.51.100.4"), CountryISO: "KR"},
	})
	if err := repo.CreateApplication(ctx, sub); err != nil {
		t.Fatalf("CreateApplication error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestCreateApplication_DuplicateIsSuccess(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`INSERT INTO application`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CreateApplication(context.Background(), form.Submission{RequestToken: "tok-1", LeadID: "00Q1"})
	if err != nil {
		t.Fatalf("duplicate reported as error: %v", err)
	}
}

func TestCreateApplication_RequiresToken(t *testing.T) {
	repo, mock := newMock(t)
	if err := repo.CreateApplication(context.Background(), form.Submission{LeadID: "x"}); err == nil {
		t.Fatal("submission without token accepted")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected SQL: %v", err)
	}
}

func TestMetaFrom_TruncatesOnRuneBoundary(t *testing.T) {
	ua := "Mozilla/5.0 " + strings.Repeat("한", 200)
	ctx := requestinfo.WithInfo(context.Background(), &requestinfo.RequestInfo{
		UA: requestinfo.UA{Raw: ua},
	})

	got := metaFrom(ctx).UserAgent
	if len(got) > maxUserAgent {
		t.Fatalf("len = %d, want <= %d", len(got), maxUserAgent)
	}
	if !utf8.ValidString(got) {
		t.Fatal("truncated user agent is not valid UTF-8")
	}
	if len(got) != 510 || !strings.HasPrefix(ua, got) {
		t.Fatalf("len = %d, want 510-byte prefix", len(got))
	}
}
