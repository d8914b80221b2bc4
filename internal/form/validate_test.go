// internal/form/validate_test.go
//
// Unit-tests for the submission rule set.
//
// Run: go test ./internal/form -run Validate -v

package form

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func validState() State {
	s := NewState()
	s.Identifier = "00Q5g00000AbCdE"
	s.Brand = "한솥"
	s.Name = "홍길동"
	s.Email = "gildong@example.co.kr"
	s.Phone = "010-1234-5678"
	s.Address = "서울 강남구 테헤란로 152"
	s.PreferredState = "서울특별시"
	s.PreferredDistrict = "강남구"
	return s
}

func TestValidate_ValidState(t *testing.T) {
	res := Validate(validState(), DefaultRegionCatalog(), DefaultCapabilities())
	if !res.Valid() {
		t.Fatalf("expected valid, got %v", res.Messages())
	}
}

func TestValidate_AllRequiredMissingInOrder(t *testing.T) {
	res := Validate(NewState(), DefaultRegionCatalog(), DefaultCapabilities())

	want := []string{
		"이름을 입력하세요.",
		"이메일을 입력하세요.",
		"전화번호를 입력하세요.",
		"주소를 입력하세요.",
		"브랜드를 선택하세요.",
		"희망 지역(시/도)을 선택하세요.",
		"희망 지역(구/군)을 선택하세요.",
	}
	if diff := cmp.Diff(want, res.Messages()); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_OneErrorPerMissingField(t *testing.T) {
	s := validState()
	s.Phone = "   "
	s.Brand = ""

	res := Validate(s, DefaultRegionCatalog(), DefaultCapabilities())
	want := Result{
		{FieldPhone, "전화번호를 입력하세요."},
		{FieldBrand, "브랜드를 선택하세요."},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_EmailFormat(t *testing.T) {
	cases := []struct {
		email string
		bad   bool
	}{
		{"not-an-email", true},
		{"a@b", true},
		{"a b@c.de", true},
		{"a@b.co", false},
		{" a@b.co", true},
		{"a@b.co ", true},
	}
	for _, tc := range cases {
		s := validState()
		s.Email = tc.email
		res := Validate(s, DefaultRegionCatalog(), DefaultCapabilities())
		got := contains(res.Messages(), msgEmailFormat)
		if got != tc.bad {
			t.Errorf("email %q: format error = %v, want %v", tc.email, got, tc.bad)
		}
	}
}

func TestValidate_CoordinatesCombined(t *testing.T) {
	s := validState()
	s.CoordinatesLongitude = "abc"
	s.CoordinatesLatitude = "xyz"

	res := Validate(s, DefaultRegionCatalog(), DefaultCapabilities())
	if n := count(res.Messages(), msgCoordinates); n != 1 {
		t.Fatalf("coordinate errors = %d, want 1 (%v)", n, res.Messages())
	}
	if len(res) != 1 {
		t.Fatalf("unexpected extra errors: %v", res.Messages())
	}
}

func TestValidate_CoordinatesNumeric(t *testing.T) {
	s := validState()
	s.CoordinatesLongitude = "127.0276"
	s.CoordinatesLatitude = "37.4979"
	if res := Validate(s, DefaultRegionCatalog(), DefaultCapabilities()); !res.Valid() {
		t.Fatalf("numeric coordinates rejected: %v", res.Messages())
	}

	s.CoordinatesLatitude = "NaN"
	if res := Validate(s, DefaultRegionCatalog(), DefaultCapabilities()); res.Valid() {
		t.Fatal("NaN latitude accepted")
	}
}

func TestValidate_AdditionalInfoCap(t *testing.T) {
	caps := DefaultCapabilities()

	s := validState()
	s.AdditionalInfo = strings.Repeat("가", caps.AdditionalInfoMax)
	if res := Validate(s, DefaultRegionCatalog(), caps); !res.Valid() {
		t.Fatalf("text at the cap rejected: %v", res.Messages())
	}

	s.AdditionalInfo += "나"
	res := Validate(s, DefaultRegionCatalog(), caps)
	want := Result{{FieldAdditionalInfo, "추가 정보는 최대 500자까지 입력 가능합니다."}}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_DistrictMembership(t *testing.T) {
	s := validState()
	s.PreferredDistrict = "해운대구"

	res := Validate(s, DefaultRegionCatalog(), DefaultCapabilities())
	if !contains(res.Messages(), msgDistrictState) {
		t.Fatalf("mismatched district accepted: %v", res.Messages())
	}

	caps := DefaultCapabilities()
	caps.EnforceDistrictMembership = false
	if res := Validate(s, DefaultRegionCatalog(), caps); !res.Valid() {
		t.Fatalf("membership enforced while disabled: %v", res.Messages())
	}
}

func TestValidate_Deterministic(t *testing.T) {
	s := NewState()
	s.Email = "nope"
	s.CoordinatesLongitude = "?"
	a := Validate(s, DefaultRegionCatalog(), DefaultCapabilities())
	b := Validate(s, DefaultRegionCatalog(), DefaultCapabilities())
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("results differ between runs:\n%s", diff)
	}
}

func TestValidationError_Summary(t *testing.T) {
	err := ValidationError{Result: Result{{FieldName, "a"}, {FieldEmail, "b"}}}
	if got, want := err.Error(), "입력 실패 :\na\nb"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !IsValidationError(err) {
		t.Fatal("IsValidationError = false")
	}
}

func contains(list []string, s string) bool { return count(list, s) > 0 }

func count(list []string, s string) int {
	n := 0
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}
