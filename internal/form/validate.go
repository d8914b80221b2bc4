// internal/form/validate.go
//
// Intake – Forms subsystem: submission rule set.
//
// Context
//   Before a submission may reach the record store, Validate checks the
//   session State against a fixed rule set and collects every violation.
//   Nothing short-circuits: the applicant sees all problems at once, in the
//   order below, which is stable for identical input.
//
//     1. name, email, phone, address, brand, preferredState, and
//        preferredDistrict are required (non-empty after trimming).
//     2. email must look like local@domain.tld.
//     3. coordinates, when present, must both be numeric.  Either failure
//        yields ONE combined message.
//     4. additionalInfo must not exceed the variant's character cap.
//     5. preferredDistrict must belong to preferredState when the variant
//        enforces membership.
//
//   Single-field rules run through go-playground/validator so the tags read
//   the same as the ones on the configuration structs.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// -----------------------------------------------------------------------------
// Error types
// -----------------------------------------------------------------------------

// ErrorField describes a single violated rule.  Name is empty for rules that
// span more than one field.
type ErrorField struct {
	Name    Field  `json:"field,omitempty"`
	Message string `json:"message"`
}

// Result is the ordered list of violations.  An empty Result means valid.
type Result []ErrorField

// Valid reports whether no rule was violated.
func (r Result) Valid() bool { return len(r) == 0 }

// Messages returns the user-facing messages in rule order.
func (r Result) Messages() []string {
	out := make([]string, len(r))
	for i, e := range r {
		out[i] = e.Message
	}
	return out
}

// Summary joins every message behind the failure heading, one per line.
func (r Result) Summary() string {
	return "입력 실패 :\n" + strings.Join(r.Messages(), "\n")
}

// ValidationError wraps a non-empty Result so callers can tell user input
// errors from system failures via errors.As / IsValidationError.
type ValidationError struct{ Result Result }

func (ve ValidationError) Error() string { return ve.Result.Summary() }

// IsValidationError reports whether err came from a failed Validate.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// -----------------------------------------------------------------------------
// Messages
// -----------------------------------------------------------------------------

const (
	msgCoordinates   = "주소값 입력 시 문제가 발생했습니다. 다시 입력해주세요."
	msgEmailFormat   = "올바른 이메일 형식을 입력하세요."
	msgDistrictState = "선택한 희망 지역(구/군)이 희망 지역(시/도)에 속하지 않습니다."
)

// required lists the mandatory fields in reporting order.
var required = []struct {
	field Field
	msg   string
}{
	{FieldName, "이름을 입력하세요."},
	{FieldEmail, "이메일을 입력하세요."},
	{FieldPhone, "전화번호를 입력하세요."},
	{FieldAddress, "주소를 입력하세요."},
	{FieldBrand, "브랜드를 선택하세요."},
	{FieldPreferredState, "희망 지역(시/도)을 선택하세요."},
	{FieldPreferredDistrict, "희망 지역(구/군)을 선택하세요."},
}

func infoTooLongMsg(max int) string {
	return fmt.Sprintf("추가 정보는 최대 %d자까지 입력 가능합니다.", max)
}

// -----------------------------------------------------------------------------
// Validator instance
// -----------------------------------------------------------------------------

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var rules = newRuleValidator()

func newRuleValidator() *validator.Validate {
	v := validator.New()
	must(v.RegisterValidation("leademail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("coordinate", func(fl validator.FieldLevel) bool {
		return isCoordinate(fl.Field().String())
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic("form: register validation: " + err.Error())
	}
}

// check runs one validator tag against a single value.
func check(value, tag string) bool { return rules.Var(value, tag) == nil }

// isCoordinate accepts any finite decimal number, surrounding blanks allowed.
func isCoordinate(s string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// Validate evaluates every rule against s.  catalog may be nil, in which case
// district membership is not checked.
func Validate(s State, catalog *RegionCatalog, caps Capabilities) Result {
	var errs Result

	for _, r := range required {
		if !check(strings.TrimSpace(s.Value(r.field)), "required") {
			errs = append(errs, ErrorField{r.field, r.msg})
		}
	}

	if strings.TrimSpace(s.Email) != "" && !check(s.Email, "leademail") {
		errs = append(errs, ErrorField{FieldEmail, msgEmailFormat})
	}

	if badCoordinate(s.CoordinatesLongitude) || badCoordinate(s.CoordinatesLatitude) {
		errs = append(errs, ErrorField{"", msgCoordinates})
	}

	max := caps.infoMax()
	if s.AdditionalInfo != "" && !check(s.AdditionalInfo, fmt.Sprintf("max=%d", max)) {
		errs = append(errs, ErrorField{FieldAdditionalInfo, infoTooLongMsg(max)})
	}

	if caps.EnforceDistrictMembership && catalog != nil &&
		s.PreferredState != "" && s.PreferredDistrict != "" &&
		!catalog.Contains(s.PreferredState, s.PreferredDistrict) {
		errs = append(errs, ErrorField{FieldPreferredDistrict, msgDistrictState})
	}

	return errs
}

// badCoordinate is true for a present, non-numeric value.
func badCoordinate(v string) bool {
	return v != "" && !check(v, "coordinate")
}
