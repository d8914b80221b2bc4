// internal/form/renderer.go
//
// Intake – Forms subsystem: HTML renderer.
//
// Context
//   Render converts one session snapshot into the application form markup.
//   The field set is fixed; the variant switches decide whether the detailed
//   address input and the hidden coordinate inputs are present.  A terminal
//   session renders only its status text.
//
// Workflow
//   •  Validation messages, when present, are listed above the fields in
//      rule order.
//   •  Each field is written via writeField, wrapped in
//      <div class="form-field"> with id="fld-{name}".
//   •  The district select and detailed-address input carry `disabled` until
//      the cascading rules enable them.
//   •  The submit button shows State.SubmitLabel and is disabled while a
//      submission is in flight.
//   •  The CSRF token is embedded as a hidden input.
//
// Style
//   Output HTML is deliberately plain so page templates can style it through
//   element selectors or the class hooks above.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strconv"
)

// View bundles everything one render needs.
type View struct {
	State        State
	Caps         Capabilities
	BrandOptions []Option
	StateOptions []Option
	Errors       Result
	CSRFToken    string
	Action       string // form action URL; "" → "/apply/submit"
}

// fieldDef is the static presentation of one input.
type fieldDef struct {
	Field       Field
	Label       string
	Type        string // text, email, tel, textarea, select, address, hidden
	Placeholder string
	Required    bool
	MaxLength   int
}

// layout is the render order of the visible form.
func layout(c Capabilities) []fieldDef {
	defs := []fieldDef{
		{Field: FieldBrand, Label: "브랜드", Type: "select", Required: true},
		{Field: FieldName, Label: "이름", Type: "text", Required: true},
		{Field: FieldEmail, Label: "이메일", Type: "email", Placeholder: "name@example.com", Required: true},
		{Field: FieldPhone, Label: "전화번호", Type: "tel", Placeholder: "010-0000-0000", Required: true},
		{Field: FieldZipcode, Label: "우편번호", Type: "address"},
		{Field: FieldAddress, Label: "주소", Type: "address", Required: true},
	}
	if c.DetailedAddress {
		defs = append(defs, fieldDef{Field: FieldDetailedAddress, Label: "상세 주소", Type: "text"})
	}
	defs = append(defs,
		fieldDef{Field: FieldPreferredState, Label: "희망 지역(시/도)", Type: "select", Required: true},
		fieldDef{Field: FieldPreferredDistrict, Label: "희망 지역(구/군)", Type: "select", Required: true},
		fieldDef{Field: FieldAdditionalInfo, Label: "추가 정보", Type: "textarea", MaxLength: c.infoMax()},
	)
	if c.Coordinates {
		defs = append(defs,
			fieldDef{Field: FieldLongitude, Type: "hidden"},
			fieldDef{Field: FieldLatitude, Type: "hidden"},
		)
	}
	return defs
}

// Render returns the markup for v.
func Render(v View) template.HTML {
	var buf bytes.Buffer
	s := v.State

	if s.Terminal() {
		buf.WriteString(`<div class="intake-status" role="status">` + html.EscapeString(s.StatusText) + `</div>`)
		return template.HTML(buf.String())
	}

	action := v.Action
	if action == "" {
		action = "/apply/submit"
	}
	buf.WriteString(`<form class="intake-form" method="post" action="` + html.EscapeString(action) + `" novalidate>` + "\n")

	if !v.Errors.Valid() {
		buf.WriteString(`<ul class="form-errors" role="alert">` + "\n")
		for _, m := range v.Errors.Messages() {
			buf.WriteString(`<li>` + html.EscapeString(m) + `</li>` + "\n")
		}
		buf.WriteString(`</ul>` + "\n")
	}

	for _, f := range layout(v.Caps) {
		writeField(&buf, f, v)
	}

	buf.WriteString(fmt.Sprintf(`<input type="hidden" name="csrf_token" value="%s">`+"\n", html.EscapeString(v.CSRFToken)))

	buf.WriteString(`<button type="submit" class="intake-submit"`)
	if s.IsSubmitting {
		buf.WriteString(` disabled aria-busy="true"`)
	}
	buf.WriteString(`>` + html.EscapeString(s.SubmitLabel) + `</button>` + "\n")
	buf.WriteString(`</form>`)
	return template.HTML(buf.String())
}

// writeField emits one input with its label and error hook.
func writeField(buf *bytes.Buffer, f fieldDef, v View) {
	s := v.State
	name := html.EscapeString(string(f.Field))
	val := html.EscapeString(s.Value(f.Field))

	if f.Type == "hidden" {
		buf.WriteString(`<input type="hidden" id="fld-` + name + `" name="` + name + `" value="` + val + `">` + "\n")
		return
	}

	buf.WriteString(`<div class="form-field">` + "\n")
	buf.WriteString(`<label for="fld-` + name + `">` + html.EscapeString(f.Label) + `</label>` + "\n")

	attrs := `id="fld-` + name + `" name="` + name + `"`
	if f.Required {
		attrs += ` required`
	}

	switch f.Type {
	case "text", "email", "tel":
		buf.WriteString(`<input ` + attrs + ` type="` + f.Type + `"`)
		if f.Placeholder != "" {
			buf.WriteString(` placeholder="` + html.EscapeString(f.Placeholder) + `"`)
		}
		if f.Field == FieldDetailedAddress && !s.IsDetailedAddressEnabled {
			buf.WriteString(` disabled`)
		}
		buf.WriteString(` value="` + val + `">` + "\n")

	case "address":
		// Filled only by the postcode widget.
		buf.WriteString(`<input ` + attrs + ` type="text" readonly value="` + val + `">` + "\n")
		if f.Field == FieldAddress {
			buf.WriteString(`<button type="button" class="intake-address-search" data-action="address-search">주소 검색</button>` + "\n")
		}

	case "textarea":
		buf.WriteString(`<textarea ` + attrs)
		if f.MaxLength > 0 {
			buf.WriteString(` maxlength="` + strconv.Itoa(f.MaxLength) + `"`)
		}
		buf.WriteString(`>` + val + `</textarea>` + "\n")

	case "select":
		opts, enabled := selectOptions(f.Field, v)
		buf.WriteString(`<select ` + attrs)
		if !enabled {
			buf.WriteString(` disabled`)
		}
		buf.WriteString(`>` + "\n")
		buf.WriteString(`<option value="">선택하세요</option>` + "\n")
		cur := s.Value(f.Field)
		found := false
		for _, o := range opts {
			sel := ""
			if o.Value == cur {
				sel = ` selected`
				found = true
			}
			buf.WriteString(`<option value="` + html.EscapeString(o.Value) + `"` + sel + `>` + html.EscapeString(o.Label) + `</option>` + "\n")
		}
		// A prefilled value the picklist does not offer stays selectable.
		if cur != "" && !found {
			buf.WriteString(`<option value="` + html.EscapeString(cur) + `" selected>` + html.EscapeString(cur) + `</option>` + "\n")
		}
		buf.WriteString(`</select>` + "\n")
	}

	buf.WriteString(`<span class="error" aria-live="polite">` + html.EscapeString(fieldError(v.Errors, f.Field)) + `</span>` + "\n")
	buf.WriteString(`</div>` + "\n")
}

func selectOptions(f Field, v View) ([]Option, bool) {
	switch f {
	case FieldBrand:
		return v.BrandOptions, true
	case FieldPreferredState:
		return v.StateOptions, true
	case FieldPreferredDistrict:
		return v.State.DistrictOptions, v.State.IsDistrictSelectorEnabled
	}
	return nil, false
}

// fieldError returns the first message reported for f.
func fieldError(r Result, f Field) string {
	for _, e := range r {
		if e.Name == f {
			return e.Message
		}
	}
	return ""
}
