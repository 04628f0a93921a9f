package schema

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/peopledoc/pkg/rules"
)

const signatureYAML = `
id: "*"
title: VARCHAR(10) / mandatory
expiration_date: DateISO8601
auto_archive: BOOLEAN
tags: [VARCHAR(3)]
signers:
  - type: "[organisation, employee, manager, external] / mandatory"
    signing_order: INTEGER
    birth_date: YYYY-MM-DD
    generate_pdf_sign_field:
      page: INTEGER
      llx: INTEGER
`

func signatureType(t *testing.T, opts ...Option) *Type {
	t.Helper()
	s, err := LoadYAML([]byte(signatureYAML))
	require.NoError(t, err)
	typ, err := Build(s, "signature", opts...)
	require.NoError(t, err)
	return typ
}

func TestLoadYAML(t *testing.T) {
	s, err := LoadYAML([]byte(signatureYAML))
	require.NoError(t, err)

	var names []string
	for _, f := range s.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"id", "title", "expiration_date", "auto_archive", "tags", "signers"}, names)

	tags, ok := s.Lookup("tags")
	require.True(t, ok)
	assert.Equal(t, KindArray, tags.Kind)
	assert.Equal(t, "VARCHAR(3)", tags.Rule)

	signers, ok := s.Lookup("signers")
	require.True(t, ok)
	assert.Equal(t, KindArray, signers.Kind)
	require.NotNil(t, signers.Schema)
	assert.Equal(t, 4, signers.Schema.Len())

	pdf, ok := signers.Schema.Lookup("generate_pdf_sign_field")
	require.True(t, ok)
	assert.Equal(t, KindObject, pdf.Kind)
}

func TestLoadYAML_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "empty", doc: "", wantErr: "empty document"},
		{name: "not a mapping", doc: "- a\n- b\n", wantErr: "expected a mapping"},
		{name: "two element array", doc: "codes: [INTEGER, INTEGER]\n", wantErr: "exactly one element"},
		{name: "nested array", doc: "codes:\n  - [INTEGER]\n", wantErr: "unsupported array element"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadYAML([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuild_MethodCollision(t *testing.T) {
	s := New(
		RuleField("title", "VARCHAR"),
		RuleField("save", "BOOLEAN"),
	)

	_, err := Build(s, "document", WithMethods("save", "download"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `method "save" collides`)

	typ, err := Build(s, "document", WithMethods("download", "download"))
	require.NoError(t, err)
	assert.Equal(t, []string{"download"}, typ.Methods())

	assert.Panics(t, func() {
		MustBuild(s, "document", WithMethods("title"))
	})
}

type wrapper struct{ *Model }

func (wrapper) SendNow() error { return nil }

func TestBuild_MethodsOf(t *testing.T) {
	ok := New(RuleField("title", "VARCHAR"))
	typ, err := Build(ok, "doc", WithMethodsOf(reflect.TypeOf(wrapper{})))
	require.NoError(t, err)
	assert.Contains(t, typ.Methods(), "send_now")
	assert.Contains(t, typ.Methods(), "to_json")

	clash := New(RuleField("send_now", "VARCHAR"))
	_, err = Build(clash, "doc", WithMethodsOf(reflect.TypeOf(wrapper{})))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send_now")
}

func TestBuild_InvalidFields(t *testing.T) {
	s := New(
		RuleField("", "VARCHAR"),
		RuleField("a", "VARCHAR"),
		RuleField("a", "INTEGER"),
		Field{Name: "b", Kind: KindObject},
	)

	_, err := Build(s, "bad")
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "empty field name")
	assert.Contains(t, msg, `duplicate field "a"`)
	assert.Contains(t, msg, "bad.b")
}

func TestModel_Enum(t *testing.T) {
	typ := signatureType(t)
	m := typ.New()
	require.NoError(t, m.Set("signers", []any{}))

	err := m.List("signers").Append(map[string]any{"type": "boss"})
	require.Error(t, err)

	var verr *rules.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "signature.signers.type", verr.Field)
	assert.Contains(t, err.Error(), "organisation, employee, manager, external")
	assert.Equal(t, 0, m.List("signers").Len())

	require.NoError(t, m.List("signers").Append(map[string]any{"type": "manager"}))
	assert.Equal(t, "manager", m.ToJSON()["signers"].([]any)[0].(map[string]any)["type"])
}

func TestModel_Date(t *testing.T) {
	signer, ok := signatureType(t).Nested("signers")
	require.True(t, ok)
	m := signer.New()

	require.NoError(t, m.Set("birth_date", time.Date(2024, time.March, 5, 0, 0, 0, 0, time.Local)))
	assert.Equal(t, "2024-03-05", m.Get("birth_date"))

	require.NoError(t, m.Set("birth_date", "2024-03-05"))
	assert.Equal(t, "2024-03-05", m.Get("birth_date"))

	err := m.Set("birth_date", "05-03-2024")
	assert.ErrorIs(t, err, rules.ErrInvalidValue)
	// A failed write keeps the previous value.
	assert.Equal(t, "2024-03-05", m.Get("birth_date"))
}

func TestModel_StringTruncation(t *testing.T) {
	m := signatureType(t).New()
	require.NoError(t, m.Set("title", "Non-disclosure agreement"))
	assert.Equal(t, "Non-disclo", m.Get("title"))
}

func TestModel_NestedArray(t *testing.T) {
	m := signatureType(t).New()

	err := m.Set("signers", "not an array")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected an array")

	require.NoError(t, m.Set("signers", nil))
	signers := m.List("signers")
	require.NotNil(t, signers)
	assert.Equal(t, 0, signers.Len())

	require.NoError(t, signers.Append(
		map[string]any{"type": "employee", "signing_order": "2"},
	))
	require.NoError(t, signers.Prepend(
		map[string]any{"type": "organisation", "signing_order": 1.0, "generate_pdf_sign_field": map[string]any{"page": "3"}},
	))

	require.Equal(t, 2, signers.Len())
	models := signers.Models()
	assert.Equal(t, "organisation", models[0].Get("type"))
	assert.Equal(t, int64(1), models[0].Get("signing_order"))
	assert.Equal(t, int64(3), models[0].Object("generate_pdf_sign_field").Get("page"))
	assert.Equal(t, "employee", models[1].Get("type"))
	assert.Equal(t, int64(2), models[1].Get("signing_order"))
	assert.Equal(t, signers.Elem(), models[1].Type())

	// Prepend is all-or-nothing.
	err = signers.Prepend(map[string]any{"type": "employee"}, map[string]any{"type": "nobody"})
	require.Error(t, err)
	assert.Equal(t, 2, signers.Len())
}

func TestModel_RuleArray(t *testing.T) {
	m := signatureType(t).New()
	require.NoError(t, m.Set("tags", []string{"alpha", "be"}))

	tags := m.List("tags")
	assert.Equal(t, []any{"alp", "be"}, tags.Values())
	assert.Nil(t, tags.Models())

	require.NoError(t, tags.Append(12345))
	assert.Equal(t, "123", tags.At(2))
	assert.Error(t, tags.Append(nil))
}

func TestModel_NestedObject(t *testing.T) {
	signer, _ := signatureType(t).Nested("signers")
	m := signer.New()

	require.NoError(t, m.Set("generate_pdf_sign_field", nil))
	pdf := m.Object("generate_pdf_sign_field")
	require.NotNil(t, pdf)
	assert.Empty(t, pdf.ToJSON())

	pdfType, ok := signer.Nested("generate_pdf_sign_field")
	require.True(t, ok)
	existing := pdfType.MustFrom(map[string]any{"page": 4})
	require.NoError(t, m.Set("generate_pdf_sign_field", existing))
	assert.Same(t, existing, m.Object("generate_pdf_sign_field"))

	err := m.Set("generate_pdf_sign_field", 12)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected an object")
}

func TestType_FromIdempotent(t *testing.T) {
	typ := signatureType(t)
	m := typ.New()

	same, err := typ.From(m)
	require.NoError(t, err)
	assert.Same(t, m, same)
}

func TestType_FromRoundTrip(t *testing.T) {
	typ := signatureType(t)
	raw := map[string]any{
		"title":        "Contract",
		"auto_archive": 1,
		"unknown":      "ignored",
		"signers": []any{
			map[string]any{"type": "external", "extra": true},
		},
	}

	m, err := typ.From(raw)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"title":        "Contract",
		"auto_archive": true,
		"signers": []any{
			map[string]any{"type": "external"},
		},
	}, m.ToJSON())

	assert.True(t, m.Has("title"))
	assert.False(t, m.Has("id"))
	assert.False(t, m.Has("unknown"))
	assert.Nil(t, m.Get("unknown"))
}

func TestType_FromErrors(t *testing.T) {
	typ := signatureType(t)

	_, err := typ.From("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected an object")

	_, err = typ.From(map[string]any{"signers": []any{map[string]any{"type": "x"}}})
	assert.ErrorIs(t, err, rules.ErrInvalidValue)
}

func TestType_FromStruct(t *testing.T) {
	type pdf struct {
		Page int `json:"page"`
	}
	type signer struct {
		Type  string `json:"type"`
		Order int    `json:"signing_order,omitempty"`
		PDF   pdf    `json:"generate_pdf_sign_field"`
	}
	type signature struct {
		Title   string   `json:"title"`
		Signers []signer `json:"signers"`
	}

	m, err := signatureType(t).From(signature{
		Title:   "Offer",
		Signers: []signer{{Type: "employee", PDF: pdf{Page: 2}}},
	})
	require.NoError(t, err)

	s := m.List("signers").Model(0)
	assert.Equal(t, "employee", s.Get("type"))
	assert.False(t, s.Has("signing_order"))
	assert.Equal(t, int64(2), s.Object("generate_pdf_sign_field").Get("page"))
}

func TestModel_SetUnknown(t *testing.T) {
	m := signatureType(t).New()
	err := m.Set("nope", 1)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestModel_SetNilClears(t *testing.T) {
	m := signatureType(t).New()
	m.MustSet("title", "A")
	require.NoError(t, m.Set("title", nil))
	assert.False(t, m.Has("title"))

	m.MustSet("title", "B")
	m.Unset("title")
	assert.False(t, m.Has("title"))
}

func TestModel_MarshalJSON(t *testing.T) {
	typ := signatureType(t)
	m := typ.MustFrom(map[string]any{
		"signers":      []any{map[string]any{"signing_order": 2, "type": "employee"}},
		"auto_archive": false,
		"title":        "T",
		"id":           map[string]any{"raw": []any{1}},
	})

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t,
		`{"id":{"raw":[1]},"title":"T","auto_archive":false,"signers":[{"type":"employee","signing_order":2}]}`,
		string(b))

	decoded := typ.New()
	require.NoError(t, json.Unmarshal(b, decoded))
	assert.Equal(t, m.ToJSON()["title"], decoded.ToJSON()["title"])
	assert.Equal(t, int64(2), decoded.List("signers").Model(0).Get("signing_order"))

	assert.True(t, strings.HasPrefix(m.String(), `signature{"id"`))
	assert.Contains(t, m.GoString(), `Type: "signature"`)
}

func TestModel_Decode(t *testing.T) {
	type signer struct {
		Type  string `json:"type"`
		Order int    `json:"signing_order"`
	}
	var out struct {
		Title      string    `json:"title"`
		Expiration time.Time `json:"expiration_date"`
		Signers    []signer  `json:"signers"`
	}

	m := signatureType(t).MustFrom(map[string]any{
		"title":           "Offer",
		"expiration_date": "2024-03-05T10:00:00Z",
		"signers":         []any{map[string]any{"type": "employee", "signing_order": "1"}},
	})

	require.NoError(t, m.Decode(&out))
	assert.Equal(t, "Offer", out.Title)
	assert.True(t, out.Expiration.Equal(time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, []signer{{Type: "employee", Order: 1}}, out.Signers)
}

func TestModel_Validate(t *testing.T) {
	typ := signatureType(t)

	m := typ.New()
	err := m.Validate()
	require.Error(t, err)
	var errs validation.Errors
	require.True(t, errors.As(err, &errs))
	assert.Contains(t, errs, "title")

	m.MustSet("title", "")
	errs = m.Validate().(validation.Errors)
	assert.Contains(t, errs, "title")

	m.MustSet("title", "T")
	assert.NoError(t, m.Validate())

	m.MustSet("signers", []any{map[string]any{"signing_order": 1}})
	err = m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signers")
	assert.Contains(t, err.Error(), "type")

	m.List("signers").Model(0).MustSet("type", "employee")
	assert.NoError(t, m.Validate())
}
