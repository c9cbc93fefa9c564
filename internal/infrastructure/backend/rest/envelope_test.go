package rest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probe struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
}

// TestDecodeListShapes tests the three envelope shapes a list call may
// answer with.
func TestDecodeListShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[{"id": 1, "name": "a"}, {"id": 2, "name": "b"}]`, 2},
		{"wrapped array", `{"result": [{"id": 1, "name": "a"}]}`, 1},
		{"single object promoted", `{"id": 3, "name": "c"}`, 1},
		{"wrapped single object", `{"result": {"id": 4, "name": "d"}}`, 1},
		{"null", `null`, 0},
		{"wrapped null", `{"result": null}`, 0},
		{"empty body", ``, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := decodeList[probe](([]byte)(tt.body))
			require.NoError(t, err)
			require.NotNil(t, out)
			assert.Len(t, out, tt.want)
		})
	}
}

// TestDecodeListInvalid tests that a malformed payload is reported.
func TestDecodeListInvalid(t *testing.T) {
	_, err := decodeList[probe]([]byte(`[{"id": 1}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

// TestDecodeOneShapes tests singular decoding across envelope shapes.
func TestDecodeOneShapes(t *testing.T) {
	one, err := decodeOne[probe]([]byte(`{"result": {"id": 9, "name": "x"}}`))
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, "9", string(one.ID))

	// A list answer yields its first element.
	one, err = decodeOne[probe]([]byte(`[{"id": "a"}, {"id": "b"}]`))
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, "a", string(one.ID))

	// Empty answers are a miss, not an error.
	one, err = decodeOne[probe]([]byte(`[]`))
	require.NoError(t, err)
	assert.Nil(t, one)

	one, err = decodeOne[probe]([]byte(`{"result": null}`))
	require.NoError(t, err)
	assert.Nil(t, one)
}

// TestFlexIDCoercion tests identifier normalization across wire
// representations.
func TestFlexIDCoercion(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"id": "42"}`, "42"},
		{"integer", `{"id": 42}`, "42"},
		{"float kept verbatim", `{"id": 42.0}`, "42.0"},
		{"null", `{"id": null}`, ""},
		{"boolean placeholder", `{"id": false}`, ""},
		{"absent", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := decodeOne[probe]([]byte(tt.body))
			require.NoError(t, err)
			require.NotNil(t, out)
			assert.Equal(t, tt.want, string(out.ID))
		})
	}
}

// TestFlexIDFallback tests the empty-id fallback used for aliased and
// nested-route identifiers.
func TestFlexIDFallback(t *testing.T) {
	assert.Equal(t, "7", flexID("").or("7"))
	assert.Equal(t, "3", flexID("3").or("7"))
}

// TestFlexTimeLayouts tests date parsing across the layouts the backends
// emit.
func TestFlexTimeLayouts(t *testing.T) {
	type dated struct {
		At flexTime `json:"at"`
	}

	for _, body := range []string{
		`{"at": "2024-03-05T10:30:00Z"}`,
		`{"at": "2024-03-05T10:30:00"}`,
		`{"at": "2024-03-05 10:30:00"}`,
		`{"at": "2024-03-05"}`,
	} {
		out, err := decodeOne[dated]([]byte(body))
		require.NoError(t, err, body)
		parsed := out.At.orNil()
		require.NotNil(t, parsed, body)
		assert.Equal(t, 2024, parsed.Year())
		assert.Equal(t, time.March, parsed.Month())
		assert.Equal(t, 5, parsed.Day())
	}
}

// TestFlexTimeAbsent tests the defaulting rules for absent dates.
func TestFlexTimeAbsent(t *testing.T) {
	type dated struct {
		At flexTime `json:"at"`
	}

	for _, body := range []string{`{"at": null}`, `{"at": false}`, `{"at": ""}`, `{}`} {
		out, err := decodeOne[dated]([]byte(body))
		require.NoError(t, err, body)
		assert.Nil(t, out.At.orNil(), body)
		assert.WithinDuration(t, time.Now(), out.At.orNow(), time.Minute, body)
	}
}

// TestMemberRecordAliases tests the id alias and union fallback applied on
// nested routes.
func TestMemberRecordAliases(t *testing.T) {
	out, err := decodeOne[memberRecord]([]byte(`{"memberId": 12, "name": "Ada"}`))
	require.NoError(t, err)

	m := out.canonical("u9")
	assert.Equal(t, "12", m.ID)
	assert.Equal(t, "u9", m.UnionID)
	assert.Equal(t, "Ada", m.Name)
}
