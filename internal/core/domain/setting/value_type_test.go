package setting_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/settings-store/internal/core/domain/setting"
)

func TestParseValueType(t *testing.T) {
	for _, vt := range setting.Values() {
		got, err := setting.ParseValueType(string(vt))
		require.NoError(t, err)
		assert.Equal(t, vt, got)
		assert.NotEmpty(t, got.Label())
	}

	_, err := setting.ParseValueType("integer")
	require.ErrorIs(t, err, setting.ErrInvalidType)
	assert.Contains(t, err.Error(), `"integer"`)
	assert.Contains(t, err.Error(), "boolean, int, float, string, text, html")
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Boolean", setting.TypeBoolean.Label())
	assert.Equal(t, "Integer", setting.TypeInteger.Label())
	assert.Equal(t, "Html", setting.TypeHTML.Label())
	assert.Equal(t, "", setting.ValueType("nope").Label())
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		typ  setting.ValueType
		in   any
		want any
	}{
		{"nil stays nil", setting.TypeInteger, nil, nil},
		{"bool from truthy text", setting.TypeBoolean, "yes", true},
		{"bool from zero text", setting.TypeBoolean, "0", false},
		{"bool from empty text", setting.TypeBoolean, "", false},
		{"bool from number", setting.TypeBoolean, 2, true},
		{"int from json number", setting.TypeInteger, float64(42), int64(42)},
		{"int from text", setting.TypeInteger, " 7 ", int64(7)},
		{"int at lower bound", setting.TypeInteger, float64(math.MinInt64), int64(math.MinInt64)},
		{"int from exact number", setting.TypeInteger, json.Number("9007199254740993"), int64(9007199254740993)},
		{"int from max number", setting.TypeInteger, json.Number("9223372036854775807"), int64(math.MaxInt64)},
		{"int from exponent number", setting.TypeInteger, json.Number("2e3"), int64(2000)},
		{"bool from number literal", setting.TypeBoolean, json.Number("0"), false},
		{"float from number literal", setting.TypeFloat, json.Number("0.125"), 0.125},
		{"string from number literal", setting.TypeString, json.Number("12.50"), "12.50"},
		{"float from int", setting.TypeFloat, 3, float64(3)},
		{"float from text", setting.TypeFloat, "2.5", 2.5},
		{"string from int", setting.TypeString, int64(9), "9"},
		{"html keeps markup", setting.TypeHTML, "<b>x</b>", "<b>x</b>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.typ.Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Rejects(t *testing.T) {
	_, err := setting.TypeInteger.Normalize(1.5)
	require.ErrorIs(t, err, setting.ErrInvalidValue)

	_, err = setting.TypeInteger.Normalize("abc")
	require.ErrorIs(t, err, setting.ErrInvalidValue)

	for _, in := range []any{
		float64(1e19),
		float64(-1e19),
		float64(math.MaxInt64),
		math.Inf(1),
		math.NaN(),
		json.Number("9223372036854775808"),
		json.Number("1e19"),
		json.Number("1.5"),
	} {
		_, err = setting.TypeInteger.Normalize(in)
		require.ErrorIs(t, err, setting.ErrInvalidValue, "%v", in)
	}

	_, err = setting.TypeFloat.Normalize(true)
	require.ErrorIs(t, err, setting.ErrInvalidValue)

	_, err = setting.ValueType("decimal").Normalize("1")
	require.ErrorIs(t, err, setting.ErrInvalidType)
}

func TestEncodeDecode(t *testing.T) {
	raw, err := setting.TypeBoolean.Encode(true)
	require.NoError(t, err)
	assert.Equal(t, "1", raw)

	raw, err = setting.TypeBoolean.Encode(false)
	require.NoError(t, err)
	assert.Equal(t, "0", raw)

	v, err := setting.TypeBoolean.Decode("0")
	require.NoError(t, err)
	assert.Equal(t, false, v)

	raw, err = setting.TypeFloat.Encode(0.25)
	require.NoError(t, err)
	assert.Equal(t, "0.25", raw)

	raw, err = setting.TypeString.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "", raw)

	for _, vt := range setting.Values() {
		v, err := vt.Decode("")
		require.NoError(t, err)
		assert.Equal(t, "", v, "empty raw value of %s", vt)
	}
}

func TestSettingSetValue(t *testing.T) {
	s := &setting.Setting{Name: "n", Type: setting.TypeInteger}
	require.NoError(t, s.SetValue("12"))
	assert.Equal(t, int64(12), s.Value)
	assert.False(t, s.UpdatedAt.IsZero())

	require.Error(t, s.SetValue("twelve"))
	assert.Equal(t, int64(12), s.Value)

	assert.Nil(t, s.CategoryID())
	assert.Equal(t, "", s.CategoryName())
}
