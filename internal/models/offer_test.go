package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimal_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Decimal
	}{
		{"string", `"28000.00"`, "28000.00"},
		{"number", `45500`, "45500"},
		{"fraction", `1.16`, "1.16"},
		{"null", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decimal
			require.NoError(t, json.Unmarshal([]byte(tt.input), &d))
			assert.Equal(t, tt.want, d)
		})
	}

	var d Decimal
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
}

func TestID_AcceptsNumbers(t *testing.T) {
	var offer Offer
	require.NoError(t, json.Unmarshal([]byte(`{"id": 2164, "title": "Ka 6"}`), &offer))
	assert.Equal(t, ID("2164"), offer.ID)
}

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{`"2020-02-26"`, time.Date(2020, 2, 26, 0, 0, 0, 0, time.UTC)},
		{`"2020-01-05T10:00:00Z"`, time.Date(2020, 1, 5, 10, 0, 0, 0, time.UTC)},
		{`"Mon, 02 Mar 2020 08:00:00 UTC"`, time.Date(2020, 3, 2, 8, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Date
			require.NoError(t, json.Unmarshal([]byte(tt.input), &d))
			assert.True(t, tt.want.Equal(d.Time), "got %s", d.Time)
		})
	}

	var empty Date
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.True(t, empty.IsZero())

	var bad Date
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestDate_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Date{Time: time.Date(2020, 2, 26, 15, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, `"2020-02-26"`, string(data))

	data, err = json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryGlider, ParseCategory("glider"))
	assert.Equal(t, CategoryTMG, ParseCategory(" TMG "))
	assert.Equal(t, Category(""), ParseCategory(""))
	assert.Equal(t, CategoryUnknown, ParseCategory("balloon"))
}
