package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampScan(t *testing.T) {
	want := time.Date(2024, 3, 1, 9, 30, 15, 123000000, time.UTC)

	tests := []struct {
		name string
		src  interface{}
	}{
		{"sqlite text", "2024-03-01T09:30:15.123Z"},
		{"bytes", []byte("2024-03-01T09:30:15.123Z")},
		{"native time", want.In(time.FixedZone("CET", 3600))},
		{"postgres text", "2024-03-01 10:30:15.123+01:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, ts.Scan(tt.src))
			assert.True(t, want.Equal(ts.Time), "got %s", ts.Time)
			assert.Equal(t, time.UTC, ts.Location())
		})
	}

	var ts Timestamp
	require.NoError(t, ts.Scan(nil))
	assert.True(t, ts.IsZero())
	assert.Error(t, ts.Scan("yesterday"))
	assert.Error(t, ts.Scan(42))
}

func TestTimestampValueSortsAsText(t *testing.T) {
	earlier := NewTimestamp(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	later := NewTimestamp(time.Date(2024, 3, 1, 9, 0, 0, int(time.Millisecond), time.UTC))

	a, err := earlier.Value()
	require.NoError(t, err)
	b, err := later.Value()
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01T09:00:00.000Z", a)
	assert.Equal(t, "2024-03-01T09:00:00.001Z", b)
	assert.Less(t, a.(string), b.(string))
}

func TestTimestampJSON(t *testing.T) {
	ts := NewTimestamp(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01T09:00:00Z"`, string(data))

	var back Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, ts.Equal(back.Time))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("1815-12-10"))
	assert.Equal(t, Date("1815-12-10"), d)

	require.NoError(t, d.Scan(time.Date(1906, 12, 9, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, Date("1906-12-09"), d)

	require.NoError(t, d.Scan("1906-12-09T00:00:00Z"))
	assert.Equal(t, Date("1906-12-09"), d)

	assert.Error(t, d.Scan("12/10/1815"))

	v, err := Date("").Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestPatientMatches(t *testing.T) {
	email := "ada@example.com"
	phone := "+44 20 7946 0018"
	p := &Patient{FirstName: "Ada", LastName: "Lovelace", Email: &email, Phone: &phone}

	tests := []struct {
		term string
		want bool
	}{
		{"", true},
		{"ada", true},
		{"LOVE", true},
		{"EXAMPLE.COM", true},
		{"7946", true},
		{"grace", false},
		{"female", false},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Matches(tt.term))
		})
	}

	assert.False(t, (&Patient{FirstName: "Ada"}).Matches("555"), "missing phone never matches")
}

func TestPatientRequestDecodeTrims(t *testing.T) {
	var req PatientRequest
	require.NoError(t, json.Unmarshal([]byte(`{"first_name":"  Ada ","last_name":"Lovelace","email":" ada@example.com\n","phone":"   "}`), &req))

	assert.Equal(t, "Ada", req.FirstName)
	assert.Equal(t, "ada@example.com", req.Email)
	assert.Equal(t, "", req.Phone)

	var p Patient
	req.ApplyTo(&p)
	assert.Equal(t, "Ada Lovelace", p.FullName())
	require.NotNil(t, p.Email)
	assert.Nil(t, p.Phone, "blank optional fields become NULL")
	assert.Nil(t, p.DateOfBirth)
}
