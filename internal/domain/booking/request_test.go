package booking

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dine-composer/internal/internaltypes"
)

func validDraft(now time.Time, tables ...int64) *Draft {
	d := NewDraft(42, 5)
	d.At = now.Add(24 * time.Hour)
	for _, id := range tables {
		d.Tables.Toggle(id)
	}
	return d
}

func TestBuildRoutesOnTableCount(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	w := ComputeWindow(now)

	single, err := Build(validDraft(now, 8), w)
	require.NoError(t, err)
	assert.Equal(t, OpCreateSingle, single.Operation())
	require.IsType(t, SingleTableBooking{}, single)
	assert.Equal(t, int64(8), single.(SingleTableBooking).TableID)

	multi, err := Build(validDraft(now, 9, 3, 5), w)
	require.NoError(t, err)
	assert.Equal(t, OpCreateMultiple, multi.Operation())
	require.IsType(t, MultiTableBooking{}, multi)
	assert.Equal(t, []int64{3, 5, 9}, multi.(MultiTableBooking).TableIDs)
}

func TestBuildSingleJSONOmitsAbsentMusic(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	req, err := Build(validDraft(now, 8), ComputeWindow(now))
	require.NoError(t, err)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"userId": 42,
		"tableId": 8,
		"reservationTime": "2026-09-02T12:00:00Z",
		"occasion": "None"
	}`, string(raw))
}

func TestBuildMultiJSONWithMusic(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	d := validDraft(now, 4, 2)
	d.Occasion = OccasionBirthday
	d.Music = &MusicSelection{SongID: 17, CoinCategoryID: 3, Dedication: "  for Sam  "}

	req, err := Build(d, ComputeWindow(now))
	require.NoError(t, err)
	assert.True(t, d.Celebratory())

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"userId": 42,
		"tableIds": [2, 4],
		"reservationTime": "2026-09-02T12:00:00Z",
		"occasion": "Birthday",
		"musicId": 17,
		"coinCategoryId": 3,
		"dedicationNote": "for Sam"
	}`, string(raw))

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "tableId")
}

func TestBuildOmitsEmptyDedicationOnly(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	d := validDraft(now, 1)
	d.Music = &MusicSelection{SongID: 5, Dedication: "   "}

	req, err := Build(d, ComputeWindow(now))
	require.NoError(t, err)
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Contains(t, fields, "musicId")
	assert.NotContains(t, fields, "coinCategoryId")
	assert.NotContains(t, fields, "dedicationNote")
}

func TestBuildRejects(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	w := ComputeWindow(now)

	tests := []struct {
		name   string
		mutate func(*Draft)
		target error
	}{
		{"no tables", func(d *Draft) { d.Tables.Clear() }, ErrNoTables},
		{"nil tables", func(d *Draft) { d.Tables = nil }, ErrNoTables},
		{"missing user", func(d *Draft) { d.UserID = 0 }, ErrMissingUser},
		{"too soon", func(d *Draft) { d.At = now.Add(time.Hour) }, ErrOutsideWindow},
		{"too late", func(d *Draft) { d.At = now.Add(11 * 24 * time.Hour) }, ErrOutsideWindow},
		{"unknown occasion", func(d *Draft) { d.Occasion = "Wake" }, nil},
		{"no time", func(d *Draft) { d.At = time.Time{} }, nil},
		{"negative song", func(d *Draft) { d.Music = &MusicSelection{SongID: -1} }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft(now, 1)
			tt.mutate(d)
			req, err := Build(d, w)
			require.Error(t, err)
			assert.Nil(t, req)
			assert.True(t, internaltypes.IsValidation(err))
			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target))
			}
		})
	}
}

func TestParseOccasion(t *testing.T) {
	o, err := ParseOccasion("anniversary")
	require.NoError(t, err)
	assert.Equal(t, OccasionAnniversary, o)

	o, err = ParseOccasion("")
	require.NoError(t, err)
	assert.Equal(t, OccasionNone, o)

	_, err = ParseOccasion("retirement")
	assert.True(t, internaltypes.IsValidation(err))
}

func TestContentKey(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	a := validDraft(now, 3, 9)
	b := validDraft(now, 9, 3)
	require.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.ContentKey(), b.ContentKey())

	b.Occasion = ""
	a.Occasion = OccasionNone
	assert.Equal(t, a.ContentKey(), b.ContentKey())

	later := validDraft(now.Add(time.Hour), 3, 9)
	assert.NotEqual(t, a.ContentKey(), later.ContentKey())

	other := validDraft(now, 3)
	assert.NotEqual(t, a.ContentKey(), other.ContentKey())

	b.Music = &MusicSelection{SongID: 4, CoinCategoryID: 1}
	assert.NotEqual(t, a.ContentKey(), b.ContentKey())
}
