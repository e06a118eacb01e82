package grouping

import (
	"fmt"
	"testing"

	"github.com/soundprediction/mangagraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func volumes(title string, n int) []types.WorkRecord {
	out := make([]types.WorkRecord, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, types.WorkRecord{
			ID:             fmt.Sprintf("w%d", i),
			Title:          fmt.Sprintf("%s %d", title, i),
			VolumeLabel:    fmt.Sprintf("%d", i),
			FirstPublished: fmt.Sprintf("20%02d-01-01", 10+i),
			Creators:       []string{"Author A"},
			Magazines:      []string{"Magazine X"},
		})
	}
	return out
}

func TestGroup_PerVolumeRecords(t *testing.T) {
	g := NewGrouper(DefaultConfig(), nil)
	records := volumes("Foo", 5)
	// Put volume 1 last so the representative is chosen by label, not order.
	records[0], records[4] = records[4], records[0]

	got := g.Group(records)
	require.Len(t, got, 1)

	series := got[0]
	assert.Equal(t, "Foo", series.Title)
	assert.True(t, series.IsSeries)
	assert.Equal(t, 5, series.WorkCount)
	assert.GreaterOrEqual(t, series.TotalVolumes, 5)
	assert.Equal(t, "w1", series.ID)
	assert.Equal(t, "1", series.VolumeLabel)
	assert.Equal(t, "2011-01-01", series.FirstPublished)
	assert.Equal(t, []string{"Author A"}, series.Creators)
}

func TestGroup_SingleRecord(t *testing.T) {
	g := NewGrouper(DefaultConfig(), nil)
	got := g.Group([]types.WorkRecord{{ID: "w1", Title: "Bar 3"}})
	require.Len(t, got, 1)
	assert.False(t, got[0].IsSeries)
	assert.Equal(t, 1, got[0].WorkCount)
	assert.Equal(t, 1, got[0].TotalVolumes)
	assert.Equal(t, "Bar 3", got[0].Title)
}

func TestGroup_ExplicitTotalVolumes(t *testing.T) {
	g := NewGrouper(DefaultConfig(), nil)
	records := volumes("Foo", 2)
	records[1].TotalVolumes = 107
	got := g.Group(records)
	require.Len(t, got, 1)
	assert.Equal(t, 107, got[0].TotalVolumes)
}

func TestGroup_SeriesID(t *testing.T) {
	g := NewGrouper(DefaultConfig(), nil)
	records := []types.WorkRecord{
		{ID: "a", Title: "Completely Different", SeriesID: "s1", SeriesName: "Saga", VolumeLabel: "2"},
		{ID: "b", Title: "Other", SeriesID: "s1", VolumeLabel: "3"},
		{ID: "c", Title: "Saga"},
		{ID: "d", Title: "Unrelated"},
	}
	got := g.Group(records)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].WorkCount)
	assert.Equal(t, "a", got[0].ID, "smallest volume numeral is representative")
	assert.Equal(t, "Saga", got[0].SeriesName)
	assert.Equal(t, "Unrelated", got[1].Title)
}

func TestGroup_PrefixTolerance(t *testing.T) {
	records := []types.WorkRecord{
		{ID: "a", Title: "Dragon Quest"},
		{ID: "b", Title: "Dragon Quest Gaiden"},
		{ID: "c", Title: "Dragon Quest: The Adventure of Dai Extended"},
	}

	t.Run("default tolerance merges close affixes", func(t *testing.T) {
		got := NewGrouper(DefaultConfig(), nil).Group(records)
		require.Len(t, got, 2)
		assert.Equal(t, 2, got[0].WorkCount)
		assert.Equal(t, "c", got[1].ID)
	})

	t.Run("zero disables fuzzy merge", func(t *testing.T) {
		got := NewGrouper(Config{PrefixTolerance: 0}, nil).Group(records)
		assert.Len(t, got, 3)
	})

	t.Run("suffix match", func(t *testing.T) {
		got := NewGrouper(DefaultConfig(), nil).Group([]types.WorkRecord{
			{ID: "a", Title: "ワンピース"},
			{ID: "b", Title: "新ワンピース"},
		})
		require.Len(t, got, 1)
		assert.True(t, got[0].IsSeries)
	})
}

func TestGroup_UnionsAndDates(t *testing.T) {
	g := NewGrouper(DefaultConfig(), nil)
	got := g.Group([]types.WorkRecord{
		{ID: "1", Title: "Foo 1", VolumeLabel: "1", FirstPublished: "2001", LastPublished: "2002", Creators: []string{"A"}, Publishers: []string{"P"}},
		{ID: "2", Title: "Foo 2", VolumeLabel: "2", LastPublished: "2005/03", Creators: []string{"B", "A"}, Magazines: []string{"M"}},
		{ID: "3", Title: "Foo 3", VolumeLabel: "3", FirstPublished: "1999-12", Creators: []string{"C"}},
	})
	require.Len(t, got, 1)
	assert.Equal(t, []string{"A", "B", "C"}, got[0].Creators)
	assert.Equal(t, []string{"P"}, got[0].Publishers)
	assert.Equal(t, []string{"M"}, got[0].Magazines)
	assert.Equal(t, "1999-12", got[0].FirstPublished)
	assert.Equal(t, "2005/03", got[0].LastPublished)

	t.Run("unknown dates ignored", func(t *testing.T) {
		got := g.Group([]types.WorkRecord{
			{ID: "1", Title: "Foo 1", VolumeLabel: "1", FirstPublished: "2000-10-01"},
			{ID: "2", Title: "Foo 2", VolumeLabel: "2", FirstPublished: "2000-9", LastPublished: "不明"},
			{ID: "3", Title: "Foo 3", VolumeLabel: "3", FirstPublished: "unknown", LastPublished: "2001-01-01"},
		})
		require.Len(t, got, 1)
		assert.Equal(t, "2000-9", got[0].FirstPublished)
		assert.Equal(t, "2001-01-01", got[0].LastPublished)
	})

	t.Run("no parseable dates", func(t *testing.T) {
		got := g.Group([]types.WorkRecord{
			{ID: "1", Title: "Foo 1", VolumeLabel: "1", FirstPublished: "不明"},
			{ID: "2", Title: "Foo 2", VolumeLabel: "2", LastPublished: "unknown"},
		})
		require.Len(t, got, 1)
		assert.Empty(t, got[0].FirstPublished)
		assert.Empty(t, got[0].LastPublished)
	})
}

func TestDateKey(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"2001", 20010000, true},
		{"2000-9", 20000900, true},
		{"2000-10-01", 20001001, true},
		{"2005/03", 20050300, true},
		{"2001年4月5日", 20010405, true},
		{"２００３．０７", 20030700, true},
		{"不明", 0, false},
		{"unknown", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := DateKey(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	a, _ := DateKey("2000-9")
	b, _ := DateKey("2000-10-01")
	assert.Less(t, a, b)
}

func TestRepresentative(t *testing.T) {
	tests := []struct {
		name    string
		members []types.WorkRecord
		want    int
	}{
		{
			name: "volume one wins",
			members: []types.WorkRecord{
				{VolumeLabel: "0"}, {VolumeLabel: "第1巻"}, {VolumeLabel: "2"},
			},
			want: 1,
		},
		{
			name: "smallest numeral",
			members: []types.WorkRecord{
				{VolumeLabel: "7"}, {VolumeLabel: "3"}, {VolumeLabel: ""},
			},
			want: 1,
		},
		{
			name: "earliest date without numerals",
			members: []types.WorkRecord{
				{FirstPublished: "2010"}, {FirstPublished: ""}, {FirstPublished: "2003-04"},
			},
			want: 2,
		},
		{
			name: "unknown date loses to a real one",
			members: []types.WorkRecord{
				{FirstPublished: "unknown"}, {FirstPublished: "2000-9"}, {FirstPublished: "2000-10-01"},
			},
			want: 1,
		},
		{
			name:    "ties keep input order",
			members: []types.WorkRecord{{}, {}, {}},
			want:    0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, representative(tt.members))
		})
	}
}
