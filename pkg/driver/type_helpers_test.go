package driver

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeConversionError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *TypeConversionError
		expected string
	}{
		{
			name:     "with field",
			err:      NewTypeConversionError("map[string]any", int64(1), "work_nodes"),
			expected: `type conversion error for field "work_nodes": expected map[string]any, got int64`,
		},
		{
			name:     "without field",
			err:      NewTypeConversionError("[]any", nil, ""),
			expected: "type conversion error: expected []any, got <nil>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAsInt64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  any
		want   int64
		wantOK bool
	}{
		{"int64", int64(42), 42, true},
		{"int", 7, 7, true},
		{"nil", nil, 0, false},
		{"string", "42", 0, false},
		{"float", 4.2, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := AsInt64(tt.input)
			if ok != tt.wantOK {
				t.Errorf("AsInt64() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("AsInt64() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAsFloat64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  any
		want   float64
		wantOK bool
	}{
		{"float64", 3.5, 3.5, true},
		{"whole score as int64", int64(2), 2, true},
		{"nil", nil, 0, false},
		{"string", "1.0", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := AsFloat64(tt.input)
			if ok != tt.wantOK {
				t.Errorf("AsFloat64() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("AsFloat64() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestAsStringSlice(t *testing.T) {
	t.Parallel()

	got, ok := AsStringSlice([]any{"a", nil, "b"})
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	got, ok = AsStringSlice([]string{"x"})
	assert.True(t, ok)
	assert.Equal(t, []string{"x"}, got)

	_, ok = AsStringSlice([]any{"a", int64(1)})
	assert.False(t, ok)
	_, ok = AsStringSlice("a")
	assert.False(t, ok)
}

func TestPlainValue(t *testing.T) {
	t.Parallel()

	d := dbtype.Date(time.Date(1997, 7, 22, 0, 0, 0, 0, time.UTC))
	got := PlainValue(map[string]any{
		"first_published": d,
		"dates":           []any{d, "2001"},
		"members":         int64(3),
	})
	assert.Equal(t, map[string]any{
		"first_published": "1997-07-22",
		"dates":           []any{"1997-07-22", "2001"},
		"members":         int64(3),
	}, got)
}

func TestResultSetFromRecord(t *testing.T) {
	t.Parallel()

	record := &db.Record{
		Keys: []string{"work_nodes", "neighbor_nodes", "relationships"},
		Values: []any{
			[]any{map[string]any{
				"id":         "4:x:1",
				"labels":     []any{"Work"},
				"properties": map[string]any{"id": "w1", "title": "Foo"},
				"score":      0.75,
			}},
			[]any{map[string]any{
				"id":         "4:x:2",
				"labels":     []any{"Author"},
				"properties": map[string]any{"name": "A"},
			}},
			[]any{map[string]any{
				"id": "5:x:1", "source": "4:x:1", "target": "4:x:2", "type": "CREATED_BY",
				"properties": map[string]any{},
			}},
		},
	}

	rs, err := resultSetFromRecord(record)
	require.NoError(t, err)
	require.Len(t, rs.Works, 1)
	assert.Equal(t, "4:x:1", rs.Works[0].ID)
	assert.Equal(t, []string{"Work"}, rs.Works[0].Labels)
	assert.Equal(t, 0.75, rs.Works[0].Score)
	assert.Equal(t, "w1", rs.Works[0].Properties["id"])
	require.Len(t, rs.Neighbors, 1)
	require.Len(t, rs.Relationships, 1)
	assert.Equal(t, "CREATED_BY", rs.Relationships[0].Type)
	assert.Nil(t, rs.Relationships[0].Properties)

	_, err = resultSetFromRecord(&db.Record{Keys: []string{"work_nodes"}, Values: []any{[]any{"oops"}}})
	var tce *TypeConversionError
	assert.ErrorAs(t, err, &tce)

	_, err = resultSetFromRecord(&db.Record{Keys: []string{"work_nodes"}, Values: []any{nil}})
	assert.ErrorContains(t, err, `missing column "neighbor_nodes"`)
}

func TestCandidateFromRecord(t *testing.T) {
	t.Parallel()

	record := &db.Record{
		Keys: []string{"id", "properties", "creators", "magazines", "publishers", "magazine_name", "publisher_name"},
		Values: []any{
			"4:x:9",
			map[string]any{"id": "w9", "title": "Bar", "first_published": "2001"},
			[]any{"A", "B"},
			[]any{"M"},
			[]any{},
			"M",
			nil,
		},
	}
	c, err := candidateFromRecord(record)
	require.NoError(t, err)
	assert.Equal(t, "w9", c.Work.ID)
	assert.Equal(t, []string{"A", "B"}, c.Work.Creators)
	assert.Equal(t, []string{"M"}, c.Work.Magazines)
	assert.Equal(t, "M", c.Magazine)
	assert.Equal(t, "", c.Publisher)
}
