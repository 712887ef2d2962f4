package remap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyremapd/internal/keys"
)

func TestParseTable(t *testing.T) {
	table, problems := ParseTable([]Pair{
		{From: "a", To: "LeftArrow"},
		{From: " D ", To: "rightarrow"},
		{From: "1", To: "E"},
	})
	require.Empty(t, problems)
	assert.Equal(t, 3, table.Len())

	dest, ok := table.Lookup(keys.MustParse("A"))
	assert.True(t, ok)
	assert.Equal(t, keys.Left, dest)

	dest, ok = table.Lookup(keys.MustParse("1"))
	assert.True(t, ok)
	assert.Equal(t, keys.MustParse("E"), dest)

	_, ok = table.Lookup(keys.MustParse("Q"))
	assert.False(t, ok)

	mappings := table.Mappings()
	require.Len(t, mappings, 3)
	assert.Equal(t, "A -> LEFT", mappings[0].String())
}

func TestParseTableSkipsBadPairs(t *testing.T) {
	table, problems := ParseTable([]Pair{
		{From: "A", To: "LEFT"},
		{From: "NOTAKEY", To: "LEFT"},
		{From: "S", To: "SIDEWAYS"},
		{From: "a", To: "UP"},
	})
	require.Len(t, problems, 3)
	assert.Equal(t, 1, table.Len())

	assert.True(t, errors.Is(problems[0], keys.ErrUnknownKey))
	assert.True(t, errors.Is(problems[1], keys.ErrUnknownKey))
	assert.True(t, errors.Is(problems[2], ErrDuplicateSource))

	var re *ResolveError
	require.True(t, errors.As(problems[1], &re))
	assert.Equal(t, 2, re.Index)

	// first destination wins
	dest, _ := table.Lookup(keys.MustParse("A"))
	assert.Equal(t, keys.Left, dest)
}

func TestNewTableRejectsDuplicates(t *testing.T) {
	_, err := NewTable([]Mapping{{From: 0x41, To: keys.Left}, {From: 0x41, To: keys.Up}})
	assert.ErrorIs(t, err, ErrDuplicateSource)
}

func TestTableMappingsIsCopy(t *testing.T) {
	table := mustTable("A", "LEFT")
	m := table.Mappings()
	m[0].To = keys.Up
	dest, _ := table.Lookup(0x41)
	assert.Equal(t, keys.Left, dest)
}

func TestNilTable(t *testing.T) {
	var table *Table
	_, ok := table.Lookup(0x41)
	assert.False(t, ok)
	assert.Zero(t, table.Len())
	assert.Nil(t, table.Mappings())
}

func TestPressedSet(t *testing.T) {
	var s pressedSet
	assert.True(t, s.press(0x41))
	assert.False(t, s.press(0x41), "second press is a repeat")
	assert.True(t, s.press(0x44))
	assert.Equal(t, 2, s.len())
	assert.True(t, s.contains(0x41))

	assert.True(t, s.release(0x41))
	assert.False(t, s.release(0x41), "second release has no effect")
	assert.False(t, s.press(0x1FF), "out of range codes are ignored")

	assert.Equal(t, []keys.Code{0x44}, s.drain())
	assert.Zero(t, s.len())
	assert.Nil(t, s.drain())
}
