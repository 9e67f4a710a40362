package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesNumericCoercion(t *testing.T) {
	// int64 from the parser vs float64 after a JSON reload
	assert.True(t, Matches(float64(1), "=", int64(1)))
	assert.True(t, Matches(int64(5), ">", float64(4.5)))
	assert.True(t, Matches("10", "=", int64(10)), "numeric string coerces against numeric target")
	assert.False(t, Matches(int64(1), "=", int64(2)))
}

func TestMatchesStrings(t *testing.T) {
	assert.True(t, Matches("alice", "=", "alice"))
	assert.True(t, Matches("bob", "!=", "alice"))
	assert.True(t, Matches("b", ">", "a"))
	assert.False(t, Matches("alice", "=", "bob"))
}

func TestMatchesIncomparable(t *testing.T) {
	// values that cannot reach a common type never match
	assert.False(t, Matches("alice", "=", int64(1)))
	assert.False(t, Matches(int64(1), "=", "alice"))
	assert.False(t, Matches(nil, "=", int64(1)))
	assert.False(t, Matches("alice", "!=", int64(1)), "incomparable values do not match even with !=")
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(int64(3), float64(3)))
	assert.False(t, Equal(int64(3), float64(4)))
	assert.True(t, Equal("x", "x"))
}

func TestHashKeyNormalizesNumerics(t *testing.T) {
	assert.Equal(t, HashKey(int64(7)), HashKey(float64(7)))
	// numeric strings keep string identity
	assert.NotEqual(t, HashKey("7"), HashKey(int64(7)))
	assert.Equal(t, "abc", HashKey("abc"))
}

func TestRowCopyIsDeep(t *testing.T) {
	row := NewRow(map[string]interface{}{"id": int64(1), "name": "a"})
	dup := row.Copy()
	dup.Data["name"] = "b"
	assert.Equal(t, "a", row.Data["name"])
}

func TestCopyRows(t *testing.T) {
	rows := []Row{
		NewRow(map[string]interface{}{"id": int64(1)}),
		NewRow(map[string]interface{}{"id": int64(2)}),
	}
	dup := CopyRows(rows)
	dup[0].Data["id"] = int64(99)
	assert.Equal(t, int64(1), rows[0].Data["id"])
}
