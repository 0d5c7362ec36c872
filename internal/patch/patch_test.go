package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatch_AbsentVersusNull(t *testing.T) {
	p := New().Set("area", 120.5).SetNull("locker")

	assert.True(t, p.Has("area"))
	assert.False(t, p.IsNull("area"))
	assert.True(t, p.Has("locker"))
	assert.True(t, p.IsNull("locker"))
	assert.False(t, p.Has("owner"))
	assert.False(t, p.IsNull("owner"))

	m := p.Map()
	v, ok := m["locker"]
	assert.True(t, ok)
	assert.Nil(t, v)
	_, ok = m["owner"]
	assert.False(t, ok)
}

func TestPatch_OrderAndOverwrite(t *testing.T) {
	p := New().Set("a", 1).Set("b", 2).Set("a", 3)

	assert.Equal(t, []string{"a", "b"}, p.Columns())
	v, _ := p.Get("a")
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, p.Len())
}

func TestPatch_WithoutAndMerge(t *testing.T) {
	base := New().Set("created_at_block", uint64(5)).Set("owner", "0xa")
	over := New().Set("owner", "0xb").SetNull("locker")

	trimmed := base.Without("created_at_block")
	assert.False(t, trimmed.Has("created_at_block"))
	assert.True(t, base.Has("created_at_block"), "Without must not mutate the receiver")

	merged := base.Merge(over)
	assert.Equal(t, []string{"created_at_block", "owner", "locker"}, merged.Columns())
	v, _ := merged.Get("owner")
	assert.Equal(t, "0xb", v)
	assert.True(t, merged.IsNull("locker"))
}

func TestSetOpt(t *testing.T) {
	n := 3
	p := New()
	SetOpt(p, "bedrooms_count", &n)
	SetOpt[int](p, "bathrooms_count", nil)

	assert.True(t, p.Has("bedrooms_count"))
	assert.False(t, p.Has("bathrooms_count"))

	p.SetNonEmpty("description", "")
	assert.False(t, p.Has("description"))
}
