package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_StringSet(t *testing.T) {
	set := NewStringSet("foo", "bar", "baz")
	assert.True(t, set.Has("foo"))
	assert.True(t, set.Has("bar"))
	assert.False(t, set.Has("boofar"))
	assert.Equal(t, []string{"bar", "baz", "foo"}, set.Values())

	set.Add("fourth").Add("fifth")
	assert.Len(t, set, 5)

	set.Delete("fifth")
	assert.False(t, set.Has("fifth"))
}

func Test_StringSetAddNew(t *testing.T) {
	set := NewStringSet()
	assert.True(t, set.AddNew("601"))
	assert.False(t, set.AddNew("601"))
	assert.True(t, set.AddNew("602"))
	assert.Equal(t, []string{"601", "602"}, set.Values())
}

func Test_ValidEventID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"601", true},
		{"event_7-b", true},
		{"", false},
		{"../etc", false},
		{"6 01", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidEventID(tt.id))
		})
	}
}
