package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringIntern(t *testing.T) {
	si := NewStringIntern()

	s1 := si.Intern("north")
	s2 := si.Intern("north")
	assert.Equal(t, s1, s2)

	si.Intern("south")
	si.Intern("")
	assert.Equal(t, 2, si.Len())

	si.Clear()
	assert.Equal(t, 0, si.Len())
}

func BenchmarkStringIntern(b *testing.B) {
	si := NewStringIntern()
	groups := []string{"inbound-1", "inbound-2", "outbound-1", "charging"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		si.Intern(groups[i%len(groups)])
	}
}
