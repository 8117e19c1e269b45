package a2s

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseRules_RoundTrip(t *testing.T) {
	t.Run("parses a normal name/value list", func(t0 *testing.T) {
		buf := &packetBuffer{}
		buf.WriteInt16(2)

		buf.WriteCString("mp_friendlyfire")
		buf.WriteCString("0")
		buf.WriteCString("sv_gravity")
		buf.WriteCString("800")

		rules, err := ParseRules(buf.Bytes())
		require.NoError(t0, err)
		require.Len(t0, rules, 2)

		assert.Equal(t0, Rule{Name: "mp_friendlyfire", Value: "0"}, rules[0])
		assert.Equal(t0, Rule{Name: "sv_gravity", Value: "800"}, rules[1])
	})

	t.Run("stops early without error when the buffer is truncated mid-list", func(t0 *testing.T) {
		buf := &packetBuffer{}
		buf.WriteInt16(2)
		buf.WriteCString("only_rule")
		buf.WriteCString("1")
		// second pair's bytes are simply absent

		rules, err := ParseRules(buf.Bytes())
		require.NoError(t0, err)
		assert.Len(t0, rules, 1)
	})

	t.Run("returns an empty slice for a zero-count response", func(t0 *testing.T) {
		buf := &packetBuffer{}
		buf.WriteInt16(0)

		rules, err := ParseRules(buf.Bytes())
		require.NoError(t0, err)
		assert.Empty(t0, rules)
	})

	t.Run("does not panic on a negative count with the high bit set", func(t0 *testing.T) {
		buf := &packetBuffer{}
		buf.WriteInt16(-1)

		rules, err := ParseRules(buf.Bytes())
		require.NoError(t0, err)
		assert.Empty(t0, rules)
	})
}
