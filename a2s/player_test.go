package a2s

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParsePlayers_RoundTrip(t *testing.T) {
	t.Run("parses a standard player list with no Ship fields", func(t0 *testing.T) {
		buf := &packetBuffer{}
		buf.WriteByte(2) // count

		buf.WriteByte(0)
		buf.WriteCString("alice")
		buf.WriteInt32(10)
		buf.WriteFloat32(123.5)

		buf.WriteByte(1)
		buf.WriteCString("bob")
		buf.WriteInt32(3)
		buf.WriteFloat32(45.0)

		players, err := ParsePlayers(buf.Bytes(), false)
		require.NoError(t0, err)
		require.Len(t0, players, 2)

		assert.Equal(t0, "alice", players[0].Name)
		assert.Equal(t0, int32(10), players[0].Score)
		assert.False(t0, players[0].HasShipFields)

		assert.Equal(t0, "bob", players[1].Name)
		assert.Equal(t0, float32(45.0), players[1].Duration)
	})

	t.Run("parses Deaths/Money when ship schema is selected", func(t0 *testing.T) {
		buf := &packetBuffer{}
		buf.WriteByte(1)

		buf.WriteByte(0)
		buf.WriteCString("captain")
		buf.WriteInt32(99)
		buf.WriteFloat32(10.0)
		buf.WriteInt32(4)   // deaths
		buf.WriteInt32(500) // money

		players, err := ParsePlayers(buf.Bytes(), true)
		require.NoError(t0, err)
		require.Len(t0, players, 1)

		assert.True(t0, players[0].HasShipFields)
		assert.Equal(t0, int32(4), players[0].Deaths)
		assert.Equal(t0, int32(500), players[0].Money)
	})

	t.Run("stops early without error when the buffer is truncated mid-list", func(t0 *testing.T) {
		buf := &packetBuffer{}
		buf.WriteByte(2) // claims two players

		buf.WriteByte(0)
		buf.WriteCString("only-one")
		buf.WriteInt32(1)
		buf.WriteFloat32(1.0)
		// second player's bytes are simply absent

		players, err := ParsePlayers(buf.Bytes(), false)
		require.NoError(t0, err)
		assert.Len(t0, players, 1)
	})

	t.Run("returns an empty slice for a zero-count response", func(t0 *testing.T) {
		buf := &packetBuffer{}
		buf.WriteByte(0)

		players, err := ParsePlayers(buf.Bytes(), false)
		require.NoError(t0, err)
		assert.Empty(t0, players)
	})
}
