package a2s

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSourceInfoPayload(t *testing.T, appID int16, edf byte, withEDF bool) []byte {
	t.Helper()
	buf := &packetBuffer{}

	buf.WriteByte(17) // protocol
	buf.WriteCString("My Server")
	buf.WriteCString("de_dust2")
	buf.WriteCString("cstrike")
	buf.WriteCString("Counter-Strike")
	buf.WriteInt16(appID)
	buf.WriteByte(5)  // players
	buf.WriteByte(16) // max players
	buf.WriteByte(0)  // bots
	buf.WriteByte('d')
	buf.WriteByte('l')
	buf.WriteByte(0) // visibility
	buf.WriteByte(1) // vac

	if appID == int16(appIDTheShip) {
		buf.WriteByte(1) // mode
		buf.WriteByte(2) // witnesses
		buf.WriteByte(3) // duration
	}

	buf.WriteCString("1.0.0.0")

	if withEDF {
		buf.WriteByte(edf)
		if edf&0x80 != 0 {
			buf.WriteInt16(27015)
		}
		if edf&0x10 != 0 {
			buf.WriteUInt64(76561197960287930)
		}
		if edf&0x40 != 0 {
			buf.WriteInt16(27020)
			buf.WriteCString("SourceTV")
		}
		if edf&0x20 != 0 {
			buf.WriteCString("alltalk,friendlyfire")
		}
		if edf&0x01 != 0 {
			buf.WriteUInt64(240)
		}
	}

	return buf.Bytes()
}

func Test_ParseSourceInfo_RoundTrip(t *testing.T) {
	t.Run("parses every field of a minimal response with no EDF trailer", func(t0 *testing.T) {
		payload := buildSourceInfoPayload(t0, 10, 0, false)
		info, err := ParseSourceInfo(payload)
		require.NoError(t0, err)

		assert.Equal(t0, byte(17), info.Protocol)
		assert.Equal(t0, "My Server", info.Name)
		assert.Equal(t0, "de_dust2", info.Map)
		assert.Equal(t0, "cstrike", info.Folder)
		assert.Equal(t0, "Counter-Strike", info.Game)
		assert.Equal(t0, uint16(10), info.AppID)
		assert.Equal(t0, byte(5), info.Players)
		assert.Equal(t0, byte(16), info.MaxPlayers)
		assert.Nil(t0, info.Ship)
		assert.Equal(t0, "1.0.0.0", info.Version)
		assert.Equal(t0, byte(0), info.EDF)
	})

	t.Run("parses the Ship sub-record when AppID is 2400", func(t0 *testing.T) {
		payload := buildSourceInfoPayload(t0, int16(appIDTheShip), 0, false)
		info, err := ParseSourceInfo(payload)
		require.NoError(t0, err)

		require.NotNil(t0, info.Ship)
		assert.Equal(t0, byte(1), info.Ship.Mode)
		assert.Equal(t0, byte(2), info.Ship.Witnesses)
		assert.Equal(t0, byte(3), info.Ship.Duration)
	})

	t.Run("parses every EDF-gated extended field when all bits are set", func(t0 *testing.T) {
		payload := buildSourceInfoPayload(t0, 10, 0x80|0x10|0x40|0x20|0x01, true)
		info, err := ParseSourceInfo(payload)
		require.NoError(t0, err)

		assert.True(t0, info.Extended.HasPort)
		assert.Equal(t0, uint16(27015), info.Extended.Port)
		assert.True(t0, info.Extended.HasSteamID)
		assert.Equal(t0, "76561197960287930", info.Extended.SteamID)
		require.NotNil(t0, info.Extended.Spectator)
		assert.Equal(t0, uint16(27020), info.Extended.Spectator.Port)
		assert.Equal(t0, "SourceTV", info.Extended.Spectator.Name)
		assert.True(t0, info.Extended.HasKeywords)
		assert.Equal(t0, "alltalk,friendlyfire", info.Extended.Keywords)
		assert.True(t0, info.Extended.HasGameID)
		assert.Equal(t0, "240", info.Extended.GameID)
	})

	t.Run("tolerates a response with no EDF byte at all", func(t0 *testing.T) {
		payload := buildSourceInfoPayload(t0, 10, 0, false)
		info, err := ParseSourceInfo(payload)
		require.NoError(t0, err)
		assert.Equal(t0, byte(0), info.EDF)
	})
}

func buildGoldSourceInfoPayload(t *testing.T, withMod bool) []byte {
	t.Helper()
	buf := &packetBuffer{}

	buf.WriteCString("127.0.0.1:27015")
	buf.WriteCString("Old Server")
	buf.WriteCString("crossfire")
	buf.WriteCString("valve")
	buf.WriteCString("Half-Life")
	buf.WriteByte(2)  // players
	buf.WriteByte(8)  // max players
	buf.WriteByte(46) // protocol
	buf.WriteByte('d')
	buf.WriteByte('w')
	buf.WriteByte(0) // visibility

	if withMod {
		buf.WriteByte(1)
		buf.WriteCString("http://example.com/mod")
		buf.WriteCString("http://example.com/download")
		buf.WriteByte(0)
		buf.WriteInt32(1)
		buf.WriteInt32(184320)
		buf.WriteByte(1)
		buf.WriteByte(0)
	} else {
		buf.WriteByte(0)
	}

	buf.WriteByte(0) // vac
	buf.WriteByte(1) // bots

	return buf.Bytes()
}

func Test_ParseGoldSourceInfo_RoundTrip(t *testing.T) {
	t.Run("parses a response with no mod sub-record", func(t0 *testing.T) {
		payload := buildGoldSourceInfoPayload(t0, false)
		info, err := ParseGoldSourceInfo(payload)
		require.NoError(t0, err)

		assert.Equal(t0, "Old Server", info.Name)
		assert.Equal(t0, byte(46), info.Protocol)
		assert.Nil(t0, info.Mod)
		assert.Equal(t0, byte(1), info.Bots)
	})

	t.Run("parses the mod sub-record when the mod flag is set", func(t0 *testing.T) {
		payload := buildGoldSourceInfoPayload(t0, true)
		info, err := ParseGoldSourceInfo(payload)
		require.NoError(t0, err)

		require.NotNil(t0, info.Mod)
		assert.Equal(t0, "http://example.com/mod", info.Mod.Link)
		assert.Equal(t0, int32(1), info.Mod.Version)
		assert.Equal(t0, int32(184320), info.Mod.Size)
	})

	t.Run("tolerates a missing trailing bots byte", func(t0 *testing.T) {
		payload := buildGoldSourceInfoPayload(t0, false)
		truncated := payload[:len(payload)-1]
		info, err := ParseGoldSourceInfo(truncated)
		require.NoError(t0, err)
		assert.Equal(t0, byte(0), info.Bots) // zero value, never set
	})
}
