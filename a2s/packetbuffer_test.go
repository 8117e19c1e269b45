package a2s

import (
	"bytes"
	"encoding/binary"
	"math"
)

// packetBuffer is a write-side test fixture for building response
// payloads to feed into the parse functions, mirroring the write-side
// helper the corpus's A2S test server uses to build wire-format
// packets byte by byte.
type packetBuffer struct {
	bytes.Buffer
}

func (b *packetBuffer) WriteCString(s string) {
	b.WriteString(s)
	b.WriteByte(0)
}

func (b *packetBuffer) WriteUInt16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	b.Write(buf[:])
}

func (b *packetBuffer) WriteInt16(v int16) {
	b.WriteUInt16(uint16(v))
}

func (b *packetBuffer) WriteUInt32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.Write(buf[:])
}

func (b *packetBuffer) WriteInt32(v int32) {
	b.WriteUInt32(uint32(v))
}

func (b *packetBuffer) WriteUInt64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	b.Write(buf[:])
}

func (b *packetBuffer) WriteFloat32(v float32) {
	b.WriteUInt32(math.Float32bits(v))
}
