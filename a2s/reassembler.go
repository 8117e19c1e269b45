package a2s

import (
	"bytes"
	"compress/bzip2"
	"hash/crc32"
	"io"
)

// fragmentHeader is the per-fragment header of a multi-packet response.
// Its shape depends on whether the owning endpoint is known to be a
// GoldSource (appID < 200) or Source (appID >= 200, or not yet known)
// server.
type fragmentHeader struct {
	requestID   int32
	packetID    int
	packetTotal int
	compressed  bool

	uncompressedSize int32
	crc32            uint32
}

// legacyNoPacketSize reports whether this endpoint belongs to one of the
// specific old titles whose Source-path fragment header omits the
// int16 packet-size field: protocol version 7 with an application id in
// {215, 17550, 17700, 240}.
func legacyNoPacketSize(protocolKnown bool, protocol byte, appID uint16, appIDKnown bool) bool {
	if !protocolKnown || protocol != 7 || !appIDKnown {
		return false
	}
	switch appID {
	case 215, 17550, 17700, 240:
		return true
	default:
		return false
	}
}

func parseFragmentHeader(r *Reader, goldSource bool, legacyNoSize bool) (fragmentHeader, error) {
	var hdr fragmentHeader

	requestID, err := r.ReadI32()
	if err != nil {
		return hdr, err
	}
	hdr.requestID = requestID

	if goldSource {
		b, err := r.ReadU8()
		if err != nil {
			return hdr, err
		}
		hdr.packetTotal = int(b & 0x0F)
		hdr.packetID = int(b >> 4)
		return hdr, nil
	}

	// Source path: the high bit of the request id's low byte flags
	// bzip2 compression.
	hdr.compressed = uint32(requestID)&0x80 != 0

	total, err := r.ReadU8()
	if err != nil {
		return hdr, err
	}
	hdr.packetTotal = int(total)

	id, err := r.ReadU8()
	if err != nil {
		return hdr, err
	}
	hdr.packetID = int(id)

	if !legacyNoSize {
		// packetSize gates only the cursor position; the value itself is
		// never used downstream.
		if _, err := r.ReadI16(); err != nil {
			return hdr, err
		}
	}

	if hdr.packetID == 0 && hdr.compressed {
		uncompressedSize, err := r.ReadI32()
		if err != nil {
			return hdr, err
		}
		crc, err := r.ReadI32()
		if err != nil {
			return hdr, err
		}
		hdr.uncompressedSize = uncompressedSize
		hdr.crc32 = uint32(crc)
	}

	return hdr, nil
}

// Reassembly combines the fragments of one multi-packet response for a
// single endpoint. It is created on the first fragment observed for a
// stage and discarded as soon as the combined payload is handed off,
// per the endpoint-scoped-buffer invariant in §3.
type Reassembly struct {
	total      int
	fragments  [][]byte
	haveCount  int
	compressed bool
	uncompressedSize int32
	crc32            uint32
}

// AddFragment folds one fragment datagram (with the -2 split-packet
// prefix already stripped by the caller) into the reassembly context.
// It returns complete=true and the combined, decompressed payload once
// every fragment 0..packetTotal-1 has arrived; a CRC32 mismatch on a
// compressed payload fails with ErrChecksum and the parser is never
// invoked. Fragments for an index already populated are ignored, so a
// late duplicate cannot corrupt an in-progress assembly.
func (a *Reassembly) AddFragment(data []byte, goldSource bool, legacyNoSize bool) (complete bool, payload []byte, err error) {
	r := NewReader(data)
	hdr, err := parseFragmentHeader(r, goldSource, legacyNoSize)
	if err != nil {
		return false, nil, err
	}

	if hdr.packetTotal < 1 {
		return false, nil, ErrTruncated
	}

	if hdr.packetID == 0 && hdr.compressed {
		a.compressed = true
		a.uncompressedSize = hdr.uncompressedSize
		a.crc32 = hdr.crc32
	}

	if a.fragments == nil {
		a.total = hdr.packetTotal
		a.fragments = make([][]byte, hdr.packetTotal)
	}

	if hdr.packetID >= len(a.fragments) {
		return false, nil, ErrTruncated
	}
	if a.fragments[hdr.packetID] == nil {
		a.fragments[hdr.packetID] = append([]byte(nil), r.Remaining()...)
		a.haveCount++
	}

	if a.haveCount < a.total {
		return false, nil, nil
	}

	size := 0
	for _, f := range a.fragments {
		size += len(f)
	}
	combined := make([]byte, 0, size)
	for _, f := range a.fragments {
		combined = append(combined, f...)
	}

	// The assembled stream's inner simple-framing prefix lives here;
	// discard it so the payload handed to the state machine starts at
	// the response type byte. For a compressed payload this prefix is
	// inside the decompressed bytes, not the raw (still bzip2-encoded)
	// fragment bytes, so the skip has to happen after decompression.
	if !a.compressed {
		if len(combined) < 4 {
			return false, nil, ErrTruncated
		}
		return true, combined[4:], nil
	}

	decompressed, err := decompressBzip2(combined, a.uncompressedSize)
	if err != nil {
		return false, nil, err
	}
	if crc32.ChecksumIEEE(decompressed) != a.crc32 {
		return false, nil, ErrChecksum
	}
	if len(decompressed) < 4 {
		return false, nil, ErrTruncated
	}
	return true, decompressed[4:], nil
}

// decompressBzip2 inflates a bzip2 container (as emitted by Source
// dedicated servers, carrying the standard "BZh" / "TERRORIST" magic)
// to exactly size bytes.
func decompressBzip2(data []byte, size int32) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(bzip2.NewReader(bytes.NewReader(data)), out); err != nil {
		return nil, err
	}
	return out, nil
}
