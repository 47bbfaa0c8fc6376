package nrpe

// The NRPE daemon checksums packets with the ISO-HDLC CRC32 (the same
// polynomial as zlib). The table is built the way the daemon builds
// its own, rather than through hash/crc32, to stay bit-compatible with
// the reference implementation.
var crc32Table [256]uint32

func init() {
	var crc uint32

	poly := uint32(0xEDB88320)

	for i := uint32(0); i < 256; i++ {
		crc = i

		for j := 8; j > 0; j-- {
			if (crc & 1) != 0 {
				crc = (crc >> 1) ^ poly
			} else {
				crc >>= 1
			}
		}

		crc32Table[i] = crc
	}
}

// crc32sum computes the checksum of a serialized packet. The packet's
// own crc32 field must be zeroed before calling.
func crc32sum(in []byte) uint32 {
	crc := uint32(0xFFFFFFFF)

	for _, c := range in {
		crc = ((crc >> 8) & 0x00FFFFFF) ^ crc32Table[(crc^uint32(c))&0xFF]
	}

	return crc ^ 0xFFFFFFFF
}
