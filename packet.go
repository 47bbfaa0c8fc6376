package nrpe

import (
	"bytes"
	"encoding/binary"
)

// NRPE v2 wire layout, big-endian. Every packet is exactly
// packetLength bytes, query and response alike:
//
//	offset    0  int16   protocol version
//	offset    2  int16   packet type
//	offset    4  uint32  crc32 of the whole packet, crc32 field zeroed
//	offset    8  int16   result code
//	offset   10  byte    data buffer, null padded [1024]
//	offset 1034  byte    alignment [2]
const (
	maxPacketDataLength = 1024
	packetLength        = maxPacketDataLength + 12
)

const (
	queryPacketType    = 1
	responsePacketType = 2
)

// currently supporting latest version2 protocol
const nrpePacketVersion2 = 2

// Query packets carry "ND" in the alignment bytes, matching what
// check_nrpe puts on the wire. Responses leave them as filler.
const (
	queryAlignByte1 = 'N'
	queryAlignByte2 = 'D'
)

var be = binary.BigEndian

// packet is a structured view over one fixed-size buffer. The field
// slices alias regions of all, so writes through a field update the
// serialized form directly.
type packet struct {
	version    []byte
	packetType []byte
	crc32      []byte
	statusCode []byte
	data       []byte
	alignment  []byte

	all []byte
}

func createPacket() *packet {
	var p packet
	p.all = make([]byte, packetLength)

	p.version = p.all[0:2]
	p.packetType = p.all[2:4]
	p.crc32 = p.all[4:8]
	p.statusCode = p.all[8:10]
	p.data = p.all[10 : 10+maxPacketDataLength]
	p.alignment = p.all[10+maxPacketDataLength:]

	return &p
}

// buildPacket serializes one packet and seals it with its checksum.
func buildPacket(packetType uint16, statusCode uint16, statusLine []byte) *packet {
	p := createPacket()

	be.PutUint16(p.version, nrpePacketVersion2)
	be.PutUint16(p.packetType, packetType)
	be.PutUint32(p.crc32, 0)
	be.PutUint16(p.statusCode, statusCode)

	copy(p.data, statusLine)

	if packetType == queryPacketType {
		p.alignment[0] = queryAlignByte1
		p.alignment[1] = queryAlignByte2
	}

	be.PutUint32(p.crc32, crc32sum(p.all))

	return p
}

// buildQuery serializes command into a query packet. Command lines
// that cannot fit the data field with a trailing null are rejected
// outright; truncating would query something else than asked for.
func buildQuery(command Command) (*packet, error) {
	statusLine := command.toStatusLine()

	if len(statusLine) >= maxPacketDataLength {
		return nil, &CommandTooLongError{
			Length: len(statusLine),
			Max:    maxPacketDataLength - 1,
		}
	}

	return buildPacket(queryPacketType, 0, []byte(statusLine)), nil
}

// parsePacket validates a received buffer against the fixed layout,
// the protocol version, the expected packet type and the checksum, in
// that order, and returns the structured view over a private copy.
func parsePacket(buf []byte, expectedType int16) (*packet, error) {
	if len(buf) != packetLength {
		return nil, &MalformedPacketError{Length: len(buf)}
	}

	p := createPacket()
	copy(p.all, buf)

	if version := int16(be.Uint16(p.version)); version != nrpePacketVersion2 {
		return nil, &VersionMismatchError{
			Expected: nrpePacketVersion2,
			Actual:   version,
		}
	}

	if packetType := int16(be.Uint16(p.packetType)); packetType != expectedType {
		return nil, &UnexpectedPacketTypeError{
			Expected: expectedType,
			Actual:   packetType,
		}
	}

	declared := be.Uint32(p.crc32)
	be.PutUint32(p.crc32, 0)
	computed := crc32sum(p.all)
	be.PutUint32(p.crc32, declared)

	if computed != declared {
		return nil, &ChecksumMismatchError{
			Expected: computed,
			Actual:   declared,
		}
	}

	return p, nil
}

// parseResponse validates a response packet and extracts the result
// code and the status line with trailing nulls stripped.
func parseResponse(buf []byte) (*CommandResult, error) {
	p, err := parsePacket(buf, responsePacketType)
	if err != nil {
		return nil, err
	}

	return &CommandResult{
		StatusLine: string(bytes.TrimRight(p.data, "\x00")),
		StatusCode: CommandStatus(int16(be.Uint16(p.statusCode))),
	}, nil
}
