/*
Copyright 2023 Alexander Bartolomey (github@alexanderbartolomey.de)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ipfix

import "encoding/binary"

// MessageHeaderLength is the fixed size of an IPFIX message header (spec
// §6.1): version(2) + length(2) + exportTime(4) + sequenceNumber(4) +
// observationDomainId(4).
const MessageHeaderLength = 16

// ipfixVersion is the only version this library understands. The teacher's
// NFv9/UnknownVersion dispatch does not apply here (spec's scope is IPFIX
// only, see DESIGN.md).
const ipfixVersion uint16 = 10

// MessageHeader is the 16-byte header prefixing every IPFIX message (spec
// §6.1).
type MessageHeader struct {
	Version             uint16
	Length              uint16
	ExportTime          uint32
	SequenceNumber      uint32
	ObservationDomainId uint32
}

// ParseMessageHeader reads and validates an IPFIX message header from the
// start of b.
func ParseMessageHeader(b []byte) (MessageHeader, error) {
	if len(b) < MessageHeaderLength {
		return MessageHeader{}, errInsufficientBuffer("message header requires %d bytes, got %d", MessageHeaderLength, len(b))
	}
	h := MessageHeader{
		Version:             binary.BigEndian.Uint16(b[0:2]),
		Length:              binary.BigEndian.Uint16(b[2:4]),
		ExportTime:          binary.BigEndian.Uint32(b[4:8]),
		SequenceNumber:      binary.BigEndian.Uint32(b[8:12]),
		ObservationDomainId: binary.BigEndian.Uint32(b[12:16]),
	}
	if h.Version != ipfixVersion {
		return h, errFormat("unsupported message version %d, expected %d", h.Version, ipfixVersion)
	}
	if int(h.Length) < MessageHeaderLength {
		return h, errFormat("message length %d shorter than header", h.Length)
	}
	return h, nil
}

func (h MessageHeader) Encode() []byte {
	b := make([]byte, MessageHeaderLength)
	binary.BigEndian.PutUint16(b[0:2], h.Version)
	binary.BigEndian.PutUint16(b[2:4], h.Length)
	binary.BigEndian.PutUint32(b[4:8], h.ExportTime)
	binary.BigEndian.PutUint32(b[8:12], h.SequenceNumber)
	binary.BigEndian.PutUint32(b[12:16], h.ObservationDomainId)
	return b
}

// Message is one parsed IPFIX message: its header plus the decoded contents
// of each Set, produced by WalkMessage (spec §6.1).
type Message struct {
	Header      MessageHeader
	Templates   []*Template
	OptionsTpls []*Template
	Withdrawals []uint16
	DataRecords map[uint16][]*DataRecord
}
