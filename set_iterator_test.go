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

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func sourceIPv4Scope() *IEManager {
	m := NewIEManager()
	s := NewScope(0, "iana")
	s.add(&InformationElement{Id: 1, Name: "octetDeltaCount", Constructor: NewUnsigned64})
	s.add(&InformationElement{Id: 8, Name: "sourceIPv4Address", Constructor: NewIPv4Address})
	m.scopes[0] = s
	m.byName["iana:octetDeltaCount"] = s.get(1)
	m.byName["iana:sourceIPv4Address"] = s.get(8)
	return m
}

// buildTemplateSet assembles one Template Set containing a single template
// (id 256) with two fixed-length fields: octetDeltaCount (en0/id1, 8 bytes)
// and sourceIPv4Address (en0/id8, 4 bytes).
func buildTemplateSet() []byte {
	body := make([]byte, 0, 16)
	body = binary.BigEndian.AppendUint16(body, 256) // template id
	body = binary.BigEndian.AppendUint16(body, 2)   // field count
	body = binary.BigEndian.AppendUint16(body, 1)   // octetDeltaCount
	body = binary.BigEndian.AppendUint16(body, 8)
	body = binary.BigEndian.AppendUint16(body, 8) // sourceIPv4Address
	body = binary.BigEndian.AppendUint16(body, 4)

	set := make([]byte, 0, setHeaderLength+len(body))
	set = binary.BigEndian.AppendUint16(set, setIdTemplate)
	set = binary.BigEndian.AppendUint16(set, uint16(setHeaderLength+len(body)))
	set = append(set, body...)
	return set
}

func buildDataSet(t *testing.T) []byte {
	t.Helper()
	rec := make([]byte, 0, 12)
	rec = binary.BigEndian.AppendUint64(rec, 42)
	rec = append(rec, 10, 0, 0, 1)

	set := make([]byte, 0, setHeaderLength+len(rec))
	set = binary.BigEndian.AppendUint16(set, 256)
	set = binary.BigEndian.AppendUint16(set, uint16(setHeaderLength+len(rec)))
	set = append(set, rec...)
	return set
}

func buildMessage(t *testing.T, sets ...[]byte) []byte {
	t.Helper()
	var body []byte
	for _, s := range sets {
		body = append(body, s...)
	}
	msg := make([]byte, MessageHeaderLength)
	binary.BigEndian.PutUint16(msg[0:2], ipfixVersion)
	binary.BigEndian.PutUint16(msg[2:4], uint16(MessageHeaderLength+len(body)))
	binary.BigEndian.PutUint32(msg[4:8], 1700000000)
	binary.BigEndian.PutUint32(msg[8:12], 1)
	binary.BigEndian.PutUint32(msg[12:16], 0)
	return append(msg, body...)
}

func TestWalkMessageTemplateThenData(t *testing.T) {
	iem := sourceIPv4Scope()
	tm := NewTemplateManager(TransportTCP)

	msg := buildMessage(t, buildTemplateSet())
	out, err := WalkMessage(msg, tm, iem, 0)
	require.NoError(t, err)
	require.Len(t, out.Templates, 1)
	require.Equal(t, uint16(256), out.Templates[0].Id)

	msg2 := buildMessage(t, buildDataSet(t))
	out2, err := WalkMessage(msg2, tm, iem, 0)
	require.NoError(t, err)
	require.Len(t, out2.DataRecords[256], 1)

	dr := out2.DataRecords[256][0]
	f, ok := dr.GetByKey(0, 1)
	require.True(t, ok)
	require.Equal(t, uint64(42), f.Value.Value())
}

func TestWalkMessageDataSetWithoutTemplateFails(t *testing.T) {
	iem := sourceIPv4Scope()
	tm := NewTemplateManager(TransportTCP)

	msg := buildMessage(t, buildDataSet(t))
	_, err := WalkMessage(msg, tm, iem, 0)
	require.Error(t, err)
}

func TestWalkMessageReservedSetIdFails(t *testing.T) {
	iem := sourceIPv4Scope()
	tm := NewTemplateManager(TransportTCP)

	set := make([]byte, 0, setHeaderLength)
	set = binary.BigEndian.AppendUint16(set, 10) // reserved, not a data set
	set = binary.BigEndian.AppendUint16(set, setHeaderLength)

	msg := buildMessage(t, set)
	_, err := WalkMessage(msg, tm, iem, 0)
	require.Error(t, err)
}
