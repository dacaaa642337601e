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
	"bytes"
	"math"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u32Field(name string, en uint32, id uint16, v DataType) DecodedField {
	return DecodedField{
		Key:   FieldKey{EnterpriseId: en, Id: id},
		Name:  name,
		IE:    &InformationElement{Id: id, EnterpriseId: en, Name: name},
		Value: v,
	}
}

func TestRenderDataRecordScalars(t *testing.T) {
	dr := &DataRecord{
		Template: &Template{Type: TemplateData},
		Fields: []DecodedField{
			u32Field("octetDeltaCount", 0, 1, NewUnsigned64().SetValue(uint64(42))),
			u32Field("sourceIPv4Address", 0, 8, NewIPv4Address().SetValue(net.ParseIP("10.0.0.1"))),
		},
	}

	rn := NewRenderer(0)
	buf := NewBuffer(128)
	require.NoError(t, rn.RenderDataRecord(buf, dr))

	out := string(buf.Bytes())
	assert.Contains(t, out, `"@type":"ipfix.entry"`)
	assert.Contains(t, out, `"iana:octetDeltaCount":42`)
	assert.Contains(t, out, `"iana:sourceIPv4Address":"10.0.0.1"`)
}

func TestRenderDataRecordNumericID(t *testing.T) {
	dr := &DataRecord{
		Template: &Template{Type: TemplateOptions},
		Fields: []DecodedField{
			u32Field("octetDeltaCount", 0, 1, NewUnsigned64().SetValue(uint64(7))),
		},
	}

	rn := NewRenderer(NumericID)
	buf := NewBuffer(64)
	require.NoError(t, rn.RenderDataRecord(buf, dr))

	out := string(buf.Bytes())
	assert.Contains(t, out, `"@type":"ipfix.optionsEntry"`)
	assert.Contains(t, out, `"en0:id1":7`)
}

func TestRenderTCPFlags(t *testing.T) {
	f := u32Field("tcpControlBits", 0, tcpFlagsFieldId, NewUnsigned16().SetValue(uint16(0x13)))

	rn := NewRenderer(FormatTCPFlags)
	buf := NewBuffer(32)
	require.NoError(t, rn.renderValue(buf, &f))

	assert.Equal(t, `".A..SF"`, string(buf.Bytes()))
}

func TestRenderValueInvalidFieldRendersNull(t *testing.T) {
	f := u32Field("tcpControlBits", 0, tcpFlagsFieldId, NewUnsigned16().SetValue(uint16(0x13)))
	f.Invalid = true

	rn := NewRenderer(FormatTCPFlags)
	buf := NewBuffer(32)
	require.NoError(t, rn.renderValue(buf, &f))

	assert.Equal(t, "null", string(buf.Bytes()))
}

func TestDecodeDataRecordMarksIllegalBooleanInvalid(t *testing.T) {
	en, id := uint32(0), uint16(0)
	ie := &InformationElement{EnterpriseId: en, Id: id, Name: "isMulticast", Constructor: NewBoolean}
	tmpl := &Template{
		Type:       TemplateData,
		FieldCount: 1,
		Fields:     []TemplateField{{En: en, Id: id, Length: 1, IE: ie}},
	}

	dr, _, err := DecodeDataRecord(bytes.NewReader([]byte{0x09}), tmpl, nil, nil, 0)
	require.NoError(t, err)
	require.Len(t, dr.Fields, 1)
	assert.True(t, dr.Fields[0].Invalid)

	rn := NewRenderer(0)
	buf := NewBuffer(64)
	require.NoError(t, rn.RenderDataRecord(buf, dr))
	assert.Contains(t, string(buf.Bytes()), `"iana:isMulticast":null`)
}

func TestRenderProtocolIdentifier(t *testing.T) {
	f := u32Field("protocolIdentifier", 0, protoFieldId, NewUnsigned8().SetValue(uint8(6)))

	rn := NewRenderer(FormatProto)
	buf := NewBuffer(32)
	require.NoError(t, rn.renderValue(buf, &f))

	assert.Equal(t, `"tcp"`, string(buf.Bytes()))
}

func TestRenderFloatNonFinite(t *testing.T) {
	buf := NewBuffer(32)
	require.NoError(t, writeFloat(buf, math.Inf(1), 64))
	assert.Equal(t, `"Infinity"`, string(buf.Bytes()))

	buf.Reset()
	require.NoError(t, writeFloat(buf, math.NaN(), 64))
	assert.Equal(t, `"NaN"`, string(buf.Bytes()))
}

func TestRenderOctetArrayIntVsHex(t *testing.T) {
	buf := NewBuffer(32)
	require.NoError(t, writeOctetArray(buf, []byte{0x01, 0x02}, false))
	assert.Equal(t, "258", string(buf.Bytes()))

	buf.Reset()
	require.NoError(t, writeOctetArray(buf, []byte{0x01, 0x02}, true))
	assert.Equal(t, `"0x0102"`, string(buf.Bytes()))
}

func TestFixedBufferInsufficientSpace(t *testing.T) {
	buf := NewFixedBuffer(4)
	err := buf.writeString("too long")
	require.Error(t, err)
}
