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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionTemplateSetFKeyMarksFlowKeyFields(t *testing.T) {
	srcV4 := InformationElement{Id: 8, Name: "sourceIPv4Address", ReverseRef: &FieldKey{EnterpriseId: 0, Id: 12}}
	dstV4 := InformationElement{Id: 12, Name: "destinationIPv4Address"}
	proto := InformationElement{Id: 4, Name: "protocolIdentifier"}

	iem := NewIEManager()
	require.NoError(t, iem.AddElement(srcV4, 0, false))
	require.NoError(t, iem.AddElement(dstV4, 0, false))
	require.NoError(t, iem.AddElement(proto, 0, false))

	tmpl := &Template{
		Id:         256,
		Type:       TemplateData,
		FieldCount: 3,
		Fields: []TemplateField{
			{En: 0, Id: 8},
			{En: 0, Id: 12},
			{En: 0, Id: 4},
		},
		Raw: []byte{0x01, 0x00},
	}

	s := NewSession(TransportTCP, iem, 0, 0)
	require.NoError(t, s.TM.SetTime(1))
	require.NoError(t, s.TM.TemplateAdd(tmpl))
	s.TM.SetIEManager(iem)

	require.True(t, tmpl.Features.Has(FeatureBiflow))

	require.NoError(t, s.TemplateSetFKey(256, 0x3)) // fields 0 and 1

	got, ok := s.TM.TemplateGet(256)
	require.True(t, ok)
	require.Equal(t, uint64(0x3), got.FKeyMask)

	assert := require.New(t)
	assert.True(got.Fields[0].Flags.Has(FlagFKey))
	assert.True(got.Fields[0].Flags.Has(FlagBKey), "flow-key field with a reverse IE must also be marked FlagBKey")
	assert.True(got.Fields[1].Flags.Has(FlagFKey))
	assert.False(got.Fields[1].Flags.Has(FlagBKey), "destination address has no reverse IE of its own")
	assert.False(got.Fields[2].Flags.Has(FlagFKey))
}

func TestSessionTemplateSetFKeyRejectsOutOfRangeMask(t *testing.T) {
	tmpl := &Template{
		Id:         256,
		Type:       TemplateData,
		FieldCount: 2,
		Fields:     []TemplateField{{En: 0, Id: 8}, {En: 0, Id: 12}},
		Raw:        []byte{0x01, 0x00},
	}

	s := NewSession(TransportTCP, nil, 0, 0)
	require.NoError(t, s.TM.SetTime(1))
	require.NoError(t, s.TM.TemplateAdd(tmpl))

	err := s.TemplateSetFKey(256, 0x4) // bit 2 is beyond field count 2
	require.Error(t, err)
}
