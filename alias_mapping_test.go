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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasResolveFirstOf(t *testing.T) {
	iem := NewIEManager()
	require.NoError(t, iem.AddElement(InformationElement{Id: 27, Name: "sourceIPv6Address", Constructor: NewIPv6Address}, 0, false))
	require.NoError(t, iem.AddElement(InformationElement{Id: 8, Name: "sourceIPv4Address", Constructor: NewIPv4Address}, 0, false))

	iem.aliases["srcip"] = &Alias{
		Name: "srcip",
		Mode: FirstOf,
		Sources: []FieldKey{
			{EnterpriseId: 0, Id: 27},
			{EnterpriseId: 0, Id: 8},
		},
	}

	v4, _ := iem.FindByID(0, 8)
	dr := &DataRecord{
		Fields: []DecodedField{
			{Key: FieldKey{EnterpriseId: 0, Id: 8}, Name: "sourceIPv4Address", IE: v4, Value: NewUnsigned32().SetValue(uint32(0))},
		},
	}
	dr.byKey = map[FieldKey]*DecodedField{dr.Fields[0].Key: &dr.Fields[0]}

	resolved := dr.ResolveAlias(iem, "srcip")
	require.Len(t, resolved, 1)
	assert.Equal(t, "sourceIPv4Address", resolved[0].Name)

	assert.Nil(t, dr.ResolveAlias(iem, "nonexistentAlias"))
	assert.Nil(t, dr.ResolveAlias(nil, "srcip"))
}

func TestAliasResolveAnyOf(t *testing.T) {
	iem := NewIEManager()
	iem.aliases["anySrc"] = &Alias{
		Name: "anySrc",
		Mode: AnyOf,
		Sources: []FieldKey{
			{EnterpriseId: 0, Id: 8},
			{EnterpriseId: 0, Id: 27},
		},
	}

	dr := &DataRecord{
		Fields: []DecodedField{
			{Key: FieldKey{EnterpriseId: 0, Id: 8}, Name: "sourceIPv4Address"},
			{Key: FieldKey{EnterpriseId: 0, Id: 27}, Name: "sourceIPv6Address"},
		},
	}
	dr.byKey = map[FieldKey]*DecodedField{
		dr.Fields[0].Key: &dr.Fields[0],
		dr.Fields[1].Key: &dr.Fields[1],
	}

	resolved := dr.ResolveAlias(iem, "anySrc")
	require.Len(t, resolved, 2)
}

func TestMappingLookupAndName2(t *testing.T) {
	m := NewMapping("tcpStates", false)
	m.Add("ESTABLISHED", 1)
	m.Add("established", 2) // normalized key collides, last write to items wins

	v, ok := m.Lookup("Established")
	require.True(t, ok)
	assert.Equal(t, int64(2), v)

	name, ok := m.Name2(1)
	require.True(t, ok)
	assert.Equal(t, "ESTABLISHED", name)

	assert.True(t, m.Matches(1))
	assert.False(t, m.Matches(99))
}

func TestRendererMappedValuesRendersSymbolicName(t *testing.T) {
	iem := NewIEManager()
	require.NoError(t, iem.AddElement(InformationElement{Id: 6, Name: "protocolIdentifier", Constructor: NewUnsigned8}, 0, false))

	mp := NewMapping("protocols", false)
	mp.Add("tcp", 6)
	mp.Targets = []string{"iana:protocolIdentifier"}
	iem.mappings["iana:protocolIdentifier"] = []*Mapping{mp}

	ie, ok := iem.FindByID(0, 6)
	require.True(t, ok)

	f := DecodedField{Key: FieldKey{EnterpriseId: 0, Id: 6}, IE: ie, Value: NewUnsigned8().SetValue(uint8(6))}

	rn := NewRenderer(MappedValues)
	rn.IEM = iem
	buf := NewBuffer(32)
	require.NoError(t, rn.renderValue(buf, &f))
	assert.Equal(t, `"tcp"`, string(buf.Bytes()))
}

func TestRendererMappedValuesFallsBackWithoutMatch(t *testing.T) {
	iem := NewIEManager()
	require.NoError(t, iem.AddElement(InformationElement{Id: 6, Name: "protocolIdentifier", Constructor: NewUnsigned8}, 0, false))
	ie, _ := iem.FindByID(0, 6)

	f := DecodedField{Key: FieldKey{EnterpriseId: 0, Id: 6}, IE: ie, Value: NewUnsigned8().SetValue(uint8(17))}

	rn := NewRenderer(MappedValues)
	rn.IEM = iem
	buf := NewBuffer(32)
	require.NoError(t, rn.renderValue(buf, &f))
	assert.Equal(t, "17", string(buf.Bytes()))
}
