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
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

var penMask = uint16(0x8000)

var basicListMinimumHeaderLength uint16 = 1 + 2 + 2 // semantic(1) + fieldId(2) + elementLength(2)

// BasicList implements RFC 6313's basicList structured data type (spec §4.7).
// Unlike the other DataType implementations, decoding a basicList requires
// resolving the element field id against an IEManager; decodeFieldValue
// injects one via setIEManager before Decode is invoked.
type BasicList struct {
	semantic ListSemantic

	fieldId      uint16
	isEnterprise bool
	pen          uint32

	elementLength uint16

	length uint16

	value []DataType

	iem *IEManager
	snp *Snapshot
}

func NewBasicList() DataType {
	return &BasicList{semantic: SemanticUndefined}
}

func (t *BasicList) setIEManager(m *IEManager) { t.iem = m }
func (t *BasicList) setSnapshot(s *Snapshot)   { t.snp = s }

func (t *BasicList) String() string {
	if t.value == nil {
		return "nil"
	}
	s := make([]string, len(t.value))
	for i, el := range t.value {
		s[i] = el.String()
	}
	return "[" + strings.Join(s, " ") + "]"
}

func (t *BasicList) Type() string {
	typ := ""
	if len(t.value) > 0 && t.value[0] != nil {
		typ = "<" + t.value[0].Type() + ">"
	}
	return "basicList" + typ
}

func (t *BasicList) Value() interface{} {
	return t.value
}

func (t *BasicList) SetValue(v any) DataType {
	b, ok := v.([]DataType)
	if !ok {
		panic(fmt.Errorf("%T cannot be asserted to %T", v, t.value))
	}
	t.value = b
	var l uint16
	for _, e := range b {
		l += e.Length()
	}
	t.length = l
	return t
}

func (t *BasicList) Length() uint16 {
	lh := basicListMinimumHeaderLength
	if t.isEnterprise {
		lh += 4
	}
	var length uint16
	for _, f := range t.value {
		length += f.Length()
	}
	return lh + length
}

func (t *BasicList) Clone() DataType {
	dv := make([]DataType, 0, len(t.value))
	for _, el := range t.value {
		dv = append(dv, el.Clone())
	}
	return &BasicList{
		value:         dv,
		semantic:      t.semantic,
		fieldId:       t.fieldId,
		isEnterprise:  t.isEnterprise,
		elementLength: t.elementLength,
		length:        t.length,
		pen:           t.pen,
		iem:           t.iem,
		snp:           t.snp,
	}
}

func (*BasicList) DefaultLength() uint16 {
	return 0
}

func (t *BasicList) WithLength(length uint16) DataTypeConstructor {
	return func() DataType {
		return &BasicList{length: length, semantic: SemanticUndefined}
	}
}

func (t *BasicList) SetLength(length uint16) DataType {
	t.length = length
	return t
}

func (*BasicList) IsReducedLength() bool {
	return false
}

func (t *BasicList) Decode(r io.Reader) (n int, err error) {
	var headerLength uint16 = basicListMinimumHeaderLength

	b := make([]byte, 1)
	m, err := io.ReadFull(r, b)
	n += m
	if err != nil {
		return n, errInsufficientBuffer("basicList: failed to read semantic: %v", err)
	}
	t.semantic = ListSemantic(b[0])

	b = make([]byte, 2)
	m, err = io.ReadFull(r, b)
	n += m
	if err != nil {
		return n, errInsufficientBuffer("basicList: failed to read field id: %v", err)
	}
	rawFieldId := binary.BigEndian.Uint16(b)
	fieldId := (^penMask) & rawFieldId
	t.fieldId = fieldId
	t.isEnterprise = rawFieldId >= penMask

	b = make([]byte, 2)
	m, err = io.ReadFull(r, b)
	n += m
	if err != nil {
		return n, errInsufficientBuffer("basicList: failed to read element length: %v", err)
	}
	t.elementLength = binary.BigEndian.Uint16(b)

	var enterpriseId uint32
	if t.isEnterprise {
		b = make([]byte, 4)
		m, err = io.ReadFull(r, b)
		n += m
		if err != nil {
			return n, errInsufficientBuffer("basicList: failed to read pen: %v", err)
		}
		enterpriseId = binary.BigEndian.Uint32(b)
		t.pen = enterpriseId
		if enterpriseId == ReversePEN && reversible(fieldId) {
			enterpriseId = 0
		}
		headerLength += 4
	}

	var ctor DataTypeConstructor
	if t.iem != nil {
		if ie, ok := t.iem.FindByID(enterpriseId, fieldId); ok && ie.Constructor != nil {
			ctor = ie.Constructor
		}
	}
	if ctor == nil {
		ctor = NewOctetArray
	}

	if t.length < headerLength {
		return n, errFormat("basicList: declared length %d shorter than header %d", t.length, headerLength)
	}
	remaining := t.length - headerLength

	t.value = make([]DataType, 0)
	var consumed uint16
	for consumed < remaining {
		el := ctor()
		elLen := t.elementLength
		if elLen == 0xFFFF {
			l, hlen, verr := readVarLength(r)
			if verr != nil {
				return n, verr
			}
			n += hlen
			consumed += uint16(hlen)
			elLen = l
		}
		el = el.SetLength(elLen)
		m, derr := el.Decode(r)
		n += m
		consumed += elLen
		if derr != nil {
			return n, errInvalidData("basicList: element %d: %v", len(t.value), derr)
		}
		t.value = append(t.value, el)
	}

	return n, nil
}

func (t *BasicList) Encode(w io.Writer) (n int, err error) {
	b := make([]byte, 0)
	b = append(b, byte(t.semantic))
	if t.isEnterprise {
		b = binary.BigEndian.AppendUint16(b, penMask|t.fieldId)
	} else {
		b = binary.BigEndian.AppendUint16(b, t.fieldId)
	}
	b = binary.BigEndian.AppendUint16(b, t.elementLength)
	if t.isEnterprise {
		b = binary.BigEndian.AppendUint32(b, t.pen)
	}

	n, err = w.Write(b)
	if err != nil {
		return
	}

	for _, el := range t.value {
		fn, err := el.Encode(w)
		n += fn
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (t *BasicList) Semantic() ListSemantic { return t.semantic }

func (t *BasicList) SetSemantic(s ListSemantic) *BasicList {
	t.semantic = s
	return t
}

func (t *BasicList) Elements() []DataType { return t.value }

// FieldID returns the (enterprise, id) pair of the basicList's declared
// element type, as read from its header (spec §4.7), for JSON field-id
// rendering (spec §4.8).
func (t *BasicList) FieldID() (en uint32, id uint16) {
	if t.isEnterprise {
		return t.pen, t.fieldId
	}
	return 0, t.fieldId
}

type basicListMetadata struct {
	Semantic ListSemantic `json:"semantic" yaml:"semantic"`
	FieldId  uint16       `json:"field_id" yaml:"fieldId"`
	Length   uint16       `json:"length,omitempty" yaml:"length,omitempty"`
	PEN      uint32       `json:"pen" yaml:"pen"`
}

type unmarshalledDataValue struct {
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
	Type  string `json:"type,omitempty" yaml:"type,omitempty"`
}

type unmarshalledBasicList struct {
	Metadata basicListMetadata       `json:"metadata" yaml:"metadata"`
	Elements []unmarshalledDataValue `json:"elements" yaml:"elements"`
}

func (t *BasicList) MarshalJSON() ([]byte, error) {
	ff := make([]unmarshalledDataValue, 0, len(t.value))
	for _, el := range t.value {
		ff = append(ff, unmarshalledDataValue{Value: el, Type: el.Type()})
	}
	return json.Marshal(unmarshalledBasicList{
		Metadata: basicListMetadata{
			Semantic: t.semantic,
			FieldId:  t.fieldId,
			Length:   t.Length(),
			PEN:      t.pen,
		},
		Elements: ff,
	})
}

type marshalledDataValue struct {
	Value json.RawMessage `json:"value,omitempty" yaml:"value,omitempty"`
	Type  string          `json:"type,omitempty" yaml:"type,omitempty"`
}

type marshalledBasicList struct {
	Metadata basicListMetadata     `json:"metadata" yaml:"metadata"`
	Elements []marshalledDataValue `json:"elements,omitempty" yaml:"elements,omitempty"`
}

func (t *BasicList) UnmarshalJSON(in []byte) error {
	ff := &marshalledBasicList{}
	if err := json.Unmarshal(in, ff); err != nil {
		return err
	}
	t.fieldId = ff.Metadata.FieldId
	t.pen = ff.Metadata.PEN
	if t.pen != 0 {
		t.isEnterprise = true
	}
	t.length = ff.Metadata.Length + basicListMinimumHeaderLength
	if t.isEnterprise {
		t.length += 4
	}
	t.semantic = ff.Metadata.Semantic

	fs := make([]DataType, 0, len(ff.Elements))
	for _, el := range ff.Elements {
		v := LookupConstructor(el.Type)()
		if err := v.UnmarshalJSON(el.Value); err != nil {
			return err
		}
		fs = append(fs, v)
	}
	t.value = fs
	return nil
}

var _ DataType = &BasicList{}
var _ DataTypeConstructor = NewBasicList
var _ listDataType = &BasicList{}
