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
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

var subTemplateListHeaderLength uint16 = 1 + 2 // semantic(1) + templateId(2)

// SubTemplateList implements RFC 6313's subTemplateList structured data type
// (spec §4.7): a semantic, a template id, and a run of Data Records all
// sharing that template, looked up in the Snapshot injected by
// decodeFieldValue.
type SubTemplateList struct {
	semantic   ListSemantic
	templateId uint16
	length     uint16

	value []*DataRecord

	iem          *IEManager
	snp          *Snapshot
	reportMissing bool
}

func NewDefaultSubTemplateList() DataType {
	return &SubTemplateList{semantic: SemanticUndefined}
}

func (t *SubTemplateList) setIEManager(m *IEManager)   { t.iem = m }
func (t *SubTemplateList) setSnapshot(s *Snapshot)     { t.snp = s }
func (t *SubTemplateList) setReportMissing(v bool)     { t.reportMissing = v }

func (t *SubTemplateList) String() string {
	drs := make([]string, 0, len(t.value))
	for _, dr := range t.value {
		drs = append(drs, fmt.Sprintf("%v", dr.Fields))
	}
	return fmt.Sprintf("subTemplateList(%d,%s){%s}", t.templateId, t.semantic, strings.Join(drs, " "))
}

func (t *SubTemplateList) Type() string { return "subTemplateList" }

func (t *SubTemplateList) Value() interface{} { return t.value }

func (t *SubTemplateList) SetValue(v any) DataType {
	b, ok := v.([]*DataRecord)
	if !ok {
		panic(fmt.Errorf("%T cannot be asserted to %T", v, t.value))
	}
	t.value = b
	return t
}

func (t *SubTemplateList) Length() uint16 {
	return t.length
}

func (*SubTemplateList) DefaultLength() uint16 {
	return subTemplateListHeaderLength
}

func (t *SubTemplateList) Clone() DataType {
	vs := make([]*DataRecord, len(t.value))
	copy(vs, t.value)
	return &SubTemplateList{
		value:         vs,
		semantic:      t.semantic,
		templateId:    t.templateId,
		length:        t.length,
		iem:           t.iem,
		snp:           t.snp,
		reportMissing: t.reportMissing,
	}
}

func (t *SubTemplateList) WithLength(length uint16) DataTypeConstructor {
	return func() DataType {
		return &SubTemplateList{length: length, semantic: SemanticUndefined}
	}
}

func (t *SubTemplateList) SetLength(length uint16) DataType {
	t.length = length
	return t
}

func (*SubTemplateList) IsReducedLength() bool { return false }

func (t *SubTemplateList) Semantic() ListSemantic { return t.semantic }

func (t *SubTemplateList) SetSemantic(s ListSemantic) *SubTemplateList {
	t.semantic = s
	return t
}

func (t *SubTemplateList) TemplateID() uint16 { return t.templateId }

func (t *SubTemplateList) Elements() []*DataRecord { return t.value }

func (t *SubTemplateList) Decode(r io.Reader) (n int, err error) {
	b := make([]byte, 1)
	m, err := io.ReadFull(r, b)
	n += m
	if err != nil {
		return n, errInsufficientBuffer("subTemplateList: failed to read semantic: %v", err)
	}
	t.semantic = ListSemantic(b[0])

	b = make([]byte, 2)
	m, err = io.ReadFull(r, b)
	n += m
	if err != nil {
		return n, errInsufficientBuffer("subTemplateList: failed to read template id: %v", err)
	}
	t.templateId = binary.BigEndian.Uint16(b)

	t.value = make([]*DataRecord, 0)
	if t.length <= subTemplateListHeaderLength {
		return n, nil
	}
	bodyLen := t.length - subTemplateListHeaderLength

	body := make([]byte, bodyLen)
	m, err = io.ReadFull(r, body)
	n += m
	if err != nil {
		return n, errInvalidData("subTemplateList: body of %d bytes overruns buffer: %v", bodyLen, err)
	}

	tmpl, ok := t.lookupTemplate()
	if !ok {
		if t.reportMissing {
			return n, errNotFound("subTemplateList: template %d not present in snapshot", t.templateId)
		}
		return n, nil
	}

	buf := bytes.NewReader(body)
	for buf.Len() > 0 {
		dr, consumed, derr := DecodeDataRecord(buf, tmpl, t.snp, t.iem, UnknownSkip)
		if derr != nil {
			return n, errFormat("subTemplateList: decoding nested record: %v", derr)
		}
		if consumed == 0 {
			break
		}
		t.value = append(t.value, dr)
	}

	return n, nil
}

func (t *SubTemplateList) lookupTemplate() (*Template, bool) {
	if t.snp == nil {
		return nil, false
	}
	return t.snp.Get(t.templateId)
}

func (t *SubTemplateList) Encode(w io.Writer) (n int, err error) {
	b := make([]byte, 0, 3)
	b = append(b, byte(t.semantic))
	b = binary.BigEndian.AppendUint16(b, t.templateId)
	n, err = w.Write(b)
	if err != nil {
		return
	}
	for _, dr := range t.value {
		for _, f := range dr.Fields {
			fn, ferr := f.Value.Encode(w)
			n += fn
			if ferr != nil {
				return n, ferr
			}
		}
	}
	return n, nil
}

type subTemplateListMetadata struct {
	Semantic   ListSemantic `json:"semantic" yaml:"semantic"`
	TemplateId uint16       `json:"template_id" yaml:"templateId"`
}

type marshalledSubTemplateList struct {
	Metadata subTemplateListMetadata `json:"metadata" yaml:"metadata"`
	Records  []*DataRecord           `json:"records" yaml:"records"`
}

func (t *SubTemplateList) MarshalJSON() ([]byte, error) {
	return json.Marshal(marshalledSubTemplateList{
		Metadata: subTemplateListMetadata{Semantic: t.semantic, TemplateId: t.templateId},
		Records:  t.value,
	})
}

func (t *SubTemplateList) UnmarshalJSON(in []byte) error {
	tt := marshalledSubTemplateList{}
	if err := json.Unmarshal(in, &tt); err != nil {
		return err
	}
	t.value = tt.Records
	t.templateId = tt.Metadata.TemplateId
	t.semantic = tt.Metadata.Semantic
	return nil
}

var _ DataType = &SubTemplateList{}
var _ DataTypeConstructor = NewDefaultSubTemplateList
var _ templateListDataType = &SubTemplateList{}
