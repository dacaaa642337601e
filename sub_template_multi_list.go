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

// subTemplateMultiListBlock is one (templateId, records) block of a
// subTemplateMultiList. Block and record iteration are independent (spec
// §4.7): a caller inspecting Blocks can skip a block without decoding its
// Records.
type subTemplateMultiListBlock struct {
	TemplateId uint16        `json:"template_id" yaml:"templateId"`
	Length     uint16        `json:"length" yaml:"length"`
	Records    []*DataRecord `json:"records" yaml:"records"`
}

func (b *subTemplateMultiListBlock) String() string {
	drs := make([]string, 0, len(b.Records))
	for _, dr := range b.Records {
		drs = append(drs, fmt.Sprintf("%v", dr.Fields))
	}
	return fmt.Sprintf("block(%d/%d)[%s]", b.TemplateId, b.Length, strings.Join(drs, " "))
}

func (b *subTemplateMultiListBlock) clone() subTemplateMultiListBlock {
	vs := make([]*DataRecord, len(b.Records))
	copy(vs, b.Records)
	return subTemplateMultiListBlock{TemplateId: b.TemplateId, Length: b.Length, Records: vs}
}

// SubTemplateMultiList implements RFC 6313's subTemplateMultiList structured
// data type (spec §4.7): a semantic followed by repeated
// (templateId, blockLength, records) blocks, each possibly a different
// template.
type SubTemplateMultiList struct {
	semantic ListSemantic
	length   uint16

	blocks []subTemplateMultiListBlock

	iem           *IEManager
	snp           *Snapshot
	reportMissing bool
}

func NewDefaultSubTemplateMultiList() DataType {
	return &SubTemplateMultiList{semantic: SemanticUndefined}
}

func (t *SubTemplateMultiList) setIEManager(m *IEManager) { t.iem = m }
func (t *SubTemplateMultiList) setSnapshot(s *Snapshot)   { t.snp = s }
func (t *SubTemplateMultiList) setReportMissing(v bool)   { t.reportMissing = v }

func (t *SubTemplateMultiList) String() string {
	bs := make([]string, 0, len(t.blocks))
	for _, b := range t.blocks {
		bs = append(bs, b.String())
	}
	return fmt.Sprintf("subTemplateMultiList(%s)[%s]", t.semantic, strings.Join(bs, " "))
}

func (t *SubTemplateMultiList) Type() string { return "subTemplateMultiList" }

func (t *SubTemplateMultiList) Value() interface{} { return t.blocks }

func (t *SubTemplateMultiList) SetValue(v any) DataType {
	b, ok := v.([]subTemplateMultiListBlock)
	if !ok {
		panic(fmt.Errorf("%T cannot be asserted to %T", v, t.blocks))
	}
	t.blocks = b
	return t
}

func (t *SubTemplateMultiList) Length() uint16 {
	var length uint16 = 1 // semantic
	for _, b := range t.blocks {
		length += 4 + b.Length
	}
	return length
}

func (*SubTemplateMultiList) DefaultLength() uint16 { return 1 }

func (t *SubTemplateMultiList) Clone() DataType {
	vs := make([]subTemplateMultiListBlock, len(t.blocks))
	for i, b := range t.blocks {
		vs[i] = b.clone()
	}
	return &SubTemplateMultiList{
		semantic:      t.semantic,
		length:        t.length,
		blocks:        vs,
		iem:           t.iem,
		snp:           t.snp,
		reportMissing: t.reportMissing,
	}
}

func (t *SubTemplateMultiList) WithLength(length uint16) DataTypeConstructor {
	return func() DataType {
		return &SubTemplateMultiList{length: length, semantic: SemanticUndefined}
	}
}

func (t *SubTemplateMultiList) SetLength(length uint16) DataType {
	t.length = length
	return t
}

func (*SubTemplateMultiList) IsReducedLength() bool { return false }

func (t *SubTemplateMultiList) Semantic() ListSemantic { return t.semantic }

func (t *SubTemplateMultiList) SetSemantic(s ListSemantic) *SubTemplateMultiList {
	t.semantic = s
	return t
}

func (t *SubTemplateMultiList) Blocks() []subTemplateMultiListBlock { return t.blocks }

func (t *SubTemplateMultiList) Decode(r io.Reader) (n int, err error) {
	b := make([]byte, 1)
	m, err := io.ReadFull(r, b)
	n += m
	if err != nil {
		return n, errInsufficientBuffer("subTemplateMultiList: failed to read semantic: %v", err)
	}
	t.semantic = ListSemantic(b[0])

	if t.length <= 1 {
		return n, nil
	}
	body := make([]byte, t.length-1)
	m, err = io.ReadFull(r, body)
	n += m
	if err != nil {
		return n, errInvalidData("subTemplateMultiList: body overruns buffer: %v", err)
	}
	listBuffer := bytes.NewReader(body)

	for listBuffer.Len() > 0 {
		if listBuffer.Len() < 4 {
			return n, errFormat("subTemplateMultiList: %d trailing bytes too short for a block header", listBuffer.Len())
		}
		hdr := make([]byte, 4)
		_, _ = io.ReadFull(listBuffer, hdr)
		templateId := binary.BigEndian.Uint16(hdr[0:2])
		blockLength := binary.BigEndian.Uint16(hdr[2:4])

		if listBuffer.Len() < int(blockLength) {
			return n, errFormat("subTemplateMultiList: block %d declares length %d, only %d bytes remain", templateId, blockLength, listBuffer.Len())
		}
		blockBytes := make([]byte, blockLength)
		_, _ = io.ReadFull(listBuffer, blockBytes)

		block := subTemplateMultiListBlock{TemplateId: templateId, Length: blockLength}

		tmpl, ok := t.lookupTemplate(templateId)
		if !ok {
			if t.reportMissing {
				return n, errNotFound("subTemplateMultiList: template %d not present in snapshot", templateId)
			}
			t.blocks = append(t.blocks, block)
			continue
		}

		blockBuf := bytes.NewReader(blockBytes)
		for blockBuf.Len() > 0 {
			dr, consumed, derr := DecodeDataRecord(blockBuf, tmpl, t.snp, t.iem, UnknownSkip)
			if derr != nil {
				return n, errFormat("subTemplateMultiList: block %d: decoding nested record: %v", templateId, derr)
			}
			if consumed == 0 {
				break
			}
			block.Records = append(block.Records, dr)
		}
		t.blocks = append(t.blocks, block)
	}

	return n, nil
}

func (t *SubTemplateMultiList) lookupTemplate(id uint16) (*Template, bool) {
	if t.snp == nil {
		return nil, false
	}
	return t.snp.Get(id)
}

func (t *SubTemplateMultiList) Encode(w io.Writer) (n int, err error) {
	m, err := w.Write([]byte{byte(t.semantic)})
	n += m
	if err != nil {
		return
	}
	for _, block := range t.blocks {
		hdr := make([]byte, 0, 4)
		hdr = binary.BigEndian.AppendUint16(hdr, block.TemplateId)
		hdr = binary.BigEndian.AppendUint16(hdr, block.Length)
		hn, herr := w.Write(hdr)
		n += hn
		if herr != nil {
			return n, herr
		}
		for _, dr := range block.Records {
			for _, f := range dr.Fields {
				fn, ferr := f.Value.Encode(w)
				n += fn
				if ferr != nil {
					return n, ferr
				}
			}
		}
	}
	return n, nil
}

type subTemplateMultiListMetadata struct {
	Semantic ListSemantic `json:"semantic" yaml:"semantic"`
}

type marshalledSubTemplateMultiList struct {
	Metadata subTemplateMultiListMetadata `json:"metadata" yaml:"metadata"`
	Blocks   []subTemplateMultiListBlock  `json:"blocks,omitempty" yaml:"blocks"`
}

func (t *SubTemplateMultiList) MarshalJSON() ([]byte, error) {
	return json.Marshal(marshalledSubTemplateMultiList{
		Metadata: subTemplateMultiListMetadata{Semantic: t.semantic},
		Blocks:   t.blocks,
	})
}

func (t *SubTemplateMultiList) UnmarshalJSON(in []byte) error {
	s := &marshalledSubTemplateMultiList{}
	if err := json.Unmarshal(in, s); err != nil {
		return err
	}
	t.blocks = s.Blocks
	t.semantic = s.Metadata.Semantic
	return nil
}

var _ DataType = &SubTemplateMultiList{}
var _ DataTypeConstructor = NewDefaultSubTemplateMultiList
var _ templateListDataType = &SubTemplateMultiList{}
