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
	"io"
)

// RecordFlag controls what the Data Record iterator yields (spec §4.6).
type RecordFlag uint8

const (
	// UnknownSkip omits fields whose IE is not defined in the IEManager.
	UnknownSkip RecordFlag = 1 << iota
	// BiflowRev presents the reverse view: for biflow templates, substitute
	// the reverse field array, remapping source/destination keys.
	BiflowRev
	// ReverseSkip omits fields flagged REVERSE.
	ReverseSkip
	// ListReport makes subTemplateList/subTemplateMultiList report NotFound
	// when a nested template id is missing from the snapshot, instead of
	// silently ending iteration (spec §4.7).
	ListReport
)

func (f RecordFlag) Has(bit RecordFlag) bool { return f&bit != 0 }

// DecodedField is one decoded value of a Data Record: the wire key and
// template flags it carries, its IE definition if resolved, and the decoded
// DataType. Unknown == true when no IE was found and UnknownSkip was not
// set, in which case Value holds a raw octetArray fallback (grounded on
// original_source/ies_iter.c's unknown-IE fallback: undefined IEs decode as
// octetArray rather than failing the record).
type DecodedField struct {
	Key     FieldKey
	Name    string
	IE      *InformationElement
	Value   DataType
	Unknown bool
	Scope   bool

	// Invalid is true when Value.Decode reported an error against raw wire
	// bytes (e.g. an illegal boolean octet, RFC7011#section-6.1). The field
	// still carries whatever partial/zero value Decode left behind, but
	// renderers must treat it as unrepresentable rather than trust it (spec
	// §4.8/§8's "conversion failures appear as null").
	Invalid bool

	// Flags carries the template field's LAST_IE/MULTI_IE/SCOPE/REVERSE bits,
	// needed by the JSON renderer's field-aggregation rule (spec §4.8).
	Flags TemplateFieldFlag
}

// DataRecord is a decoded (bytes, template, snapshot) triple (spec §3.9).
type DataRecord struct {
	Template *Template
	Snapshot *Snapshot
	Fields   []DecodedField
	byKey    map[FieldKey]*DecodedField
	byName   map[string]*DecodedField
}

// DecodeDataRecord decodes one Data Record from r against t, resolving IEs
// through iem and applying flags (spec §4.6). Returns the record and the
// number of bytes consumed.
func DecodeDataRecord(r io.Reader, t *Template, snap *Snapshot, iem *IEManager, flags RecordFlag) (*DataRecord, int, error) {
	fields := t.Fields
	if flags.Has(BiflowRev) && t.Features.Has(FeatureBiflow) && t.FieldsRev != nil {
		fields = t.FieldsRev
	}

	dr := &DataRecord{
		Template: t,
		Snapshot: snap,
		byKey:    map[FieldKey]*DecodedField{},
		byName:   map[string]*DecodedField{},
	}

	consumed := 0
	for i := range fields {
		tf := &fields[i]

		length := tf.Length
		headerLen := 0
		if tf.IsVariable() {
			l, hlen, err := readVarLength(r)
			if err != nil {
				RECDecodeErrorsTotal.WithLabelValues(KindInsufficientBuffer.String()).Inc()
				Log.V(2).Info("truncated variable-length field header", "en", tf.En, "id", tf.Id, "error", err.Error())
				return dr, consumed, err
			}
			length = l
			headerLen = hlen
		}
		consumed += headerLen

		raw := make([]byte, length)
		if length > 0 {
			n, err := io.ReadFull(r, raw)
			consumed += n
			if err != nil {
				RECDecodeErrorsTotal.WithLabelValues(KindInvalidData.String()).Inc()
				Log.V(2).Info("field overruns record", "en", tf.En, "id", tf.Id, "declaredLength", length)
				return dr, consumed, errInvalidData("field %d: declared length %d overruns record: %v", tf.Id, length, err)
			}
		}

		if flags.Has(ReverseSkip) && tf.Flags.Has(FlagReverse) {
			continue
		}

		var ie *InformationElement
		if iem != nil {
			ie = tf.IE
			if ie == nil {
				ie, _ = iem.FindByID(tf.En, tf.Id)
			}
		}

		if ie == nil {
			if flags.Has(UnknownSkip) {
				continue
			}
			Log.V(2).Info("field has no registered IE, decoding as octetArray", "en", tf.En, "id", tf.Id, "length", length)
		}

		dt, derr := decodeFieldValue(ie, raw, iem, snap, flags)
		if derr != nil {
			RECDecodeErrorsTotal.WithLabelValues(KindInvalidData.String()).Inc()
			Log.V(2).Info("field failed to decode, marking invalid", "en", tf.En, "id", tf.Id, "error", derr.Error())
		}

		df := DecodedField{
			Key:     tf.Key(),
			IE:      ie,
			Value:   dt,
			Unknown: ie == nil,
			Scope:   tf.Flags.Has(FlagScope),
			Invalid: derr != nil,
			Flags:   tf.Flags,
		}
		if ie != nil {
			df.Name = ie.Name
		}
		dr.Fields = append(dr.Fields, df)
		RECFieldsDecodedTotal.Inc()
		Log.V(4).Info("decoded field", "en", tf.En, "id", tf.Id, "name", df.Name, "length", length)
	}

	for i := range dr.Fields {
		f := &dr.Fields[i]
		dr.byKey[f.Key] = f
		if f.Name != "" {
			dr.byName[f.Name] = f
		}
	}

	return dr, consumed, nil
}

// listDataType is implemented by the three RFC 6313 structured data types
// (BasicList, SubTemplateList, SubTemplateMultiList); decodeFieldValue
// injects the IEManager/Snapshot state their nested decoding needs, since
// the plain DataType.Decode(io.Reader) contract carries none (spec §4.7).
type listDataType interface {
	setIEManager(*IEManager)
	setSnapshot(*Snapshot)
}

// templateListDataType is additionally implemented by subTemplateList and
// subTemplateMultiList, which need the ListReport flag (spec §4.7).
type templateListDataType interface {
	listDataType
	setReportMissing(bool)
}

// decodeFieldValue constructs and decodes a DataType for raw according to
// ie's declared type, falling back to octetArray for undefined IEs
// (unknown IEs are not fatal). A
// non-nil error means raw did not parse as the IE's declared type (e.g. an
// out-of-range boolean octet); the caller marks the field Invalid rather than
// failing the whole record, so one bad field doesn't sink the rest (spec
// §4.8/§8).
func decodeFieldValue(ie *InformationElement, raw []byte, iem *IEManager, snap *Snapshot, flags RecordFlag) (DataType, error) {
	var dt DataType
	if ie != nil && ie.Constructor != nil {
		dt = ie.Constructor()
	} else {
		dt = NewOctetArray()
	}
	if l, ok := dt.(listDataType); ok {
		l.setIEManager(iem)
		l.setSnapshot(snap)
	}
	if tl, ok := dt.(templateListDataType); ok {
		tl.setReportMissing(flags.Has(ListReport))
	}
	dt = dt.SetLength(uint16(len(raw)))
	_, err := dt.Decode(bytes.NewReader(raw))
	return dt, err
}

// GetByKey returns the decoded field for (en, id), if present.
func (dr *DataRecord) GetByKey(en uint32, id uint16) (*DecodedField, bool) {
	f, ok := dr.byKey[FieldKey{EnterpriseId: en, Id: id}]
	return f, ok
}

// GetByName returns the decoded field matching a resolved IE name, if
// present (used by rfc5610's dynamic IE learning and JSON rendering).
func (dr *DataRecord) GetByName(name string) (*DecodedField, bool) {
	f, ok := dr.byName[name]
	return f, ok
}

// Present projects the record's fields into the map shape Alias.Resolve
// expects (spec §3.4).
func (dr *DataRecord) Present() map[FieldKey]*DecodedField {
	return dr.byKey
}

// ResolveAlias looks up name as an alias registered in iem and resolves it
// against this record's present fields (spec §3.3). Returns nil if no such
// alias exists. When none of its source IEs were carried by the record, a
// FirstOf alias yields nil and an AnyOf alias an empty slice.
func (dr *DataRecord) ResolveAlias(iem *IEManager, name string) []*DecodedField {
	if iem == nil {
		return nil
	}
	a, ok := iem.Alias(name)
	if !ok {
		return nil
	}
	return a.Resolve(dr.Present())
}
