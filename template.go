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

import "sync/atomic"

type TemplateType uint8

const (
	TemplateData TemplateType = iota
	TemplateOptions
)

// TemplateFeature is the per-template bitset of spec §3.5.
type TemplateFeature uint8

const (
	FeatureMultiIE TemplateFeature = 1 << iota
	FeatureDynamic
	FeatureBiflow
	FeatureStruct
	FeatureFKey
)

func (f TemplateFeature) Has(bit TemplateFeature) bool { return f&bit != 0 }

// OptsType is the bitset of structurally-detected Options Template shapes
// (spec §4.3's opts_detector table). Multiple bits may be set simultaneously.
type OptsType uint8

const (
	OptsMProcStat OptsType = 1 << iota
	OptsMProcReliabilityStat
	OptsEProcReliabilityStat
	OptsFKeys
	OptsIEType
)

func (o OptsType) Has(bit OptsType) bool { return o&bit != 0 }

// Template is a schema record mapping field positions in a Data Record to
// (en, id, length) triples (spec §3.5). Templates are created by the
// template parser (TPL) and owned by the Template Manager (TM), which
// reference-counts them across snapshots (spec §3.7, §9 "Snapshot sharing").
type Template struct {
	Id   uint16
	Type TemplateType

	FieldCount      uint16
	ScopeFieldCount uint16 // OPTIONS only

	Fields []TemplateField

	// DataLength is the byte length of a fixed-size record, or VarLen if any
	// field is variable-length (spec §3.5).
	DataLength uint16

	Features TemplateFeature
	Opts     OptsType

	// FKeyMask is the flow-key bit mask attached via TemplateSetFKey (spec
	// §4.4); bit i corresponds to Fields[i].
	FKeyMask uint64

	// Raw is the verbatim wire bytes of the template record, preserved for
	// round-tripping (spec §3.5, §8 "round-trip" invariant).
	Raw []byte

	// FieldsRev is the reverse-view field array, materialised only when the
	// template carries biflow IEs (spec §3.5, §9 "Biflow discovery").
	FieldsRev []TemplateField

	// FirstSeen/LastSeen track refresh semantics per transport class (spec
	// §4.4 scenario 5).
	FirstSeen int64
	LastSeen  int64

	// refs is the reference count described in spec §9 "Snapshot sharing":
	// incremented per outstanding Snapshot and per the TM's own current
	// mapping entry; a template is only freed once refs drops to zero
	// (SPEC_FULL §C.3, grounded on original_source/template_mgr/template.c's
	// refcount fields).
	refs int32
}

func (t *Template) retain() { atomic.AddInt32(&t.refs, 1) }

// release returns the post-decrement refcount; none of its current callers
// use the returned value.
func (t *Template) release() int32 { return atomic.AddInt32(&t.refs, -1) }

// Clone deep-copies a Template, used when TM must retain the original while
// handing out a mutable working copy (e.g. before recomputing IE-derived
// flags via SetIEManager).
func (t *Template) Clone() *Template {
	c := *t
	c.Fields = append([]TemplateField(nil), t.Fields...)
	if t.FieldsRev != nil {
		c.FieldsRev = append([]TemplateField(nil), t.FieldsRev...)
	}
	c.Raw = append([]byte(nil), t.Raw...)
	c.refs = 0
	return &c
}

// FieldByKey returns the field matching en/id and its index, or ok=false.
func (t *Template) FieldByKey(en uint32, id uint16) (TemplateField, int, bool) {
	for i, f := range t.Fields {
		if f.En == en && f.Id == id {
			return f, i, true
		}
	}
	return TemplateField{}, -1, false
}
