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

// maxRecordSize is the IPFIX maximum record size (spec §8 boundary
// behaviour: 65515 B, one field of that length succeeds, 65516 fails).
const maxRecordSize = 65515

// maxFieldsPerSet bounds the number of 4-byte template fields that fit a
// single Set (spec §8: 16370 fields fit, 16371 fails Format).
const maxFieldsPerSet = 16370

const penBit uint16 = 0x8000

// ParseTemplate parses one wire template starting at the beginning of b
// (spec §4.3). typ selects DATA or OPTIONS parsing; setId is the enclosing
// Set's id, used to validate all-withdrawal template ids. Returns the
// Template and the number of bytes consumed from b.
func ParseTemplate(b []byte, typ TemplateType, setId uint16) (*Template, int, error) {
	if len(b) < 4 {
		return nil, 0, errFormat("template header truncated")
	}
	id := binary.BigEndian.Uint16(b[0:2])
	fieldCount := binary.BigEndian.Uint16(b[2:4])
	pos := 4

	t := &Template{Id: id, Type: typ, FieldCount: fieldCount}

	if fieldCount == 0 {
		// withdrawal; field count 0 denotes withdrawal (spec §4.3/§4.5).
		// id == setId is the reserved "all withdrawal" id (must appear alone
		// in its Set, enforced by the SET walker); any other id must be an
		// individual withdrawal of a previously-defined template, id >= 256.
		if id != setId && id < 256 {
			return nil, pos, errFormat("individual withdrawal template id %d must be >= 256", id)
		}
		t.Raw = append([]byte(nil), b[:pos]...)
		return t, pos, nil
	}

	if id < 256 {
		return nil, pos, errFormat("template id %d is reserved, must be >= 256 for a definition", id)
	}

	if typ == TemplateOptions {
		if len(b) < pos+2 {
			return nil, pos, errFormat("options template header truncated")
		}
		scopeCount := binary.BigEndian.Uint16(b[pos : pos+2])
		pos += 2
		if scopeCount == 0 || scopeCount > fieldCount {
			return nil, pos, errFormat("options template scope count %d invalid for field count %d", scopeCount, fieldCount)
		}
		t.ScopeFieldCount = scopeCount
	}

	if fieldCount > maxFieldsPerSet {
		return nil, pos, errFormat("template declares %d fields, exceeds %d-field Set limit", fieldCount, maxFieldsPerSet)
	}

	fields := make([]TemplateField, 0, fieldCount)
	for i := 0; i < int(fieldCount); i++ {
		if len(b) < pos+4 {
			return nil, pos, errFormat("template field %d truncated", i)
		}
		rawId := binary.BigEndian.Uint16(b[pos : pos+2])
		length := binary.BigEndian.Uint16(b[pos+2 : pos+4])
		pos += 4

		fid := rawId &^ penBit
		var en uint32
		if rawId&penBit != 0 {
			if len(b) < pos+4 {
				return nil, pos, errFormat("template field %d enterprise number truncated", i)
			}
			en = binary.BigEndian.Uint32(b[pos : pos+4])
			pos += 4
		}

		fields = append(fields, TemplateField{Id: fid, En: en, Length: length})
	}

	t.Fields = fields
	t.Raw = append([]byte(nil), b[:pos]...)

	if err := calcFeatures(t); err != nil {
		return nil, pos, err
	}
	if t.Type == TemplateOptions {
		t.Opts = optsDetector(t)
	}

	return t, pos, nil
}

// calcFeatures computes SCOPE/LAST_IE/MULTI_IE flags, per-field offsets,
// total DataLength, and the template-level MULTI_IE/DYNAMIC features (spec
// §4.3 "Post-processing").
func calcFeatures(t *Template) error {
	for i := range t.Fields {
		if i < int(t.ScopeFieldCount) {
			t.Fields[i].Flags |= FlagScope
		}
	}

	// LAST_IE/MULTI_IE: scan from the end, tracking (en,id) occurrences. The
	// spec names a 64-bit bloom screen on id%64 as an optimisation to skip
	// scans when no collision is possible; with at most maxFieldsPerSet
	// fields, a plain map is equivalent in behaviour and this implementation
	// uses one directly rather than reproducing the bloom-filter micro-
	// optimisation.
	seen := make(map[FieldKey]bool, len(t.Fields))
	dup := make(map[FieldKey]bool)
	for i := len(t.Fields) - 1; i >= 0; i-- {
		k := t.Fields[i].Key()
		if seen[k] {
			dup[k] = true
			t.Fields[i].Flags |= FlagMultiIE
		} else {
			seen[k] = true
			t.Fields[i].Flags |= FlagLastIE
		}
	}
	for i := range t.Fields {
		if dup[t.Fields[i].Key()] {
			t.Fields[i].Flags |= FlagMultiIE
			t.Features |= FeatureMultiIE
		}
	}

	var offset uint16
	dynamic := false
	var total uint32
	for i := range t.Fields {
		f := &t.Fields[i]
		if dynamic {
			f.Offset = VarLen
		} else {
			f.Offset = offset
		}
		if f.IsVariable() {
			dynamic = true
			total += 1 // VAR fields count a 1-byte minimum
		} else {
			offset += f.Length
			total += uint32(f.Length)
		}
	}
	if dynamic {
		t.Features |= FeatureDynamic
		t.DataLength = VarLen
	} else {
		t.DataLength = offset
	}

	if total > maxRecordSize {
		return errFormat("template %d: total field length %d exceeds maximum record size %d", t.Id, total, maxRecordSize)
	}

	return nil
}

// optsDetector classifies Options Template shapes structurally, per spec
// §4.3's table. Per SPEC_FULL §C.4 (grounded on
// original_source/template_mgr/template.c's fds_template_flags), each shape
// is an independent, additive predicate: a new shape is a new function, not
// a rewrite of an existing one.
func optsDetector(t *Template) OptsType {
	var o OptsType
	if detectMProcStat(t) {
		o |= OptsMProcStat
	}
	if detectMProcReliabilityStat(t) {
		o |= OptsMProcReliabilityStat
	}
	if detectEProcReliabilityStat(t) {
		o |= OptsEProcReliabilityStat
	}
	if detectFKeys(t) {
		o |= OptsFKeys
	}
	if detectIEType(t) {
		o |= OptsIEType
	}
	return o
}

func hasLastIEScope(t *Template, ids ...uint16) bool {
	idSet := make(map[uint16]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	found := 0
	for _, f := range t.Fields[:t.ScopeFieldCount] {
		if f.En == 0 && idSet[f.Id] {
			if !f.Flags.Has(FlagLastIE) {
				return false
			}
			found++
		}
	}
	return found > 0
}

func hasNonScope(t *Template, en uint32, id uint16) bool {
	for _, f := range t.Fields[t.ScopeFieldCount:] {
		if f.En == en && f.Id == id {
			return true
		}
	}
	return false
}

func countNonScopeAny(t *Template, ids ...uint16) int {
	idSet := make(map[uint16]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	n := 0
	for _, f := range t.Fields[t.ScopeFieldCount:] {
		if f.En == 0 && idSet[f.Id] {
			n++
		}
	}
	return n
}

// detectMProcStat matches {observationDomainId, meteringProcessId} scope
// (single or paired, each LAST_IE) with exported{Octet,Message,FlowRecord}TotalCount.
func detectMProcStat(t *Template) bool {
	if !hasLastIEScope(t, 149, 143) {
		return false
	}
	return hasNonScope(t, 0, 40) && hasNonScope(t, 0, 41) && hasNonScope(t, 0, 42)
}

// detectMProcReliabilityStat matches the same scope plus ignored{Packet,Octet}TotalCount
// and exactly two observationTime* IEs (322-325).
func detectMProcReliabilityStat(t *Template) bool {
	if !hasLastIEScope(t, 149, 143) {
		return false
	}
	if !hasNonScope(t, 0, 164) || !hasNonScope(t, 0, 165) {
		return false
	}
	return countNonScopeAny(t, 322, 323, 324, 325) == 2
}

// detectEProcReliabilityStat matches one LAST_IE scope of
// {exporterIPv4Address, exporterIPv6Address, exportingProcessId} with
// notSent{Flow,Packet,Octet}TotalCount and two observationTime* IEs.
func detectEProcReliabilityStat(t *Template) bool {
	if !hasLastIEScope(t, 130, 131, 144) {
		return false
	}
	if !hasNonScope(t, 0, 166) || !hasNonScope(t, 0, 167) || !hasNonScope(t, 0, 168) {
		return false
	}
	return countNonScopeAny(t, 322, 323, 324, 325) == 2
}

// detectFKeys matches templateId(145) as sole scope with flowKeyIndicator(173).
func detectFKeys(t *Template) bool {
	if t.ScopeFieldCount != 1 || t.Fields[0].En != 0 || t.Fields[0].Id != 145 {
		return false
	}
	return hasNonScope(t, 0, 173)
}

// detectIEType matches privateEnterpriseNumber(346) and informationElementId(303)
// as scopes with informationElementDataType(339), informationElementSemantics(344),
// informationElementName(341).
func detectIEType(t *Template) bool {
	hasPEN, hasID := false, false
	for _, f := range t.Fields[:t.ScopeFieldCount] {
		if f.En == 0 && f.Id == 346 {
			hasPEN = true
		}
		if f.En == 0 && f.Id == 303 {
			hasID = true
		}
	}
	if !hasPEN || !hasID {
		return false
	}
	return hasNonScope(t, 0, 339) && hasNonScope(t, 0, 344) && hasNonScope(t, 0, 341)
}
