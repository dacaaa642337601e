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

// VarLen is the sentinel declared length/offset meaning "variable" (spec
// §3.5/§3.6): 0xFFFF for a field's declared length, and equally used for the
// computed record offset once a variable field has been seen.
const VarLen uint16 = 0xFFFF

// TemplateFieldFlag is a bitset of per-field flags computed during template
// parsing (spec §3.6).
type TemplateFieldFlag uint16

const (
	FlagScope TemplateFieldFlag = 1 << iota
	FlagLastIE
	FlagMultiIE
	FlagReverse
	FlagBKey // "biflow key"
	FlagStruct
	FlagFKey
)

func (f TemplateFieldFlag) Has(bit TemplateFieldFlag) bool { return f&bit != 0 }

// TemplateField is one parsed field of a Template (spec §3.6): wire id/en,
// declared length, computed offset inside a record, derived flags, and a
// (nullable) pointer to the field's IE definition, set by IEManager lookup.
type TemplateField struct {
	Id     uint16
	En     uint32
	Length uint16 // VarLen sentinel for variable-length fields

	// Offset is the byte offset of this field within a conforming data
	// record; VarLen once any preceding field is variable-length.
	Offset uint16

	Flags TemplateFieldFlag

	// IE is the field's Information Element definition, nil until resolved
	// against an IEManager (spec §3.6: "nullable; set from IEM").
	IE *InformationElement
}

func (f *TemplateField) Key() FieldKey {
	return FieldKey{EnterpriseId: f.En, Id: f.Id}
}

func (f *TemplateField) IsVariable() bool {
	return f.Length == VarLen
}
