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

import "strings"

// AliasMode is the resolution mode of an Alias's source list (spec §3.3).
type AliasMode uint8

const (
	// FirstOf resolves to the value of the first source IE that is present
	// in the record being examined, not merely the first declared (SPEC_FULL
	// §C.1, grounded on original_source/iemgr_alias.cpp).
	FirstOf AliasMode = iota
	// AnyOf is used in mapping lookups: any of the aliased IEs' values
	// matching a mapping key counts as a hit (SPEC_FULL §C.1).
	AnyOf
)

func ParseAliasMode(s string) AliasMode {
	if s == "anyOf" {
		return AnyOf
	}
	return FirstOf
}

func (m AliasMode) String() string {
	if m == AnyOf {
		return "anyOf"
	}
	return "firstOf"
}

// aliasPrefixes is the closed set of space-separated direction qualifiers
// alias names accept as a prefix (spec §3.3).
var aliasPrefixes = map[string]struct{}{
	"in": {}, "out": {}, "ingress": {}, "egress": {}, "src": {}, "dst": {},
}

// Alias is a logical name mapped to a list of source Information Elements
// with a resolution mode (spec §3.3).
type Alias struct {
	Name    string
	Mode    AliasMode
	Sources []FieldKey
}

// SplitAliasName splits a qualified alias name ("src flowStartMilliseconds")
// into its direction prefix (empty if none) and base alias name.
func SplitAliasName(name string) (prefix string, base string) {
	parts := strings.SplitN(name, " ", 2)
	if len(parts) == 2 {
		if _, ok := aliasPrefixes[parts[0]]; ok {
			return parts[0], parts[1]
		}
	}
	return "", name
}

// Resolve picks the value-bearing field among the alias's source IEs out of
// a set of fields present in a record, per the alias's mode. present is keyed
// by FieldKey and contains only fields actually carried by the record
// (DataRecord.Present(), spec §3.9).
//
// FirstOf returns the first source (in declared order) that is present.
// AnyOf returns every present source, letting the caller test each against a
// Mapping (spec §3.4, SPEC_FULL §C.1).
func (a *Alias) Resolve(present map[FieldKey]*DecodedField) []*DecodedField {
	switch a.Mode {
	case AnyOf:
		out := make([]*DecodedField, 0, len(a.Sources))
		for _, src := range a.Sources {
			if f, ok := present[src]; ok {
				out = append(out, f)
			}
		}
		return out
	default: // FirstOf
		for _, src := range a.Sources {
			if f, ok := present[src]; ok {
				return []*DecodedField{f}
			}
		}
		return nil
	}
}
