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

// Mapping is a named keyed lookup table (string key -> integer value),
// attached to one or more IEs (directly or via an Alias), used to render
// enumerated values symbolically (spec §3.4).
type Mapping struct {
	Name string

	// CaseSensitive controls key comparison in Lookup.
	CaseSensitive bool

	// Targets are the IE field keys or alias names this mapping applies to.
	Targets []string

	items map[string]int64
	// reverse supports rendering an integer value back to its symbolic key.
	reverse map[int64]string
}

func NewMapping(name string, caseSensitive bool) *Mapping {
	return &Mapping{
		Name:          name,
		CaseSensitive: caseSensitive,
		items:         map[string]int64{},
		reverse:       map[int64]string{},
	}
}

func (m *Mapping) normalize(key string) string {
	if m.CaseSensitive {
		return key
	}
	return strings.ToLower(key)
}

func (m *Mapping) Add(key string, value int64) {
	if m.items == nil {
		m.items = map[string]int64{}
		m.reverse = map[int64]string{}
	}
	m.items[m.normalize(key)] = value
	if _, exists := m.reverse[value]; !exists {
		m.reverse[value] = key
	}
}

// Lookup returns the integer value mapped to key and whether it was found.
func (m *Mapping) Lookup(key string) (int64, bool) {
	v, ok := m.items[m.normalize(key)]
	return v, ok
}

// Name2 renders an integer value back to its first-registered symbolic key.
func (m *Mapping) Name2(value int64) (string, bool) {
	s, ok := m.reverse[value]
	return s, ok
}

// Matches reports whether value equals any mapping entry, used for AnyOf
// alias resolution against a mapping (spec §3.3/§3.4, SPEC_FULL §C.1).
func (m *Mapping) Matches(value int64) bool {
	_, ok := m.reverse[value]
	return ok
}
