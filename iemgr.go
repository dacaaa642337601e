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
	"embed"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

//go:embed hack/iana-elements.xml
var defaultRegistryFS embed.FS

// IEManager is the registry of Information Element definitions, keyed by
// (enterprise, id) and (scope-name, element-name), with scopes, aliases,
// value mappings and biflow/reverse-IE pairing (spec §4.2).
//
// IEManager is caller-owned and single-threaded, as are all mutable core
// types (spec §5); it is not safe for concurrent mutation.
type IEManager struct {
	lastErrHolder

	scopes map[uint32]*Scope
	// byName indexes elements by "scope:name" for find_by_name.
	byName map[string]*InformationElement

	aliases map[string]*Alias
	// mappings indexed by alias/element target name.
	mappings map[string][]*Mapping

	// loaded tracks the files read via LoadDir together with
	// the mtime observed at load time, for CompareTimestamps (SPEC_FULL §C.2).
	loaded map[string]time.Time
}

func NewIEManager() *IEManager {
	m := &IEManager{
		scopes:   map[uint32]*Scope{},
		byName:   map[string]*InformationElement{},
		aliases:  map[string]*Alias{},
		mappings: map[string][]*Mapping{},
		loaded:   map[string]time.Time{},
	}
	return m
}

// NewDefaultIEManager returns an IEManager pre-populated with the embedded
// default IANA registry (hack/iana-elements.xml). The CSV-embedded registry
// the teacher shipped (hack/ipfix-information-elements.csv) was not carried
// into this registry's source tree; the spec's own IE-loading mechanism is
// XML-based (§4.2/§6.4) so the default registry follows the same format
// (see DESIGN.md).
func NewDefaultIEManager() *IEManager {
	m := NewIEManager()
	f, err := defaultRegistryFS.Open("hack/iana-elements.xml")
	if err != nil {
		panic(err)
	}
	defer f.Close()
	scopes, err := ReadXMLElements(f)
	if err != nil {
		panic(err)
	}
	for _, s := range scopes {
		if err := m.registerScope(s); err != nil {
			panic(err)
		}
	}
	return m
}

func (m *IEManager) registerScope(s *Scope) error {
	if rev, err := s.materializeBiflow(); err != nil {
		m.setLastErr(err)
		return err
	} else if rev != nil {
		m.scopes[rev.PEN] = rev
		for _, ie := range rev.all() {
			m.byName[rev.Name+":"+ie.Name] = ie
		}
	}
	m.scopes[s.PEN] = s
	for _, ie := range s.all() {
		m.byName[s.Name+":"+ie.Name] = ie
	}
	return nil
}

// FindByID looks up an IE by (enterprise, id) in O(log n) (map-backed here;
// the asymptotic claim follows the scope's internal index).
func (m *IEManager) FindByID(en uint32, id uint16) (*InformationElement, bool) {
	s, ok := m.scopes[en]
	if !ok {
		IEMLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	ie := s.get(id)
	if ie == nil {
		IEMLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	IEMLookupsTotal.WithLabelValues("hit").Inc()
	return ie, true
}

// FindByName looks up an IE by "scope:element"; a bare name implies the iana
// scope. A name containing more than one ':' fails with InvalidName
// (returned as KindInvalidArg per the shared taxonomy, spec §4.2).
func (m *IEManager) FindByName(name string) (*InformationElement, error) {
	if strings.Count(name, ":") > 1 {
		err := errInvalidArg("malformed name %q: more than one ':'", name)
		m.setLastErr(err)
		return nil, err
	}
	key := name
	if !strings.Contains(name, ":") {
		key = "iana:" + name
	}
	ie, ok := m.byName[key]
	if !ok {
		IEMLookupsTotal.WithLabelValues("miss").Inc()
		err := errNotFound("no information element named %q", name)
		m.setLastErr(err)
		return nil, err
	}
	IEMLookupsTotal.WithLabelValues("hit").Inc()
	return ie, nil
}

// AddElement registers ie under the scope identified by en, creating the
// scope if it does not yet exist. If an element already occupies (en, id)
// and allowOverwrite is false, AddElement fails with Denied.
func (m *IEManager) AddElement(ie InformationElement, en uint32, allowOverwrite bool) error {
	s, ok := m.scopes[en]
	if !ok {
		s = NewScope(en, scopeNameFallback(en))
		m.scopes[en] = s
	}
	if existing := s.get(ie.Id); existing != nil && !allowOverwrite {
		err := errDenied("element (%d,%d) already defined and overwrite not permitted", en, ie.Id)
		m.setLastErr(err)
		return err
	}
	clone := ie.Clone()
	s.add(&clone)
	m.byName[s.Name+":"+clone.Name] = &clone
	m.setLastErr(nil)
	return nil
}

func scopeNameFallback(en uint32) string {
	if en == 0 {
		return "iana"
	}
	return "en" + strconv.FormatUint(uint64(en), 10)
}

// AddReverse registers newId, within the same scope as (en, id), as the
// reverse element of (en, id); used for BiflowIndividual scopes where
// reverse ids are assigned per-element rather than derived structurally
// (spec §4.2).
func (m *IEManager) AddReverse(en uint32, id uint16, newId uint16, allowOverwrite bool) error {
	s, ok := m.scopes[en]
	if !ok {
		err := errNotFound("no scope for enterprise %d", en)
		m.setLastErr(err)
		return err
	}
	fwd := s.get(id)
	if fwd == nil {
		err := errNotFound("no element (%d,%d)", en, id)
		m.setLastErr(err)
		return err
	}
	if existing := s.get(newId); existing != nil && !allowOverwrite {
		err := errDenied("element (%d,%d) already defined and overwrite not permitted", en, newId)
		m.setLastErr(err)
		return err
	}
	rev := fwd.Clone()
	rev.Id = newId
	rev.Name = reversedName(fwd.Name)
	rev.ReverseRef = &FieldKey{EnterpriseId: en, Id: id}
	fwd.ReverseRef = &FieldKey{EnterpriseId: en, Id: newId}
	s.add(&rev)
	m.byName[s.Name+":"+rev.Name] = &rev
	m.setLastErr(nil)
	return nil
}

// Remove removes both the forward element at (en, id) and, if present, its
// paired reverse element (spec §4.2: "removes both directions").
func (m *IEManager) Remove(en uint32, id uint16) error {
	s, ok := m.scopes[en]
	if !ok {
		err := errNotFound("no scope for enterprise %d", en)
		m.setLastErr(err)
		return err
	}
	ie := s.get(id)
	if ie == nil {
		err := errNotFound("no element (%d,%d)", en, id)
		m.setLastErr(err)
		return err
	}
	delete(s.elements, id)
	delete(m.byName, s.Name+":"+ie.Name)
	if ie.ReverseRef != nil {
		if rs, ok := m.scopes[ie.ReverseRef.EnterpriseId]; ok {
			if rev := rs.get(ie.ReverseRef.Id); rev != nil {
				delete(rs.elements, rev.Id)
				delete(m.byName, rs.Name+":"+rev.Name)
			}
		}
	}
	m.setLastErr(nil)
	return nil
}

// LoadDir reads <path>/system/elements/*.xml then <path>/user/elements/*.xml:
// system files define, user files may override only if overwriteScope is
// true (spec §4.2). Aliases and mappings are loaded from
// system/aliases.xml and system/mappings.xml. A path that cannot be stat'ed
// fails with NotFound; missing subdirectories or files beneath it are skipped.
func (m *IEManager) LoadDir(path string, overwriteScope bool) error {
	if _, err := os.Stat(path); err != nil {
		err := errNotFound("registry directory %s: %v", path, err)
		m.setLastErr(err)
		return err
	}
	if err := m.loadElementsDir(filepath.Join(path, "system", "elements"), true); err != nil {
		m.setLastErr(err)
		return err
	}
	if err := m.loadElementsDir(filepath.Join(path, "user", "elements"), overwriteScope); err != nil {
		m.setLastErr(err)
		return err
	}
	if err := m.loadAliases(filepath.Join(path, "system", "aliases.xml")); err != nil {
		m.setLastErr(err)
		return err
	}
	if err := m.loadMappings(filepath.Join(path, "system", "mappings.xml")); err != nil {
		m.setLastErr(err)
		return err
	}
	m.setLastErr(nil)
	Log.V(0).Info("loaded IE directory", "path", path, "overwriteScope", overwriteScope)
	return nil
}

func (m *IEManager) loadElementsDir(dir string, allowOverwrite bool) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errNotFound("reading %s: %v", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xml") {
			continue
		}
		full := filepath.Join(dir, e.Name())
		f, err := os.Open(full)
		if err != nil {
			return errNotFound("opening %s: %v", full, err)
		}
		scopes, err := ReadXMLElements(f)
		f.Close()
		if err != nil {
			return err
		}
		for _, s := range scopes {
			if existing, ok := m.scopes[s.PEN]; ok {
				for _, ie := range s.all() {
					if err := m.AddElement(*ie, s.PEN, allowOverwrite); err != nil {
						return err
					}
				}
				existing.Biflow = s.Biflow
				existing.BiflowPEN = s.BiflowPEN
				existing.BiflowIDBit = s.BiflowIDBit
			} else if err := m.registerScope(s); err != nil {
				return err
			}
		}
		if info, err := os.Stat(full); err == nil {
			m.loaded[full] = info.ModTime()
		}
	}
	return nil
}

func (m *IEManager) loadAliases(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errNotFound("opening %s: %v", path, err)
	}
	defer f.Close()
	aliases, err := ReadXMLAliases(f)
	if err != nil {
		return err
	}
	for _, a := range aliases {
		m.aliases[a.Name] = a
	}
	if info, err := os.Stat(path); err == nil {
		m.loaded[path] = info.ModTime()
	}
	return nil
}

func (m *IEManager) loadMappings(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errNotFound("opening %s: %v", path, err)
	}
	defer f.Close()
	mappings, err := ReadXMLMappings(f)
	if err != nil {
		return err
	}
	for _, mp := range mappings {
		for _, target := range mp.Targets {
			m.mappings[target] = append(m.mappings[target], mp)
		}
	}
	if info, err := os.Stat(path); err == nil {
		m.loaded[path] = info.ModTime()
	}
	return nil
}

// CompareTimestamps re-stats every file loaded via LoadDir and reports
// Differs if any is newer than the instant it was read (SPEC_FULL §C.2,
// grounded on original_source/iemgr_common.cpp's mtime tracking).
func (m *IEManager) CompareTimestamps() error {
	for path, mtime := range m.loaded {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(mtime) {
			err := errDiffers("%s changed since it was loaded", path)
			m.setLastErr(err)
			return err
		}
	}
	m.setLastErr(nil)
	return nil
}

// Alias returns the Alias registered under name, if any.
func (m *IEManager) Alias(name string) (*Alias, bool) {
	_, base := SplitAliasName(name)
	a, ok := m.aliases[base]
	return a, ok
}

// Mappings returns the Mappings attached to target (an IE or alias name).
func (m *IEManager) Mappings(target string) []*Mapping {
	return m.mappings[target]
}

// Copy produces a deep clone of the IEManager; back-references in elements
// are re-linked to the clone's own objects rather than the original's
// (spec §4.2).
func (m *IEManager) Copy() *IEManager {
	out := NewIEManager()
	for pen, s := range m.scopes {
		ns := NewScope(pen, s.Name)
		ns.Biflow = s.Biflow
		ns.BiflowPEN = s.BiflowPEN
		ns.BiflowIDBit = s.BiflowIDBit
		for _, ie := range s.all() {
			clone := ie.Clone()
			ns.add(&clone)
		}
		out.scopes[pen] = ns
	}
	for pen, s := range out.scopes {
		for _, ie := range s.all() {
			if ie.ReverseRef == nil {
				continue
			}
			if rs, ok := out.scopes[ie.ReverseRef.EnterpriseId]; ok {
				if rev := rs.get(ie.ReverseRef.Id); rev != nil {
					ie.ReverseRef = &FieldKey{EnterpriseId: rs.PEN, Id: rev.Id}
				}
			}
		}
		for _, ie := range s.all() {
			out.byName[s.Name+":"+ie.Name] = ie
		}
		_ = pen
	}
	for name, a := range m.aliases {
		cp := *a
		cp.Sources = append([]FieldKey(nil), a.Sources...)
		out.aliases[name] = &cp
	}
	for target, ms := range m.mappings {
		cms := make([]*Mapping, len(ms))
		for i, mp := range ms {
			c := NewMapping(mp.Name, mp.CaseSensitive)
			c.Targets = append([]string(nil), mp.Targets...)
			for k, v := range mp.items {
				c.items[k] = v
			}
			for v, k := range mp.reverse {
				c.reverse[v] = k
			}
			cms[i] = c
		}
		out.mappings[target] = cms
	}
	return out
}

// ExportYAML snapshots all elements of scope pen to w as a FieldExport
// document (spec §4.2 "exposes: ... snapshot export"), for deployments that
// want a human-editable alternative to the XML registry directory LoadDir
// reads.
func (m *IEManager) ExportYAML(w io.Writer, pen uint32) error {
	s, ok := m.scopes[pen]
	if !ok {
		err := errNotFound("no scope registered for enterprise %d", pen)
		m.setLastErr(err)
		return err
	}
	fields := make(map[uint16]*InformationElement)
	for _, ie := range s.all() {
		fields[ie.Id] = ie
	}
	if err := WriteYAML(w, fields); err != nil {
		m.setLastErr(err)
		return err
	}
	m.setLastErr(nil)
	return nil
}

// ImportYAML reads a FieldExport document from r and registers its elements
// under scope pen, creating the scope if it doesn't already exist.
func (m *IEManager) ImportYAML(r io.Reader, pen uint32, allowOverwrite bool) error {
	fields, err := ReadYAML(r)
	if err != nil {
		m.setLastErr(err)
		return err
	}
	for id, ie := range fields {
		ie.Id = id
		if err := m.AddElement(*ie, pen, allowOverwrite); err != nil {
			m.setLastErr(err)
			return err
		}
	}
	m.setLastErr(nil)
	return nil
}
