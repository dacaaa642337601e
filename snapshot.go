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

// Snapshot is an immutable map from template id to Template, valid at the
// export-time point it was taken (spec §3.7). Once handed out by the
// Template Manager, a Snapshot may be read concurrently from multiple
// goroutines without coordination (spec §5) — unlike the TM itself, which is
// single-owner mutable.
type Snapshot struct {
	at        int64
	templates map[uint16]*Template
	released  bool
}

// Get returns the template active at the snapshot's time, or ok=false.
func (s *Snapshot) Get(id uint16) (*Template, bool) {
	t, ok := s.templates[id]
	return t, ok
}

// At returns the export-time cursor value the snapshot was taken at.
func (s *Snapshot) At() int64 { return s.at }

// Release drops the snapshot's references to its templates. After Release,
// the Snapshot must not be used. Released is idempotent.
func (s *Snapshot) Release() {
	if s.released {
		return
	}
	s.released = true
	for _, t := range s.templates {
		t.release()
	}
}

// GarbageBatch hands out templates retired since the last GarbageGet call
// (spec §4.4). Destroying the batch (Release) frees a template's memory only
// if no live Snapshot still references it (spec §9 "Snapshot sharing";
// SPEC_FULL §C.3).
type GarbageBatch struct {
	templates []*Template
	released  bool
}

// Templates returns the templates in this garbage batch. A template appears
// here even if a Snapshot still references it; callers must not assume the
// template's memory is reclaimed until every referencing Snapshot has also
// called Release.
func (g *GarbageBatch) Templates() []*Template {
	return g.templates
}

// Release drops the TM's own reference to each template in the batch. A
// template whose refcount reaches zero as a result is eligible for
// collection by the Go garbage collector once this function returns and no
// other reference (e.g. a Snapshot) remains.
func (g *GarbageBatch) Release() {
	if g.released {
		return
	}
	g.released = true
	for _, t := range g.templates {
		t.release()
	}
}
