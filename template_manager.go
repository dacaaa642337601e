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

import "bytes"

// circularBefore reports whether a is "before" b on the 32-bit wraparound
// export-time circle, using the great-circle-distance rule of spec §4.4: the
// side within 2^31 of the other determines order.
func circularBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

func circularLE(a, b uint32) bool {
	return a == b || circularBefore(a, b)
}

// templateVersion is one (re)definition of a template id, valid for the
// half-open export-time interval [addedAt, withdrawnAt). withdrawnAt is nil
// while the version remains active.
type templateVersion struct {
	tmpl       *Template
	addedAt    uint32
	withdrawnAt *uint32
}

func (v *templateVersion) activeAt(t uint32) bool {
	if !circularLE(v.addedAt, t) {
		return false
	}
	if v.withdrawnAt != nil && circularLE(*v.withdrawnAt, t) {
		return false
	}
	return true
}

// TemplateManager is a per-session store: time-indexed snapshots, garbage
// lifecycle, and transport-specific refresh/withdraw/remove rules (spec
// §4.4). It is single-owner mutable (spec §5) — callers serialize access.
type TemplateManager struct {
	lastErrHolder

	transport  TransportClass
	policy     transportPolicy
	haveCursor bool
	cursor     uint32

	// versions holds the full history per template id, in insertion order.
	versions map[uint16][]*templateVersion

	garbage []*Template

	iem *IEManager
}

func NewTemplateManager(transport TransportClass) *TemplateManager {
	return &TemplateManager{
		transport: transport,
		policy:    policyFor(transport),
		versions:  map[uint16][]*templateVersion{},
	}
}

// SetTime installs the cursor. TCP rejects moving the cursor backward with
// InvalidArg; other transports may move backward to query history (spec
// §4.4).
func (tm *TemplateManager) SetTime(t uint32) error {
	if tm.haveCursor && tm.transport == TransportTCP && !tm.policy.allowBackwardTime && circularBefore(t, tm.cursor) {
		err := errInvalidArg("tcp session: cannot move cursor backward from %d to %d", tm.cursor, t)
		tm.setLastErr(err)
		return err
	}
	tm.cursor = t
	tm.haveCursor = true
	tm.setLastErr(nil)
	return nil
}

func (tm *TemplateManager) requireCursor() error {
	if !tm.haveCursor {
		return errInvalidArg("set_time must be called before this operation")
	}
	return nil
}

// activeVersion returns the version of id active at the cursor, if any.
func (tm *TemplateManager) activeVersion(id uint16) *templateVersion {
	for i := len(tm.versions[id]) - 1; i >= 0; i-- {
		if tm.versions[id][i].activeAt(tm.cursor) {
			return tm.versions[id][i]
		}
	}
	return nil
}

// TemplateAdd inserts or refreshes a template for the active id, applying
// this transport's refresh rules (spec §4.4).
func (tm *TemplateManager) TemplateAdd(t *Template) error {
	if err := tm.requireCursor(); err != nil {
		tm.setLastErr(err)
		return err
	}

	active := tm.activeVersion(t.Id)

	if active != nil {
		sameBytes := bytes.Equal(active.tmpl.Raw, t.Raw)
		if tm.policy.allowInPlaceReplace {
			if sameBytes {
				active.tmpl.LastSeen = int64(tm.cursor)
				tm.setLastErr(nil)
				return nil
			}
			// replace: end the old version, retire it to garbage, start a
			// new one at the cursor.
			stopAt := tm.cursor
			active.withdrawnAt = &stopAt
			tm.retire(active.tmpl)
			t.FirstSeen = int64(tm.cursor)
			t.LastSeen = int64(tm.cursor)
			tm.appendVersion(t)
			tm.setLastErr(nil)
			return nil
		}
		// TCP/SCTP: redefining a live id is Denied unless a prior withdraw
		// happened at or before the cursor (handled by activeAt already
		// excluding withdrawn versions, so reaching here with `active` means
		// no such withdrawal occurred).
		err := errDenied("template %d already defined; explicit withdrawal required before redefinition on %s", t.Id, tm.transport)
		tm.setLastErr(err)
		return err
	}

	t.FirstSeen = int64(tm.cursor)
	t.LastSeen = int64(tm.cursor)
	tm.appendVersion(t)
	tm.setLastErr(nil)
	TMTemplateOpsTotal.WithLabelValues("add", tm.transport.String()).Inc()
	Log.V(0).Info("template added", "id", t.Id, "transport", tm.transport.String(), "fieldCount", t.FieldCount)
	return nil
}

func (tm *TemplateManager) appendVersion(t *Template) {
	t.retain() // TM's own current-mapping reference
	tm.versions[t.Id] = append(tm.versions[t.Id], &templateVersion{tmpl: t, addedAt: tm.cursor})
}

func (tm *TemplateManager) retire(t *Template) {
	tm.garbage = append(tm.garbage, t)
	t.release()
	TMGarbageTemplatesTotal.Inc()
}

// TemplateWithdraw logically removes the mapping from the cursor forward;
// UDP returns Denied (spec §4.4).
func (tm *TemplateManager) TemplateWithdraw(id uint16, _ TemplateType) error {
	if err := tm.requireCursor(); err != nil {
		tm.setLastErr(err)
		return err
	}
	if !tm.policy.allowWithdraw {
		err := errDenied("withdrawal not permitted on %s sessions", tm.transport)
		tm.setLastErr(err)
		return err
	}
	active := tm.activeVersion(id)
	if active == nil {
		err := errNotFound("no active template %d to withdraw", id)
		tm.setLastErr(err)
		return err
	}
	stopAt := tm.cursor
	active.withdrawnAt = &stopAt
	tm.retire(active.tmpl)
	tm.setLastErr(nil)
	TMTemplateOpsTotal.WithLabelValues("withdraw", tm.transport.String()).Inc()
	Log.V(0).Info("template withdrawn", "id", id, "transport", tm.transport.String())
	return nil
}

// WithdrawAll withdraws every template of typ active at the cursor, in
// response to the reserved "all templates withdrawn" record (template id
// equal to the enclosing Set's id, field count 0), permitted on Sets that
// allow withdrawal at all (spec §4.4/§4.5).
func (tm *TemplateManager) WithdrawAll(typ TemplateType) error {
	if err := tm.requireCursor(); err != nil {
		tm.setLastErr(err)
		return err
	}
	if !tm.policy.allowWithdraw {
		err := errDenied("withdrawal not permitted on %s sessions", tm.transport)
		tm.setLastErr(err)
		return err
	}
	for _, vs := range tm.versions {
		for _, v := range vs {
			if v.tmpl.Type != typ || !v.activeAt(tm.cursor) {
				continue
			}
			stopAt := tm.cursor
			v.withdrawnAt = &stopAt
			tm.retire(v.tmpl)
		}
	}
	tm.setLastErr(nil)
	TMTemplateOpsTotal.WithLabelValues("withdraw_all", tm.transport.String()).Inc()
	Log.V(0).Info("all templates withdrawn", "type", typ, "transport", tm.transport.String())
	return nil
}

// TemplateRemove physically removes the template across the whole history
// and moves every version's template to garbage (spec §4.4).
func (tm *TemplateManager) TemplateRemove(id uint16, _ TemplateType) error {
	vs, ok := tm.versions[id]
	if !ok {
		err := errNotFound("no template %d", id)
		tm.setLastErr(err)
		return err
	}
	for _, v := range vs {
		if v.withdrawnAt == nil {
			tm.retire(v.tmpl)
		} else {
			// already retired when withdrawn/replaced; physical remove
			// re-surfaces it in the garbage stream so the caller also
			// observes the removal event, balanced by a retain so
			// GarbageBatch.Release only drops the one reference this adds.
			v.tmpl.retain()
			tm.garbage = append(tm.garbage, v.tmpl)
		}
	}
	delete(tm.versions, id)
	tm.setLastErr(nil)
	TMTemplateOpsTotal.WithLabelValues("remove", tm.transport.String()).Inc()
	Log.V(0).Info("template removed", "id", id, "transport", tm.transport.String(), "versions", len(vs))
	return nil
}

// TemplateGet returns the template active at the cursor, if any.
func (tm *TemplateManager) TemplateGet(id uint16) (*Template, bool) {
	v := tm.activeVersion(id)
	if v == nil {
		return nil, false
	}
	return v.tmpl, true
}

// TemplateSetFKey attaches a flow-key bit mask to a template, marking bit i's
// field FlagFKey; on a biflow template, a flow-key field that also carries a
// reverse IE is additionally marked FlagBKey, since its value alone cannot
// disambiguate a flow's direction without also considering its reverse pair
// (spec §4.4). mask must not set
// bits beyond the template's field count.
func (tm *TemplateManager) TemplateSetFKey(id uint16, mask uint64) error {
	t, ok := tm.TemplateGet(id)
	if !ok {
		err := errNotFound("no template %d", id)
		tm.setLastErr(err)
		return err
	}
	if t.FieldCount < 64 && mask>>t.FieldCount != 0 {
		err := errInvalidArg("fkey mask %#x sets bits beyond field count %d", mask, t.FieldCount)
		tm.setLastErr(err)
		return err
	}
	t.FKeyMask = mask
	t.Features |= FeatureFKey
	for i := range t.Fields {
		f := &t.Fields[i]
		f.Flags &^= FlagFKey | FlagBKey
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		f.Flags |= FlagFKey
		if t.Features.Has(FeatureBiflow) && f.IE != nil && f.IE.ReverseRef != nil {
			f.Flags |= FlagBKey
		}
	}
	tm.setLastErr(nil)
	return nil
}

// SnapshotGet produces a handle valid until GarbageGet is called after the
// snapshot's templates change (spec §4.4): an immutable view independent of
// subsequent TemplateAdd/Remove.
func (tm *TemplateManager) SnapshotGet() *Snapshot {
	s := &Snapshot{at: int64(tm.cursor), templates: map[uint16]*Template{}}
	for id, vs := range tm.versions {
		for i := len(vs) - 1; i >= 0; i-- {
			if vs[i].activeAt(tm.cursor) {
				vs[i].tmpl.retain()
				s.templates[id] = vs[i].tmpl
				break
			}
		}
	}
	return s
}

// GarbageGet hands out everything retired since the last call.
func (tm *TemplateManager) GarbageGet() *GarbageBatch {
	b := &GarbageBatch{templates: tm.garbage}
	tm.garbage = nil
	return b
}

// SetIEManager (re-)runs IE definition on every currently active template.
// Passing nil preserves templates but resets per-field definitions and
// derived flags (BIFLOW, STRUCT), per spec §4.4.
func (tm *TemplateManager) SetIEManager(iem *IEManager) {
	tm.iem = iem
	for _, vs := range tm.versions {
		for _, v := range vs {
			resolveTemplateIEs(v.tmpl, iem)
		}
	}
}

// resolveTemplateIEs assigns IE pointers from iem to every field of t and
// recomputes the BIFLOW/STRUCT derived flags (spec §9 "Biflow discovery").
// iem == nil clears definitions and those flags, leaving the template's wire
// shape untouched.
func resolveTemplateIEs(t *Template, iem *IEManager) {
	t.Features &^= FeatureBiflow | FeatureStruct
	hasBiflow := false
	for i := range t.Fields {
		f := &t.Fields[i]
		f.IE = nil
		if iem == nil {
			continue
		}
		ie, ok := iem.FindByID(f.En, f.Id)
		if !ok {
			continue
		}
		f.IE = ie
		if ie.ReverseRef != nil {
			hasBiflow = true
		}
		if ie.Type != nil && isStructType(*ie.Type) {
			t.Features |= FeatureStruct
			f.Flags |= FlagStruct
		}
	}
	if hasBiflow {
		t.Features |= FeatureBiflow
		materializeReverseFields(t, iem)
	} else {
		t.FieldsRev = nil
	}
}

func isStructType(typ string) bool {
	switch typ {
	case "basicList", "subTemplateList", "subTemplateMultiList":
		return true
	default:
		return false
	}
}

// materializeReverseFields builds FieldsRev, the same-length reverse-view
// field array used by REC's BIFLOW_REV flag (spec §3.5, §9).
func materializeReverseFields(t *Template, iem *IEManager) {
	rev := make([]TemplateField, len(t.Fields))
	for i, f := range t.Fields {
		rev[i] = f
		if f.IE != nil && f.IE.ReverseRef != nil {
			if revIE, ok := iem.FindByID(f.IE.ReverseRef.EnterpriseId, f.IE.ReverseRef.Id); ok {
				rev[i].IE = revIE
				rev[i].En = revIE.EnterpriseId
				rev[i].Id = revIE.Id
				rev[i].Flags |= FlagReverse
			}
		}
	}
	t.FieldsRev = rev
}
