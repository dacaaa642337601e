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

import "sort"

// Session is the library's byte-slice-in entry point (spec §1): one Session
// per transport connection, owning the TemplateManager cursor that
// WalkMessage advances and the IEManager fields are resolved against. Session
// is caller-owned and single-threaded, like every mutable core type (spec
// §5).
type Session struct {
	TM       *TemplateManager
	IEM      *IEManager
	Flags    RecordFlag
	Renderer *Renderer
}

// NewSession constructs a Session bound to one transport class, sharing iem
// across every Session a collecting process keeps open (the IEManager is not
// per-transport, spec §4.2).
func NewSession(transport TransportClass, iem *IEManager, recordFlags RecordFlag, renderFlags RenderFlag) *Session {
	return &Session{
		TM:       NewTemplateManager(transport),
		IEM:      iem,
		Flags:    recordFlags,
		Renderer: NewRenderer(renderFlags),
	}
}

// DecodeMessage parses one IPFIX message from b, advancing the Session's
// TemplateManager cursor and decoding any Data Sets against the resulting
// snapshot (spec §4.5/§6.1).
func (s *Session) DecodeMessage(b []byte) (*Message, error) {
	return WalkMessage(b, s.TM, s.IEM, s.Flags)
}

// TemplateSetFKey marks the flow-key fields of an active template (spec
// §4.4), e.g. in response to an out-of-band configuration or an options
// record naming the flow key for id.
func (s *Session) TemplateSetFKey(id uint16, mask uint64) error {
	return s.TM.TemplateSetFKey(id, mask)
}

// RenderJSON appends one JSON object per Data Record in msg to buf, ordered
// by ascending Set id and then by the order Records were walked within that
// Set (spec §4.8). msg.DataRecords is keyed by Set id, so ids are sorted
// explicitly rather than relying on map iteration order.
func (s *Session) RenderJSON(buf *Buffer, msg *Message) error {
	ids := make([]uint16, 0, len(msg.DataRecords))
	for id := range msg.DataRecords {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		for _, dr := range msg.DataRecords[id] {
			if err := s.Renderer.RenderDataRecord(buf, dr); err != nil {
				return err
			}
			if err := buf.writeByte('\n'); err != nil {
				return err
			}
		}
	}
	return nil
}
