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
	"encoding/binary"
)

const setHeaderLength = 4

const (
	setIdTemplate        uint16 = 2
	setIdOptionsTemplate uint16 = 3
)

// setMinPaddingSkip is the tolerance for trailing bytes at the end of a Set
// that are too short to be a record of any kind (spec §4.5: "padding up to 3
// bytes ... is tolerated").
const setMinPaddingSkip = 3

// WalkMessage parses b as one IPFIX message (spec §6.1), feeding template
// and options-template definitions/withdrawals into tm (advancing its cursor
// to the message's export time first) and decoding data records against the
// snapshot observed once all Sets have been applied to tm.
//
// Template and data Sets are processed in two passes: first every Set is
// scanned for template/options-template/withdrawal content (so a data Set
// appearing before its template's definition Set, though unusual, still
// resolves), then data Sets are decoded against the resulting snapshot.
func WalkMessage(b []byte, tm *TemplateManager, iem *IEManager, flags RecordFlag) (*Message, error) {
	hdr, err := ParseMessageHeader(b)
	if err != nil {
		return nil, err
	}
	if len(b) < int(hdr.Length) {
		return nil, errInsufficientBuffer("message declares length %d, buffer has %d", hdr.Length, len(b))
	}
	body := b[MessageHeaderLength:hdr.Length]

	if err := tm.SetTime(hdr.ExportTime); err != nil {
		return nil, err
	}

	msg := &Message{Header: hdr, DataRecords: map[uint16][]*DataRecord{}}

	type rawDataSet struct {
		id   uint16
		body []byte
	}
	var dataSets []rawDataSet

	pos := 0
	for pos < len(body) {
		if len(body)-pos < setHeaderLength {
			if len(body)-pos <= setMinPaddingSkip {
				break
			}
			return nil, errFormat("set header truncated with %d trailing bytes", len(body)-pos)
		}
		setId := binary.BigEndian.Uint16(body[pos : pos+2])
		setLen := binary.BigEndian.Uint16(body[pos+2 : pos+4])
		if setLen < setHeaderLength || pos+int(setLen) > len(body) {
			return nil, errFormat("set %d declares invalid length %d", setId, setLen)
		}
		setBody := body[pos+setHeaderLength : pos+int(setLen)]
		pos += int(setLen)

		switch {
		case setId == setIdTemplate || setId == setIdOptionsTemplate:
			if err := walkTemplateSet(tm, setId, setBody, msg); err != nil {
				return nil, err
			}
		case setId >= 256:
			dataSets = append(dataSets, rawDataSet{id: setId, body: setBody})
		default:
			return nil, errFormat("set id %d is reserved", setId)
		}
	}

	snap := tm.SnapshotGet()
	defer snap.Release()

	for _, ds := range dataSets {
		tmpl, ok := snap.Get(ds.id)
		if !ok {
			return nil, TemplateNotFound(hdr.ObservationDomainId, ds.id)
		}
		r := bytes.NewReader(ds.body)
		for r.Len() > 0 {
			if r.Len() <= setMinPaddingSkip {
				break
			}
			if tmpl.DataLength != VarLen && r.Len() < int(tmpl.DataLength) {
				break
			}
			dr, _, err := DecodeDataRecord(r, tmpl, snap, iem, flags)
			if err != nil {
				return nil, err
			}
			msg.DataRecords[ds.id] = append(msg.DataRecords[ds.id], dr)
		}
	}

	total := 0
	for _, records := range msg.DataRecords {
		total += len(records)
	}
	Log.V(1).Info("decoded message",
		"observationDomainId", hdr.ObservationDomainId,
		"sequenceNumber", hdr.SequenceNumber,
		"templates", len(msg.Templates),
		"optionsTemplates", len(msg.OptionsTpls),
		"withdrawals", len(msg.Withdrawals),
		"dataRecords", total,
	)

	return msg, nil
}

// walkTemplateSet parses every template/options-template/withdrawal record
// in one Set's body and applies it to tm (spec §4.5).
func walkTemplateSet(tm *TemplateManager, setId uint16, setBody []byte, msg *Message) error {
	typ := TemplateData
	if setId == setIdOptionsTemplate {
		typ = TemplateOptions
	}

	sawAllWithdrawal := false
	sawDefinition := false
	sawIndividualWithdrawal := false

	pos := 0
	for pos < len(setBody) {
		if len(setBody)-pos < 4 {
			break
		}
		t, n, err := ParseTemplate(setBody[pos:], typ, setId)
		if err != nil {
			return err
		}
		pos += n

		switch {
		case t.FieldCount == 0 && t.Id == setId:
			if sawAllWithdrawal || sawDefinition || sawIndividualWithdrawal {
				return errFormat("set %d: all-withdrawal must appear alone in its Set", setId)
			}
			sawAllWithdrawal = true
			if err := tm.WithdrawAll(typ); err != nil {
				return err
			}
		case t.FieldCount == 0:
			if sawAllWithdrawal {
				return errFormat("set %d: cannot combine all-withdrawal with individual withdrawal", setId)
			}
			sawIndividualWithdrawal = true
			if err := tm.TemplateWithdraw(t.Id, typ); err != nil {
				return err
			}
			msg.Withdrawals = append(msg.Withdrawals, t.Id)
		default:
			if sawAllWithdrawal {
				return errFormat("set %d: cannot combine all-withdrawal with a definition", setId)
			}
			sawDefinition = true
			if err := tm.TemplateAdd(t); err != nil {
				return err
			}
			if typ == TemplateOptions {
				msg.OptionsTpls = append(msg.OptionsTpls, t)
			} else {
				msg.Templates = append(msg.Templates, t)
			}
		}
	}
	return nil
}
