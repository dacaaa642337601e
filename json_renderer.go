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
	"fmt"
	"math"
	"net"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/flowforge/ipfixcore/iana/protocols"
)

// RenderFlag controls the JSON Renderer's output shape (spec §4.8), mirroring
// libfds' fds_drec2json conversion flags (SPEC_FULL §C.5, grounded on
// original_source/src/converters/json.c).
type RenderFlag uint16

const (
	// NumericID renders every field key as "enXX:idYY" instead of resolving
	// it to "scope:name", regardless of whether the IE is known.
	NumericID RenderFlag = 1 << iota
	// OctetsNoInt renders octetArray values longer than 8 bytes would
	// otherwise be coerced to, as a "0xHHHH..." hex string instead of an
	// unsigned integer, for every octetArray value regardless of length.
	OctetsNoInt
	// TSFormatMsec renders dateTime values as ISO 8601 strings with
	// millisecond precision instead of a Unix epoch millisecond integer.
	TSFormatMsec
	// NonPrintable drops non-printable control characters from string
	// values instead of escaping them as \u00XX.
	NonPrintable
	// FormatTCPFlags renders tcpControlBits (en 0, id 6) as a six-character
	// flag string (".A..SF") instead of its raw integer value.
	FormatTCPFlags
	// FormatProto renders protocolIdentifier (en 0, id 4) as its IANA
	// keyword name instead of its raw integer value.
	FormatProto
	// MappedValues renders a field's value through any Mapping the Renderer's
	// IEM has registered for that field's qualified IE name, rendering the
	// mapping's symbolic key instead of the raw integer (spec §3.4). Has no
	// effect when IEM is nil or carries no matching Mapping.
	MappedValues
)

func (f RenderFlag) Has(bit RenderFlag) bool { return f&bit != 0 }

const (
	protoEnterpriseId = 0
	protoFieldId      = 4
	tcpFlagsFieldId   = 6
)

// tcpFlagBits are tested high bit to low bit, each contributing one letter
// position of the rendered flag string (SPEC_FULL §C.5, grounded on
// original_source/src/converters/json.c's to_flags(): URG/ACK/PSH/RST/SYN/FIN
// against masks 0x20/0x10/0x08/0x04/0x02/0x01).
var tcpFlagBits = [6]struct {
	mask   uint64
	letter byte
}{
	{0x20, 'U'}, {0x10, 'A'}, {0x08, 'P'}, {0x04, 'R'}, {0x02, 'S'}, {0x01, 'F'},
}

// Buffer is the JSON Renderer's output sink (spec §4.8/§6.5). A Buffer
// created with NewBuffer grows its backing array on demand; one created with
// NewFixedBuffer never reallocates and instead fails with
// errInsufficientBuffer once full.
type Buffer struct {
	buf   []byte
	fixed bool
}

// NewBuffer returns an auto-growing Buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, 0, capacity)}
}

// NewFixedBuffer returns a Buffer that never reallocates past capacity.
func NewFixedBuffer(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, 0, capacity), fixed: true}
}

func (b *Buffer) Bytes() []byte { return b.buf }
func (b *Buffer) Len() int      { return len(b.buf) }
func (b *Buffer) Reset()        { b.buf = b.buf[:0] }

func (b *Buffer) reserve(extra int) error {
	if cap(b.buf)-len(b.buf) >= extra {
		return nil
	}
	if b.fixed {
		return errInsufficientBuffer("buffer of capacity %d cannot fit %d more bytes", cap(b.buf), extra)
	}
	need := len(b.buf) + extra
	newCap := cap(b.buf) * 2
	if newCap < need {
		newCap = need
	}
	grown := make([]byte, len(b.buf), newCap)
	copy(grown, b.buf)
	b.buf = grown
	return nil
}

func (b *Buffer) writeByte(c byte) error {
	if err := b.reserve(1); err != nil {
		return err
	}
	b.buf = append(b.buf, c)
	return nil
}

func (b *Buffer) writeString(s string) error {
	if err := b.reserve(len(s)); err != nil {
		return err
	}
	b.buf = append(b.buf, s...)
	return nil
}

// Renderer renders decoded Data Records as single-line JSON text, following
// the field-key, per-type value, aggregation, and list-shape rules of spec
// §4.8.
type Renderer struct {
	Flags RenderFlag

	// IEM backs MappedValues lookups against registered Mappings (spec §3.4).
	// Rendering proceeds normally with IEM nil; MappedValues is then a no-op.
	IEM *IEManager
}

func NewRenderer(flags RenderFlag) *Renderer {
	return &Renderer{Flags: flags}
}

// RenderDataRecord appends one top-level JSON object to buf for dr: an
// "ipfix.entry" for Data Template records, an "ipfix.optionsEntry" for
// Options Template records (spec §4.8).
func (rn *Renderer) RenderDataRecord(buf *Buffer, dr *DataRecord) error {
	before := buf.Len()

	typ := "ipfix.entry"
	if dr.Template != nil && dr.Template.Type == TemplateOptions {
		typ = "ipfix.optionsEntry"
	}

	if err := buf.writeString(`{"@type":"`); err != nil {
		return rn.fail(err)
	}
	if err := buf.writeString(typ); err != nil {
		return rn.fail(err)
	}
	if err := buf.writeByte('"'); err != nil {
		return rn.fail(err)
	}
	if len(dr.Fields) > 0 {
		if err := buf.writeByte(','); err != nil {
			return rn.fail(err)
		}
	}

	if err := rn.renderFields(buf, dr.Fields); err != nil {
		return rn.fail(err)
	}

	if err := buf.writeByte('}'); err != nil {
		return rn.fail(err)
	}

	JSONRenderBytesTotal.Add(float64(buf.Len() - before))
	return nil
}

func (rn *Renderer) fail(err error) error {
	kind := KindUnspecified
	if e, ok := err.(*Error); ok {
		kind = e.Kind
	}
	JSONRenderErrorsTotal.WithLabelValues(kind.String()).Inc()
	return err
}

// fieldGroup accumulates every occurrence of one field key across a record.
// Fields flagged MULTI_IE contribute more than one value to a group, which
// renders as a JSON array; a group is otherwise a single scalar/object value
// (spec §4.8's field-aggregation rule).
type fieldGroup struct {
	name   string
	ie     *InformationElement
	key    FieldKey
	values []DecodedField
	multi  bool
}

func (rn *Renderer) renderFields(buf *Buffer, fields []DecodedField) error {
	var groups []*fieldGroup
	byKey := map[FieldKey]*fieldGroup{}

	for i := range fields {
		f := fields[i]
		if !f.Flags.Has(FlagMultiIE) {
			groups = append(groups, &fieldGroup{name: f.Name, ie: f.IE, key: f.Key, values: []DecodedField{f}})
			continue
		}
		g, ok := byKey[f.Key]
		if !ok {
			g = &fieldGroup{name: f.Name, ie: f.IE, key: f.Key, multi: true}
			byKey[f.Key] = g
			groups = append(groups, g)
		}
		g.values = append(g.values, f)
	}

	for i, g := range groups {
		if i > 0 {
			if err := buf.writeByte(','); err != nil {
				return err
			}
		}
		if err := buf.writeByte('"'); err != nil {
			return err
		}
		if err := rn.writeFieldName(buf, g); err != nil {
			return err
		}
		if err := buf.writeString(`":`); err != nil {
			return err
		}
		if g.multi || len(g.values) > 1 {
			if err := buf.writeByte('['); err != nil {
				return err
			}
			for i, v := range g.values {
				if i > 0 {
					if err := buf.writeByte(','); err != nil {
						return err
					}
				}
				if err := rn.renderValue(buf, &v); err != nil {
					return err
				}
			}
			if err := buf.writeByte(']'); err != nil {
				return err
			}
			continue
		}
		if err := rn.renderValue(buf, &g.values[0]); err != nil {
			return err
		}
	}
	return nil
}

// writeFieldName writes a field's JSON key, unquoted, per spec §4.8:
// "enXX:idYY" when NumericID is set or the IE is unresolved, else
// "scope:name" (SPEC_FULL §C.5, grounded on original_source's
// add_field_name()).
func (rn *Renderer) writeFieldName(buf *Buffer, g *fieldGroup) error {
	if rn.Flags.Has(NumericID) || g.ie == nil {
		return buf.writeString(fmt.Sprintf("en%d:id%d", g.key.EnterpriseId, g.key.Id))
	}
	return buf.writeString(qualifiedIEName(g.ie))
}

// qualifiedIEName renders an IE's "scope:name" field key, defaulting the
// scope to "iana" for elements registered without one (spec §4.8).
func qualifiedIEName(ie *InformationElement) string {
	scope := ie.ScopeName
	if scope == "" {
		scope = "iana"
	}
	return scope + ":" + ie.Name
}

func (rn *Renderer) renderValue(buf *Buffer, f *DecodedField) error {
	if f.Invalid {
		return buf.writeString("null")
	}
	if rn.IEM != nil && rn.Flags.Has(MappedValues) && f.IE != nil {
		if name, ok := rn.lookupMappedName(qualifiedIEName(f.IE), f.Value.Value()); ok {
			return writeQuoted(buf, name)
		}
	}
	if f.IE != nil && f.IE.EnterpriseId == protoEnterpriseId && f.IE.Id == protoFieldId && rn.Flags.Has(FormatProto) {
		if v, ok := f.Value.Value().(uint8); ok {
			return writeQuoted(buf, protocols.Name(v))
		}
	}
	if f.IE != nil && f.IE.EnterpriseId == protoEnterpriseId && f.IE.Id == tcpFlagsFieldId && rn.Flags.Has(FormatTCPFlags) {
		if v, ok := asUint64(f.Value.Value()); ok {
			return writeQuoted(buf, renderTCPFlags(v))
		}
	}

	switch v := f.Value.Value().(type) {
	case bool:
		if v {
			return buf.writeString("true")
		}
		return buf.writeString("false")
	case uint8:
		return buf.writeString(strconv.FormatUint(uint64(v), 10))
	case uint16:
		return buf.writeString(strconv.FormatUint(uint64(v), 10))
	case uint32:
		return buf.writeString(strconv.FormatUint(uint64(v), 10))
	case uint64:
		return buf.writeString(strconv.FormatUint(v, 10))
	case int8:
		return buf.writeString(strconv.FormatInt(int64(v), 10))
	case int16:
		return buf.writeString(strconv.FormatInt(int64(v), 10))
	case int32:
		return buf.writeString(strconv.FormatInt(int64(v), 10))
	case int64:
		return buf.writeString(strconv.FormatInt(v, 10))
	case float32:
		return writeFloat(buf, float64(v), 32)
	case float64:
		return writeFloat(buf, v, 64)
	case net.HardwareAddr:
		return writeQuoted(buf, v.String())
	case net.IP:
		return writeQuoted(buf, v.String())
	case time.Time:
		return rn.writeDateTime(buf, v)
	case string:
		return rn.writeString(buf, v)
	case []byte:
		return writeOctetArray(buf, v, rn.Flags.Has(OctetsNoInt))
	case []DataType:
		return rn.writeBasicList(buf, f)
	case []*DataRecord:
		return rn.writeSubTemplateList(buf, f)
	case []subTemplateMultiListBlock:
		return rn.writeSubTemplateMultiList(buf, f)
	default:
		return errInvalidData("json renderer: unsupported value type %T for field %s", v, f.Key)
	}
}

// lookupMappedName resolves v against every Mapping the Renderer's IEM has
// registered for target (an IE's qualified name or an alias name),
// rendering enumerated integer values symbolically (spec §3.4, grounded on
// original_source/iemgr_alias.cpp's mapping application during conversion).
func (rn *Renderer) lookupMappedName(target string, v interface{}) (string, bool) {
	n, ok := asInt64(v)
	if !ok {
		return "", false
	}
	for _, mp := range rn.IEM.Mappings(target) {
		if name, ok := mp.Name2(n); ok {
			return name, true
		}
	}
	return "", false
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func asUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	default:
		return 0, false
	}
}

func renderTCPFlags(v uint64) string {
	out := make([]byte, 0, len(tcpFlagBits))
	for _, bit := range tcpFlagBits {
		if v&bit.mask != 0 {
			out = append(out, bit.letter)
		} else {
			out = append(out, '.')
		}
	}
	return string(out)
}

// writeOctetArray renders an octetArray value: as an unsigned integer when it
// is 8 bytes or fewer and noInt is false, else as a "0xHHHH..." hex string
// (SPEC_FULL §C.5, grounded on original_source's OCTETS_NOINT handling).
func writeOctetArray(buf *Buffer, v []byte, noInt bool) error {
	if !noInt && len(v) > 0 && len(v) <= 8 {
		var n uint64
		for _, b := range v {
			n = n<<8 | uint64(b)
		}
		return buf.writeString(strconv.FormatUint(n, 10))
	}
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, 2+len(v)*2+2)
	out = append(out, '"', '0', 'x')
	for _, b := range v {
		out = append(out, hexDigits[b>>4], hexDigits[b&0x0f])
	}
	out = append(out, '"')
	return buf.writeString(string(out))
}

// writeFloat renders a float per spec §4.8: non-finite values as the quoted
// strings "Infinity"/"-Infinity"/"NaN" (since encoding/json cannot represent
// them), finite values with float32/float64 decimal-digit precision
// (SPEC_FULL §C.5, grounded on original_source's FLT_DIG/DBL_DIG handling).
func writeFloat(buf *Buffer, v float64, bitSize int) error {
	switch {
	case math.IsNaN(v):
		return writeQuoted(buf, "NaN")
	case math.IsInf(v, 1):
		return writeQuoted(buf, "Infinity")
	case math.IsInf(v, -1):
		return writeQuoted(buf, "-Infinity")
	}
	prec := 15 // DBL_DIG
	if bitSize == 32 {
		prec = 6 // FLT_DIG
	}
	return buf.writeString(strconv.FormatFloat(v, 'g', prec, bitSize))
}

// writeDateTime renders a dateTime value as an ISO 8601 string with
// millisecond precision (TSFormatMsec set) or as a Unix epoch millisecond
// integer otherwise (spec §4.8).
func (rn *Renderer) writeDateTime(buf *Buffer, v time.Time) error {
	if rn.Flags.Has(TSFormatMsec) {
		return writeQuoted(buf, v.UTC().Format("2006-01-02T15:04:05.000Z"))
	}
	return buf.writeString(strconv.FormatInt(v.UnixMilli(), 10))
}

func writeQuoted(buf *Buffer, s string) error {
	if err := buf.writeByte('"'); err != nil {
		return err
	}
	if err := buf.writeString(s); err != nil {
		return err
	}
	return buf.writeByte('"')
}

// writeString renders a string value, escaping per spec §4.8: '"' and '\'
// always escaped, \n \r \t \b \f as their named escapes, other C0/C1 control
// characters as \u00XX unless NonPrintable is set (in which case they are
// dropped), and invalid UTF-8 replaced with U+FFFD (SPEC_FULL §C.5, grounded
// on original_source's to_string()/utf8char_is_control()).
func (rn *Renderer) writeString(buf *Buffer, s string) error {
	if err := buf.writeByte('"'); err != nil {
		return err
	}
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			if err := buf.writeString(`�`); err != nil {
				return err
			}
			i++
			continue
		}
		i += size

		switch r {
		case '"':
			if err := buf.writeString(`\"`); err != nil {
				return err
			}
			continue
		case '\\':
			if err := buf.writeString(`\\`); err != nil {
				return err
			}
			continue
		case '\n':
			if err := buf.writeString(`\n`); err != nil {
				return err
			}
			continue
		case '\r':
			if err := buf.writeString(`\r`); err != nil {
				return err
			}
			continue
		case '\t':
			if err := buf.writeString(`\t`); err != nil {
				return err
			}
			continue
		case '\b':
			if err := buf.writeString(`\b`); err != nil {
				return err
			}
			continue
		case '\f':
			if err := buf.writeString(`\f`); err != nil {
				return err
			}
			continue
		}

		if r < 0x20 || r == 0x7f {
			if rn.Flags.Has(NonPrintable) {
				continue
			}
			if err := buf.writeString(fmt.Sprintf(`\u%04x`, r)); err != nil {
				return err
			}
			continue
		}

		if err := buf.writeString(s[i-size : i]); err != nil {
			return err
		}
	}
	return buf.writeByte('"')
}

// writeBasicList renders a basicList as {"@type":"basicList","semantic":...,
// "fieldID":...,"data":[...]}  (spec §4.8), using BasicList.FieldID/Semantic
// for metadata.
func (rn *Renderer) writeBasicList(buf *Buffer, f *DecodedField) error {
	bl, ok := f.Value.(*BasicList)
	if !ok {
		return errInvalidData("json renderer: expected *BasicList for field %s", f.Key)
	}
	if err := buf.writeString(`{"@type":"basicList","semantic":"`); err != nil {
		return err
	}
	if err := buf.writeString(bl.Semantic().String()); err != nil {
		return err
	}
	en, id := bl.FieldID()
	if err := buf.writeString(fmt.Sprintf(`","fieldID":"en%d:id%d","data":[`, en, id)); err != nil {
		return err
	}
	for i, el := range bl.Elements() {
		if i > 0 {
			if err := buf.writeByte(','); err != nil {
				return err
			}
		}
		df := DecodedField{Key: FieldKey{EnterpriseId: en, Id: id}, IE: f.IE, Value: el}
		if err := rn.renderValue(buf, &df); err != nil {
			return err
		}
	}
	return buf.writeString("]}")
}

// writeSubTemplateList renders a subTemplateList as
// {"@type":"subTemplateList","semantic":...,"data":[{...},...]} (spec §4.8),
// recursively rendering each nested Data Record's fields.
func (rn *Renderer) writeSubTemplateList(buf *Buffer, f *DecodedField) error {
	stl, ok := f.Value.(*SubTemplateList)
	if !ok {
		return errInvalidData("json renderer: expected *SubTemplateList for field %s", f.Key)
	}
	if err := buf.writeString(`{"@type":"subTemplateList","semantic":"`); err != nil {
		return err
	}
	if err := buf.writeString(stl.Semantic().String()); err != nil {
		return err
	}
	if err := buf.writeString(`","data":[`); err != nil {
		return err
	}
	for i, dr := range stl.Elements() {
		if i > 0 {
			if err := buf.writeByte(','); err != nil {
				return err
			}
		}
		if err := buf.writeByte('{'); err != nil {
			return err
		}
		if err := rn.renderFields(buf, dr.Fields); err != nil {
			return err
		}
		if err := buf.writeByte('}'); err != nil {
			return err
		}
	}
	return buf.writeString("]}")
}

// writeSubTemplateMultiList renders a subTemplateMultiList as
// {"@type":"subTemplateMultiList","semantic":...,"data":[[{...}],...]}
// (spec §4.8): the outer array walks blocks, the inner array walks each
// block's records.
func (rn *Renderer) writeSubTemplateMultiList(buf *Buffer, f *DecodedField) error {
	stml, ok := f.Value.(*SubTemplateMultiList)
	if !ok {
		return errInvalidData("json renderer: expected *SubTemplateMultiList for field %s", f.Key)
	}
	if err := buf.writeString(`{"@type":"subTemplateMultiList","semantic":"`); err != nil {
		return err
	}
	if err := buf.writeString(stml.Semantic().String()); err != nil {
		return err
	}
	if err := buf.writeString(`","data":[`); err != nil {
		return err
	}
	for i, block := range stml.Blocks() {
		if i > 0 {
			if err := buf.writeByte(','); err != nil {
				return err
			}
		}
		if err := buf.writeByte('['); err != nil {
			return err
		}
		for j, dr := range block.Records {
			if j > 0 {
				if err := buf.writeByte(','); err != nil {
					return err
				}
			}
			if err := buf.writeByte('{'); err != nil {
				return err
			}
			if err := rn.renderFields(buf, dr.Fields); err != nil {
				return err
			}
			if err := buf.writeByte('}'); err != nil {
				return err
			}
		}
		if err := buf.writeByte(']'); err != nil {
			return err
		}
	}
	return buf.writeString("]}")
}
