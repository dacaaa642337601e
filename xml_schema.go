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
	"encoding/xml"
	"io"
	"strconv"
)

// xmlElementsDoc binds the <ipfix-elements> XML schema of spec §6.4. It is
// a typed layer over encoding/xml.Decoder's generic token stream; the core
// never hand-rolls a tokenizer (spec §1: the tokenizer itself is out of
// scope).
type xmlElementsDoc struct {
	Scopes []xmlScope `xml:"scope"`
}

type xmlScope struct {
	PEN    uint32        `xml:"pen"`
	Name   string        `xml:"name"`
	Biflow *xmlBiflowTag `xml:"biflow"`

	Elements []xmlElement `xml:"element"`
}

type xmlBiflowTag struct {
	Mode string `xml:"mode,attr"`
}

type xmlElement struct {
	Id            uint16  `xml:"id"`
	Name          string  `xml:"name"`
	DataType      *string `xml:"dataType"`
	DataSemantics *string `xml:"dataSemantics"`
	Units         *string `xml:"units"`
	Status        *string `xml:"status"`
	BiflowId      *uint16 `xml:"biflowId"`
}

// ReadXMLElements parses an <ipfix-elements> document into Scopes, each
// populated with its InformationElements, per spec §6.4.
func ReadXMLElements(r io.Reader) ([]*Scope, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	doc := xmlElementsDoc{}
	if err := xml.Unmarshal(b, &doc); err != nil {
		return nil, errFormat("ipfix-elements: %v", err)
	}

	scopes := make([]*Scope, 0, len(doc.Scopes))
	for _, xs := range doc.Scopes {
		s := NewScope(xs.PEN, xs.Name)
		if xs.Biflow != nil {
			s.Biflow = ParseBiflowMode(xs.Biflow.Mode)
		}
		for _, xe := range xs.Elements {
			ie := &InformationElement{
				Id:           xe.Id,
				Name:         xe.Name,
				EnterpriseId: xs.PEN,
			}
			if xe.DataType != nil {
				ie.Type = xe.DataType
				ie.Constructor = LookupConstructor(*xe.DataType)
			}
			if xe.DataSemantics != nil {
				_ = ie.Semantics.UnmarshalText([]byte(*xe.DataSemantics))
			}
			if xe.Units != nil {
				ie.Units = xe.Units
			}
			if xe.Status != nil {
				_ = ie.Status.UnmarshalText([]byte(*xe.Status))
			}
			s.add(ie)
			if xe.BiflowId != nil && s.Biflow == BiflowIndividual {
				ie.ReverseRef = &FieldKey{EnterpriseId: xs.PEN, Id: *xe.BiflowId}
			}
		}
		scopes = append(scopes, s)
	}
	return scopes, nil
}

// xmlAliasesDoc binds the <ipfix-aliases> XML schema of spec §6.4.
type xmlAliasesDoc struct {
	Elements []xmlAliasElement `xml:"element"`
}

type xmlAliasElement struct {
	Name    string          `xml:"name"`
	Aliases []string        `xml:"alias"`
	Sources []xmlAliasGroup `xml:"source"`
}

type xmlAliasGroup struct {
	Mode string   `xml:"mode,attr"`
	Ids  []string `xml:"id"`
}

// ReadXMLAliases parses an <ipfix-aliases> document into Aliases.
func ReadXMLAliases(r io.Reader) ([]*Alias, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	doc := xmlAliasesDoc{}
	if err := xml.Unmarshal(b, &doc); err != nil {
		return nil, errFormat("ipfix-aliases: %v", err)
	}

	var out []*Alias
	for _, el := range doc.Elements {
		for _, src := range el.Sources {
			a := &Alias{
				Mode: ParseAliasMode(src.Mode),
			}
			for _, idStr := range src.Ids {
				key, err := parseFieldKeyToken(idStr)
				if err != nil {
					return nil, err
				}
				a.Sources = append(a.Sources, key)
			}
			names := el.Aliases
			if len(names) == 0 {
				names = []string{el.Name}
			}
			for _, n := range names {
				alias := *a
				alias.Name = n
				out = append(out, &alias)
			}
		}
	}
	return out, nil
}

// parseFieldKeyToken parses an XML <id> element's text, either a bare
// IANA id ("12") or "en:id" for enterprise-specific IEs.
func parseFieldKeyToken(s string) (FieldKey, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			en, err1 := strconv.ParseUint(s[:i], 10, 32)
			id, err2 := strconv.ParseUint(s[i+1:], 10, 16)
			if err1 != nil || err2 != nil {
				return FieldKey{}, errFormat("invalid field id token %q", s)
			}
			return FieldKey{EnterpriseId: uint32(en), Id: uint16(id)}, nil
		}
	}
	id, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return FieldKey{}, errFormat("invalid field id token %q", s)
	}
	return FieldKey{Id: uint16(id)}, nil
}

// xmlMappingDoc binds the <ipfix-mapping> XML schema of spec §6.4.
type xmlMappingDoc struct {
	Groups []xmlMappingGroup `xml:"group"`
}

type xmlMappingGroup struct {
	Name    string           `xml:"name"`
	Matches []string         `xml:"match"`
	Items   xmlMappingItemList `xml:"item-list"`
}

type xmlMappingItemList struct {
	Mode  string          `xml:"mode,attr"`
	Items []xmlMappingItem `xml:"item"`
}

type xmlMappingItem struct {
	Key   string `xml:"key"`
	Value int64  `xml:"value"`
}

// ReadXMLMappings parses an <ipfix-mapping> document into Mappings, keyed by
// their group name; Targets carries the <match> entries (alias or IE names)
// the mapping applies to.
func ReadXMLMappings(r io.Reader) ([]*Mapping, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	doc := xmlMappingDoc{}
	if err := xml.Unmarshal(b, &doc); err != nil {
		return nil, errFormat("ipfix-mapping: %v", err)
	}

	out := make([]*Mapping, 0, len(doc.Groups))
	for _, g := range doc.Groups {
		caseSensitive := g.Items.Mode == "caseSensitive"
		m := NewMapping(g.Name, caseSensitive)
		m.Targets = g.Matches
		for _, it := range g.Items.Items {
			m.Add(it.Key, it.Value)
		}
		out = append(out, m)
	}
	return out, nil
}
