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
	"github.com/flowforge/ipfixcore/iana/semantics"
	"github.com/flowforge/ipfixcore/iana/units"
)

// definesInformationElement is a heuristic pre-check for whether a decoded
// Data Record carries a (RFC 5610) Information Element definition: both the
// id and name scope fields must be present.
func definesInformationElement(dr *DataRecord) bool {
	_, hasId := dr.GetByKey(0, 303)
	_, hasName := dr.GetByKey(0, 341)
	return hasId && hasName
}

// dataRecordToIE implements RFC 5610's dynamic IE learning mechanism:
// exporters such as yaf/nDPI first announce an options
// template shaped like
//
//  1. privateEnterpriseNumber (0/346) [scope]
//  2. informationElementId (0/303) [scope]
//  3. informationElementDataType (0/339)
//  4. informationElementSemantics (0/344)
//  5. informationElementUnits (0/345)
//  6. informationElementRangeBegin (0/342)
//  7. informationElementRangeEnd (0/343)
//  8. informationElementName (0/341)
//  9. informationElementDescription (0/340)
//
// then exports further Data Records of that template to describe additional
// IEs. dataRecordToIE converts one such decoded record into an
// InformationElement the caller can register with an IEManager.
func dataRecordToIE(dr *DataRecord) (*InformationElement, error) {
	if !definesInformationElement(dr) {
		return nil, nil
	}

	ie := &InformationElement{}

	if f, ok := dr.GetByKey(0, 346); ok { // privateEnterpriseNumber
		eid, ok := f.Value.(*Unsigned32)
		if !ok {
			return nil, errInvalidData("'privateEnterpriseNumber' field is not of type Unsigned32, cannot use field for deriving new IE")
		}
		ie.EnterpriseId = eid.Value().(uint32)
	}

	f, ok := dr.GetByKey(0, 303) // informationElementId
	if !ok {
		return nil, errInvalidData("cannot derive a new IE without informationElementId being present in the data record")
	}
	id, ok := f.Value.(*Unsigned16)
	if !ok {
		return nil, errInvalidData("'informationElementId' field is not of type Unsigned16, cannot use field for deriving new IE")
	}
	ie.Id = id.Value().(uint16)

	nf, ok := dr.GetByKey(0, 341) // informationElementName
	if !ok {
		return nil, errInvalidData("rejecting field with undefined name")
	}
	n, ok := nf.Value.(*String)
	if !ok {
		return nil, errInvalidData("'informationElementName' field is not of type String, cannot use field for deriving new IE")
	}
	ie.Name = n.Value().(string)

	if f, ok := dr.GetByKey(0, 340); ok { // informationElementDescription
		if n, ok := f.Value.(*String); ok {
			desc := n.Value().(string)
			ie.Description = &desc
		}
	}

	if f, ok := dr.GetByKey(0, 339); ok { // informationElementDataType
		dt, ok := f.Value.(*Unsigned8)
		if !ok {
			return nil, errInvalidData("'informationElementDataType' field is not of type Unsigned8, cannot use field for deriving new IE")
		}
		dtc := DataTypeFromNumber(dt.Value().(uint8))
		typ := dtc().Type()
		ie.Type = &typ
		ie.Constructor = dtc
	}

	semantic := semantics.Default
	if f, ok := dr.GetByKey(0, 344); ok { // informationElementSemantics
		if sem, ok := f.Value.(*Unsigned8); ok {
			semantic = semantics.FromNumber(sem.Value().(uint8))
		}
	}
	ie.Semantics = semantic

	if f, ok := dr.GetByKey(0, 345); ok { // informationElementUnits
		if r, ok := f.Value.(*Unsigned16); ok {
			u := units.FromNumber(r.Value().(uint16))
			ie.Units = &u
		}
	}

	var rang *InformationElementRange
	if f, ok := dr.GetByKey(0, 342); ok { // informationElementRangeBegin
		rang = &InformationElementRange{}
		if r, ok := f.Value.(*Unsigned64); ok {
			rang.Low = int(r.Value().(uint64))
		}
	}
	if f, ok := dr.GetByKey(0, 343); ok { // informationElementRangeEnd
		if rang == nil {
			rang = &InformationElementRange{}
		}
		if r, ok := f.Value.(*Unsigned64); ok {
			rang.High = int(r.Value().(uint64))
		}
	}
	if rang != nil {
		ie.Range = rang
	}

	return ie, nil
}
