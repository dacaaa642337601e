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
	"github.com/flowforge/ipfixcore/iana/status"
)

// NewUnassignedIE builds a placeholder InformationElement for an (en, id)
// pair with no registry entry: name "unassigned", octetArray encoding,
// undefined semantics and status. decodeFieldValue's UnknownSkip=off
// fallback does not call it: that path decodes the value as an octetArray
// and leaves the field's IE nil.
func NewUnassignedIE(en uint32, id uint16) *InformationElement {
	return &InformationElement{
		Name:         "unassigned",
		Id:           id,
		EnterpriseId: en,
		Constructor:  NewOctetArray,
		Semantics:    semantics.Undefined,
		Status:       status.Undefined,
	}
}
