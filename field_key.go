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
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FieldKey identifies an Information Element by (enterprise number, id), the
// primary key of the IE registry (spec §3.1).
type FieldKey struct {
	EnterpriseId uint32
	Id           uint16
}

func NewFieldKey(enterpriseId uint32, fieldId uint16) FieldKey {
	return FieldKey{EnterpriseId: enterpriseId, Id: fieldId}
}

const FieldKeySeparator string = ":"

func (k FieldKey) String() string {
	return fmt.Sprintf("%d%s%d", k.EnterpriseId, FieldKeySeparator, k.Id)
}

func (k *FieldKey) MarshalText() (text []byte, err error) {
	return []byte(k.String()), nil
}

func (k *FieldKey) UnmarshalText(text []byte) error {
	key := strings.Split(string(text), FieldKeySeparator)
	if len(key) != 2 {
		return errors.New("field key format is invalid")
	}
	en, err := strconv.ParseUint(key[0], 10, 32)
	if err != nil {
		return fmt.Errorf("enterprise number is invalid, %w", err)
	}
	id, err := strconv.ParseUint(key[1], 10, 16)
	if err != nil {
		return fmt.Errorf("field id is invalid, %w", err)
	}
	k.EnterpriseId = uint32(en)
	k.Id = uint16(id)
	return nil
}
