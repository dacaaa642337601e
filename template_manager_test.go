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
	"testing"

	"github.com/stretchr/testify/require"
)

func tmplFor(id uint16, typ TemplateType) *Template {
	return &Template{Id: id, Type: typ, FieldCount: 1, Raw: []byte{byte(id >> 8), byte(id)}}
}

func TestTemplateManagerWithdrawAll(t *testing.T) {
	tm := NewTemplateManager(TransportTCP)
	require.NoError(t, tm.SetTime(10))

	require.NoError(t, tm.TemplateAdd(tmplFor(256, TemplateData)))
	require.NoError(t, tm.TemplateAdd(tmplFor(257, TemplateData)))
	require.NoError(t, tm.TemplateAdd(tmplFor(258, TemplateOptions)))

	require.NoError(t, tm.SetTime(11))
	require.NoError(t, tm.WithdrawAll(TemplateData))

	_, ok := tm.TemplateGet(256)
	require.False(t, ok)
	_, ok = tm.TemplateGet(257)
	require.False(t, ok)

	opts, ok := tm.TemplateGet(258)
	require.True(t, ok)
	require.Equal(t, uint16(258), opts.Id)

	garbage := tm.GarbageGet()
	require.Len(t, garbage.Templates(), 2)
}

func TestTemplateManagerWithdrawAllDeniedOnUDP(t *testing.T) {
	tm := NewTemplateManager(TransportUDP)
	require.NoError(t, tm.SetTime(1))
	require.NoError(t, tm.TemplateAdd(tmplFor(256, TemplateData)))

	err := tm.WithdrawAll(TemplateData)
	require.Error(t, err)

	_, ok := tm.TemplateGet(256)
	require.True(t, ok)
}

func TestTemplateManagerWithdrawAllRequiresCursor(t *testing.T) {
	tm := NewTemplateManager(TransportTCP)
	err := tm.WithdrawAll(TemplateData)
	require.Error(t, err)
}
