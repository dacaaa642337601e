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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadConfigDecodesScopesAndRegistries(t *testing.T) {
	doc := `
useDefaultRegistry: false
registries:
  - path: /etc/ipfix/registry
    overwriteScope: true
scopes:
  - pen: 35566
    name: acme
    biflow: pen
    biflowPen: 35566
    biflowIdBit: 7
`
	c, err := ReadConfig(strings.NewReader(doc))
	require.NoError(t, err)
	require.False(t, c.UseDefaultRegistry)
	require.Len(t, c.Registries, 1)
	require.Equal(t, "/etc/ipfix/registry", c.Registries[0].Path)
	require.True(t, c.Registries[0].OverwriteScope)
	require.Len(t, c.Scopes, 1)
	require.Equal(t, uint32(35566), c.Scopes[0].PEN)
	require.Equal(t, "acme", c.Scopes[0].Name)
	require.Equal(t, "pen", c.Scopes[0].Biflow)
}

func TestReadConfigRejectsUnknownFields(t *testing.T) {
	doc := `
useDefaultRegistry: true
bogusField: true
`
	_, err := ReadConfig(strings.NewReader(doc))
	require.Error(t, err)
}

func TestConfigBuildIEManagerRegistersScope(t *testing.T) {
	c := &Config{
		UseDefaultRegistry: false,
		Scopes: []ScopeConfig{
			{PEN: 35566, Name: "acme", Biflow: "pen", BiflowPEN: 35566, BiflowIDBit: 7},
		},
	}

	m, err := c.BuildIEManager()
	require.NoError(t, err)
	require.NotNil(t, m)

	_, ok := m.scopes[35566]
	require.True(t, ok)
	require.Equal(t, BiflowPEN, m.scopes[35566].Biflow)
}

func TestConfigBuildIEManagerRegistryLoadFailure(t *testing.T) {
	c := &Config{
		Registries: []RegistryConfig{{Path: "/nonexistent/path/does-not-exist"}},
	}

	_, err := c.BuildIEManager()
	require.Error(t, err)
}
