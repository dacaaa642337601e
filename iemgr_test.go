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
	"testing"
)

func TestIEManagerExportImportYAMLRoundtrip(t *testing.T) {
	src := NewIEManager()
	if err := src.AddElement(InformationElement{Id: 8, Name: "sourceIPv4Address", Constructor: NewIPv4Address}, 0, false); err != nil {
		t.Fatalf("AddElement: %v", err)
	}
	if err := src.AddElement(InformationElement{Id: 12, Name: "destinationIPv4Address", Constructor: NewIPv4Address}, 0, false); err != nil {
		t.Fatalf("AddElement: %v", err)
	}

	buf := &bytes.Buffer{}
	if err := src.ExportYAML(buf, 0); err != nil {
		t.Fatalf("ExportYAML: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected non-empty YAML export")
	}

	dst := NewIEManager()
	if err := dst.ImportYAML(buf, 0, false); err != nil {
		t.Fatalf("ImportYAML: %v", err)
	}
	if _, ok := dst.FindByID(0, 8); !ok {
		t.Fatal("expected imported element 8 to be found")
	}
	if _, ok := dst.FindByID(0, 12); !ok {
		t.Fatal("expected imported element 12 to be found")
	}
}

func TestIEManagerExportYAMLUnknownScope(t *testing.T) {
	m := NewIEManager()
	if err := m.ExportYAML(&bytes.Buffer{}, 99); err == nil {
		t.Fatal("expected error exporting unregistered scope")
	}
}
