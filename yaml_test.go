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

func sampleIEs() map[uint16]*InformationElement {
	octets := "octetArray"
	return map[uint16]*InformationElement{
		1: {Id: 1, Name: "octetDeltaCount", Type: &octets, Constructor: NewUnsigned64},
		8: {Id: 8, Name: "sourceIPv4Address", Constructor: NewIPv4Address},
	}
}

func TestWriteYAML(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteYAML(buf, sampleIEs()); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected non-empty YAML output")
	}
}

func TestReadYAML(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteYAML(buf, sampleIEs()); err != nil {
		t.Fatal(err)
	}

	got, err := ReadYAML(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(got))
	}
	if got[8].Name != "sourceIPv4Address" {
		t.Fatalf("expected sourceIPv4Address, got %s", got[8].Name)
	}
}
