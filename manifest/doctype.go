/*
Copyright 2026 The rhino-pack Authors

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


package manifest

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/ambraproject/rhino-pack/fault"
)

const doctype = `DOCTYPE manifest SYSTEM "` + DTDFileName + `"`

// CheckDoctype verifies that a serialized manifest declares the manifest
// DTD ahead of a 'manifest' root element.
func CheckDoctype(data []byte) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlDeclRegexp.ReplaceAll(data, nil)); err != nil {
		return fault.Wrap(fault.Protocol, err, "failed to read manifest")
	}

	declared := false
	for _, t := range doc.Child {
		switch t := t.(type) {
		case *etree.Directive:
			if strings.Join(strings.Fields(t.Data), " ") == doctype {
				declared = true
			}
		case *etree.Element:
			if t.Tag != "manifest" {
				return fault.New(fault.Protocol, "unexpected root element '%s'", t.Tag)
			}
			if !declared {
				return fault.New(fault.Protocol, "manifest does not declare the '%s' DTD", DTDFileName)
			}
			return nil
		}
	}
	return fault.New(fault.Protocol, "manifest has no root element")
}
