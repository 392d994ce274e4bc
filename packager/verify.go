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


package packager

import (
	"bytes"

	"github.com/ambraproject/rhino-pack/archive"
	"github.com/ambraproject/rhino-pack/fault"
	"github.com/ambraproject/rhino-pack/manifest"
)

// Verify checks a produced archive: its manifest must be valid and list
// exactly the payload entries of the archive, and the DTD must be the one
// the manifest declares.
func Verify(path string) (*manifest.Manifest, error) {
	r, err := archive.Inspect(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	names := r.Names()
	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			return nil, fault.New(fault.Archive, "duplicate entry '%s'", name)
		}
		seen[name] = true
	}
	for _, required := range []string{manifest.FileName, manifest.DTDFileName} {
		if !seen[required] {
			return nil, fault.New(fault.Archive, "archive has no '%s' entry", required)
		}
	}

	dtd, err := r.ReadFile(manifest.DTDFileName)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(dtd, manifest.DTD) {
		return nil, fault.New(fault.Archive, "'%s' does not match the manifest DTD", manifest.DTDFileName)
	}

	doc, err := r.ReadFile(manifest.FileName)
	if err != nil {
		return nil, err
	}
	if err := manifest.CheckDoctype(doc); err != nil {
		return nil, err
	}
	m, err := manifest.Parse(doc)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	listed := map[string]bool{}
	for _, name := range m.Entries() {
		listed[name] = true
		if !seen[name] {
			return nil, fault.New(fault.Archive, "manifest entry '%s' is missing from the archive", name)
		}
	}
	for _, name := range names {
		if name == manifest.FileName || name == manifest.DTDFileName {
			continue
		}
		if !listed[name] {
			return nil, fault.New(fault.Archive, "entry '%s' is not listed in the manifest", name)
		}
	}
	return m, nil
}
