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


package rhino

import (
	"sort"
	"strings"

	"github.com/ambraproject/rhino-pack/fault"
)

// Article is the record of a published article as returned by the
// articles endpoint.
type Article struct {
	DOI              string `json:"doi"`
	LastModified     string `json:"lastModified,omitempty"`
	StrikingImageURI string `json:"strkImgURI,omitempty"`

	// Assets maps asset DOIs to the files of each asset. An asset with an
	// empty file map has to be resolved through the assets endpoint.
	Assets map[string]AssetFiles `json:"assets"`
}

// AssetDOIs returns the DOIs of all assets of the article, sorted.
func (a *Article) AssetDOIs() []string {
	dois := make([]string, 0, len(a.Assets))
	for doi := range a.Assets {
		dois = append(dois, doi)
	}
	sort.Strings(dois)
	return dois
}

// Asset is the record of one asset as returned by the assets endpoint.
type Asset struct {
	DOI   string
	Files AssetFiles
}

// AssetFiles maps AFIDs to their metadata.
type AssetFiles map[string]AssetFile

// AFIDs returns the asset file identifiers, sorted.
func (f AssetFiles) AFIDs() []string {
	afids := make([]string, 0, len(f))
	for afid := range f {
		afids = append(afids, afid)
	}
	sort.Strings(afids)
	return afids
}

// setIDs copies the map keys into the records.
func (f AssetFiles) setIDs() {
	for afid, file := range f {
		file.AFID = afid
		f[afid] = file
	}
}

// AssetFile is the metadata of one representation of an asset.
type AssetFile struct {
	AFID         string `json:"-"`
	ContentType  string `json:"contentType,omitempty"`
	Size         int64  `json:"size,omitempty"`
	Created      string `json:"created,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
	MD5          string `json:"md5,omitempty"`
	SHA1         string `json:"sha1,omitempty"`
}

// Checksum returns the content hashes advertised for the file.
func (f AssetFile) Checksum() Checksum {
	return Checksum{MD5: f.MD5, SHA1: f.SHA1}
}

// Checksum holds hex encoded content hashes. Empty values are unknown.
type Checksum struct {
	MD5  string `json:"md5,omitempty"`
	SHA1 string `json:"sha1,omitempty"`
}

// IsZero reports whether no hash is known.
func (c Checksum) IsZero() bool {
	return c.MD5 == "" && c.SHA1 == ""
}

// Verify compares the hashes known on both sides and returns an Integrity
// error on the first mismatch. Hashes are compared case-insensitively.
func (c Checksum) Verify(computed Checksum) error {
	if c.MD5 != "" && computed.MD5 != "" && !strings.EqualFold(c.MD5, computed.MD5) {
		return fault.New(fault.Integrity, "computed md5 '%s' doesn't match advertised '%s'", computed.MD5, c.MD5)
	}
	if c.SHA1 != "" && computed.SHA1 != "" && !strings.EqualFold(c.SHA1, computed.SHA1) {
		return fault.New(fault.Integrity, "computed sha1 '%s' doesn't match advertised '%s'", computed.SHA1, c.SHA1)
	}
	return nil
}
