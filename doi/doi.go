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

// Package doi parses article, asset and asset file identifiers and derives
// the names they are stored under inside an ingestible archive.
//
// The grammar of an asset file identifier (AFID) is
//
//	<prefix>/[journal.]<stem>[.<suffix>].<extension>
//
// where the stem is either '<journal>.<number>' (e.g. pone.0038869) or the
// issue image form 'image.<journal>.v<n>.i<n>'. Asset DOIs follow the same
// grammar without the extension.
package doi

import (
	"regexp"
	"strings"

	"github.com/ambraproject/rhino-pack/fault"
)

const (
	// URIScheme is prepended to a DOI to form its URI.
	URIScheme = "info:doi/"

	journalToken = "journal."
)

var (
	prefixPattern = `(\d+\.\d+)`
	stemPattern   = `(image\.[A-Za-z]+\.v\d+\.i\d+|[A-Za-z]+\.\d+)`

	afidRegexp = regexp.MustCompile(`^` + prefixPattern + `/(journal\.)?` + stemPattern +
		`(?:\.(.+?))?\.([^./]+)$`)
	doiRegexp = regexp.MustCompile(`^` + prefixPattern + `/(journal\.)?` + stemPattern +
		`(?:\.(.+))?$`)
	prefixRegexp = regexp.MustCompile(`^` + prefixPattern + `$`)
)

// Identifier is a parsed DOI or AFID.
type Identifier struct {
	// Prefix is the registrant prefix, e.g. '10.1371'.
	Prefix string
	// Journal records whether the identifier carries the 'journal.' token.
	Journal bool
	// Stem is the article local identifier, e.g. 'pone.0038869'.
	Stem string
	// Suffix selects an asset of the article, e.g. 'g001'. Empty for the
	// root asset. Suffixes may contain dots and are kept verbatim.
	Suffix string
	// Extension is the representation token of an AFID as given on input,
	// e.g. 'TIF' or 'PNG_M'. Empty for DOIs.
	Extension string
}

// ParseAFID parses an asset file identifier. All four components must be
// present; a Protocol error is returned otherwise.
func ParseAFID(afid string) (Identifier, error) {
	m := afidRegexp.FindStringSubmatch(afid)
	if m == nil {
		return Identifier{}, fault.New(fault.Protocol, "invalid asset file identifier '%s'", afid)
	}
	return Identifier{
		Prefix:    m[1],
		Journal:   m[2] != "",
		Stem:      m[3],
		Suffix:    m[4],
		Extension: m[5],
	}, nil
}

// ParseDOI parses an article or asset DOI. URIs in the 'info:doi/' form
// are accepted as well.
func ParseDOI(doi string) (Identifier, error) {
	m := doiRegexp.FindStringSubmatch(strings.TrimPrefix(doi, URIScheme))
	if m == nil {
		return Identifier{}, fault.New(fault.Protocol, "invalid DOI '%s'", doi)
	}
	return Identifier{
		Prefix:  m[1],
		Journal: m[2] != "",
		Stem:    m[3],
		Suffix:  m[4],
	}, nil
}

// ValidPrefix reports whether p is a well-formed DOI registrant prefix.
func ValidPrefix(p string) bool {
	return prefixRegexp.MatchString(p)
}

// Normalize turns user input into a full DOI. Full DOIs and 'info:doi/'
// URIs are returned as DOIs, stems such as 'pone.0038869' are expanded to
// '<prefix>/journal.pone.0038869' and 'journal.' or 'image.' forms get the
// prefix prepended.
func Normalize(input, prefix string) string {
	input = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), URIScheme))
	switch {
	case strings.Contains(input, "/"):
		return input
	case strings.HasPrefix(input, journalToken), strings.HasPrefix(input, "image."):
		return prefix + "/" + input
	default:
		return prefix + "/" + journalToken + input
	}
}

// DOI returns the DOI of the identified asset, without extension.
func (id Identifier) DOI() string {
	var b strings.Builder
	b.WriteString(id.Prefix)
	b.WriteByte('/')
	if id.Journal {
		b.WriteString(journalToken)
	}
	b.WriteString(id.Stem)
	if id.Suffix != "" {
		b.WriteByte('.')
		b.WriteString(id.Suffix)
	}
	return b.String()
}

// String returns the identifier in its input form: the AFID when an
// extension is set, the DOI otherwise.
func (id Identifier) String() string {
	if id.Extension == "" {
		return id.DOI()
	}
	return id.DOI() + "." + id.Extension
}

// URI returns the 'info:doi/' form of the asset DOI.
func (id Identifier) URI() string {
	return URIScheme + id.DOI()
}

// FileName returns the name of the AFID inside an archive:
// '<stem>[.<suffix>].<lowercase-extension>'.
func (id Identifier) FileName() string {
	name := id.Stem
	if id.Suffix != "" {
		name += "." + id.Suffix
	}
	if id.Extension != "" {
		name += "." + strings.ToLower(id.Extension)
	}
	return name
}

// Representation returns the manifest representation name of the AFID,
// which is its extension upper-cased.
func (id Identifier) Representation() string {
	return strings.ToUpper(id.Extension)
}

// Asset returns the identifier of the asset owning this AFID.
func (id Identifier) Asset() Identifier {
	id.Extension = ""
	return id
}

// Article returns the identifier of the article owning this asset.
func (id Identifier) Article() Identifier {
	id.Suffix = ""
	id.Extension = ""
	return id
}

// IsRoot reports whether the identifier names the root asset of its
// article.
func (id Identifier) IsRoot() bool {
	return id.Suffix == ""
}

// Class classifies the identified asset by its suffix.
func (id Identifier) Class() AssetClass {
	return Classify(id.Suffix)
}
