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
	"sort"
	"strings"

	"github.com/ambraproject/rhino-pack/doi"
	"github.com/ambraproject/rhino-pack/fault"
)

const (
	xmlRepresentation = "XML"
	pdfRepresentation = "PDF"
)

// Bundle is the resolved asset graph of an article.
type Bundle struct {
	// DOI of the article, which is also the DOI of its root asset.
	DOI string

	// StrikingImageURI is the advertised striking image, in 'info:doi/'
	// form. Empty when the article has none.
	StrikingImageURI string

	// Assets maps asset DOIs to the AFIDs of their representations.
	Assets map[string][]string
}

// File is one AFID of the bundle placed in the archive.
type File struct {
	AFID  doi.Identifier
	Entry string
}

// Build returns the manifest of the bundle together with the files it
// references, in the order they are written to the archive: the article
// representations as listed in the article element, then the
// representations of every object.
//
// The article element lists the XML representation first, then the PDF
// representation, followed by the remaining root representations sorted by
// name. Objects are sorted by asset DOI and their representations by name.
// Assets without representations are left out.
func Build(b Bundle) (*Manifest, []File, error) {
	article, err := doi.ParseDOI(b.DOI)
	if err != nil {
		return nil, nil, err
	}
	if !article.IsRoot() {
		return nil, nil, fault.New(fault.Protocol, "'%s' is not an article DOI", b.DOI)
	}

	entries := map[string]string{}
	resolve := func(assetDOI string, afids []string) ([]File, error) {
		files := make([]File, 0, len(afids))
		for _, afid := range afids {
			id, err := doi.ParseAFID(afid)
			if err != nil {
				return nil, err
			}
			if id.Asset().DOI() != assetDOI {
				return nil, fault.New(fault.Protocol, "afid '%s' does not belong to asset '%s'", afid, assetDOI)
			}
			if id.Prefix != article.Prefix {
				return nil, fault.New(fault.Protocol, "afid '%s' has prefix '%s', expected '%s'",
					afid, id.Prefix, article.Prefix)
			}
			if id.Article().DOI() != article.DOI() {
				return nil, fault.New(fault.Protocol, "afid '%s' belongs to article '%s', not '%s'",
					afid, id.Article().DOI(), article.DOI())
			}
			name := id.FileName()
			if other, ok := entries[name]; ok {
				return nil, fault.New(fault.Protocol, "afids '%s' and '%s' share the entry '%s'", other, afid, name)
			}
			entries[name] = afid
			files = append(files, File{AFID: id, Entry: name})
		}
		return files, nil
	}

	rootFiles, err := resolve(article.DOI(), b.Assets[article.DOI()])
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(rootFiles, func(i, j int) bool {
		ri, rj := rootRank(rootFiles[i]), rootRank(rootFiles[j])
		if ri != rj {
			return ri < rj
		}
		return rootFiles[i].AFID.Representation() < rootFiles[j].AFID.Representation()
	})
	if len(rootFiles) == 0 || rootFiles[0].AFID.Representation() != xmlRepresentation {
		return nil, nil, fault.New(fault.Protocol, "article '%s' has no XML representation", b.DOI)
	}

	m := &Manifest{}
	m.Bundle.Article = Article{
		URI:             article.URI(),
		MainEntry:       rootFiles[0].Entry,
		Representations: representations(rootFiles),
	}
	ordered := append([]File{}, rootFiles...)

	assetDOIs := make([]string, 0, len(b.Assets))
	for assetDOI := range b.Assets {
		if assetDOI != article.DOI() {
			assetDOIs = append(assetDOIs, assetDOI)
		}
	}
	sort.Strings(assetDOIs)

	striking := strings.TrimPrefix(b.StrikingImageURI, doi.URIScheme)
	for _, assetDOI := range assetDOIs {
		files, err := resolve(assetDOI, b.Assets[assetDOI])
		if err != nil {
			return nil, nil, err
		}
		sort.Slice(files, func(i, j int) bool {
			return files[i].AFID.Representation() < files[j].AFID.Representation()
		})
		if len(files) == 0 {
			continue
		}
		o := Object{
			URI:             files[0].AFID.Asset().URI(),
			Representations: representations(files),
		}
		if striking != "" && assetDOI == striking {
			o.StrikingImage = StrikingImage
		}
		m.Bundle.Objects = append(m.Bundle.Objects, o)
		ordered = append(ordered, files...)
	}
	return m, ordered, nil
}

func representations(files []File) []Representation {
	reps := make([]Representation, 0, len(files))
	for _, f := range files {
		reps = append(reps, Representation{Name: f.AFID.Representation(), Entry: f.Entry})
	}
	return reps
}

func rootRank(f File) int {
	switch f.AFID.Representation() {
	case xmlRepresentation:
		return 0
	case pdfRepresentation:
		return 1
	default:
		return 2
	}
}
