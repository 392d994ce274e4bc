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

package doi

import (
	"fmt"
	"regexp"
	"strconv"
)

// ClassKind enumerates the asset classes.
type ClassKind int

const (
	Root ClassKind = iota
	Figure
	Table
	Equation
	Supplement
	Other
)

func (k ClassKind) String() string {
	switch k {
	case Root:
		return "root"
	case Figure:
		return "figure"
	case Table:
		return "table"
	case Equation:
		return "equation"
	case Supplement:
		return "supplement"
	default:
		return "other"
	}
}

// AssetClass is the class of an asset derived from its DOI suffix.
// Figures, tables and equations carry their Index; supplements and other
// assets carry the suffix Token verbatim.
type AssetClass struct {
	Kind  ClassKind
	Index int
	Token string
}

var classRegexp = regexp.MustCompile(`^([gtes])(\d+)(?:\..+)?$`)

// Classify returns the class of an asset with the given DOI suffix.
func Classify(suffix string) AssetClass {
	if suffix == "" {
		return AssetClass{Kind: Root}
	}
	m := classRegexp.FindStringSubmatch(suffix)
	if m == nil {
		return AssetClass{Kind: Other, Token: suffix}
	}
	switch m[1] {
	case "s":
		return AssetClass{Kind: Supplement, Token: suffix}
	case "g":
		return AssetClass{Kind: Figure, Index: atoi(m[2])}
	case "t":
		return AssetClass{Kind: Table, Index: atoi(m[2])}
	default:
		return AssetClass{Kind: Equation, Index: atoi(m[2])}
	}
}

func (c AssetClass) String() string {
	switch c.Kind {
	case Root:
		return c.Kind.String()
	case Figure, Table, Equation:
		return fmt.Sprintf("%s %d", c.Kind, c.Index)
	default:
		return fmt.Sprintf("%s %s", c.Kind, c.Token)
	}
}

// atoi is only fed with digit runs matched by classRegexp; indices too
// large for an int are reported as -1.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
