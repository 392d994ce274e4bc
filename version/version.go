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


package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// APIVersion is a parsed Rhino API version, as used in the path of every
// request (e.g. 'v1', 'v2.1').
type APIVersion struct {
	*semver.Version
}

// ParseAPIVersion parses an API version path segment. The validation is
// looser than the official semver spec: a 'v' prefix is expected and the
// minor and patch segments may be omitted (e.g. 'v1' is valid).
func ParseAPIVersion(v string) (APIVersion, error) {
	if !strings.HasPrefix(v, "v") {
		return APIVersion{}, fmt.Errorf("API version '%s' must start with 'v'", v)
	}
	if strings.Count(v, ".") > 2 {
		return APIVersion{}, semver.ErrInvalidSemVer
	}
	sv, err := semver.NewVersion(v)
	if err != nil {
		return APIVersion{}, err
	}
	return APIVersion{sv}, nil
}

// PathSegment returns the version as it appears in request paths.
func (v APIVersion) PathSegment() string {
	return v.Original()
}
