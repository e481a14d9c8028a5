/*
Copyright 2026.

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

// Package version compares plugin version strings.
package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
)

// Normalize trims whitespace and a leading "v" or "V".
func Normalize(version string) string {
	v := strings.TrimSpace(version)
	if len(v) > 1 && (v[0] == 'v' || v[0] == 'V') {
		v = v[1:]
	}

	return v
}

// Parse parses a plugin version. Partial versions such as "1.2" are accepted.
func Parse(version string) (*semver.Version, error) {
	v, err := semver.NewVersion(Normalize(version))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse version %q", version)
	}

	return v, nil
}

// Compare compares two version strings.
// Returns:
//
//	-1 if v1 < v2
//	 0 if v1 == v2
//	 1 if v1 > v2
func Compare(v1, v2 string) (int, error) {
	ver1, err := Parse(v1)
	if err != nil {
		return 0, errors.Wrap(err, "failed to parse first version")
	}

	ver2, err := Parse(v2)
	if err != nil {
		return 0, errors.Wrap(err, "failed to parse second version")
	}

	return ver1.Compare(ver2), nil
}

// IsNewer reports whether candidate is a strictly newer version than installed.
// Empty or unparsable versions are never newer.
func IsNewer(candidate, installed string) bool {
	if strings.TrimSpace(candidate) == "" || strings.TrimSpace(installed) == "" {
		return false
	}

	cmp, err := Compare(candidate, installed)
	if err != nil {
		return false
	}

	return cmp > 0
}
