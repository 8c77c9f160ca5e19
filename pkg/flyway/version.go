// SPDX-License-Identifier: Apache-2.0

package flyway

import (
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/mod/semver"
)

// MinVersion is the oldest Flyway release known to support the flags this
// tool passes (notably -baselineDescription).
const MinVersion = "7.0.0"

var (
	ErrUnparsableVersion = errors.New("could not parse flyway version output")
	ErrVersionTooOld     = errors.New("flyway version is too old")
)

// versionRE matches the release number in output such as
// "Flyway Community Edition 9.22.3 by Redgate".
var versionRE = regexp.MustCompile(`Flyway[^0-9]*(\d+\.\d+(?:\.\d+)?)`)

// ParseVersion extracts the release number from `flyway -v` output.
func ParseVersion(out string) (string, error) {
	m := versionRE.FindStringSubmatch(out)
	if m == nil {
		return "", ErrUnparsableVersion
	}
	return m[1], nil
}

// CheckMinVersion returns an error if the given Flyway version predates
// MinVersion.
func CheckMinVersion(version string) error {
	v := ensureVPrefix(version)
	min := ensureVPrefix(MinVersion)

	if !semver.IsValid(v) {
		return fmt.Errorf("%w: %q", ErrUnparsableVersion, version)
	}

	if semver.Compare(semver.Canonical(v), semver.Canonical(min)) < 0 {
		return fmt.Errorf("%w: have %s, need at least %s", ErrVersionTooOld, version, MinVersion)
	}

	return nil
}

// Ensure that the given version string starts with 'v' to ensure
// compatibility with the `golang.org/x/mod/semver` package
func ensureVPrefix(version string) string {
	if len(version) > 0 && version[0] != 'v' {
		return "v" + version
	}
	return version
}
