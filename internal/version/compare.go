package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// CheckVersionCompatibility reports whether results written by fileVersion may be
// merged with results produced by engineVersion.
//
// Rules:
//   - "main" on either side skips the check (development build)
//   - an empty file version is a legacy file and is accepted
//   - major and minor must match, patch may differ
//
// Examples:
//   - engine 0.4.2, file 0.4.0 -> OK
//   - engine 0.5.0, file 0.4.0 -> ERROR (minor differs)
//   - engine 1.0.0, file 0.4.0 -> ERROR (major differs)
func CheckVersionCompatibility(engineVersion, fileVersion string) error {
	engineVersion = strings.TrimPrefix(engineVersion, "v")
	fileVersion = strings.TrimPrefix(fileVersion, "v")

	if engineVersion == "main" || fileVersion == "main" || fileVersion == "" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine version '%s'", engineVersion)
	}

	fileSemver, err := semver.NewVersion(fileVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid results file version '%s'", fileVersion)
	}

	if engineSemver.Major() != fileSemver.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"major version mismatch: engine is %d.x.x but results file was written by %d.x.x",
			engineSemver.Major(), fileSemver.Major())
	}

	if engineSemver.Minor() != fileSemver.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"minor version mismatch: engine is %d.%d.x but results file was written by %d.%d.x",
			engineSemver.Major(), engineSemver.Minor(),
			fileSemver.Major(), fileSemver.Minor())
	}

	return nil
}
