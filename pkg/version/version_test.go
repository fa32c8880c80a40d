package version

import (
	"encoding/json"
	"regexp"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_FollowsSemverOrDev(t *testing.T) {
	// Given: the version package is imported

	// Then: Version is "dev" or a (possibly pseudo-) semver
	if Version == "dev" {
		return
	}
	semverRegex := regexp.MustCompile(`^v?\d+\.\d+\.\d+([-+][a-zA-Z0-9.+-]+)?$`)
	require.True(t, semverRegex.MatchString(Version), "got: %s", Version)
}

func withBuildVars(t *testing.T, version, commit, date string) {
	t.Helper()
	oldV, oldC, oldD := Version, Commit, Date
	Version, Commit, Date = version, commit, date
	t.Cleanup(func() { Version, Commit, Date = oldV, oldC, oldD })
}

func TestFillFromBuildInfo_UsesStampsWhenUnset(t *testing.T) {
	// Given: a build without ldflags
	withBuildVars(t, "dev", "unknown", "unknown")
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v1.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
		},
	}

	// When: filling from the embedded build info
	fillFromBuildInfo(bi)

	// Then: module version and shortened revision are used
	assert.Equal(t, "v1.4.0", Version)
	assert.Equal(t, "0123456789ab", Commit)
	assert.Equal(t, "2026-10-01T12:00:00Z", Date)
}

func TestFillFromBuildInfo_LdflagsWin(t *testing.T) {
	withBuildVars(t, "1.2.3", "abc123", "2026-01-01")
	bi := &debug.BuildInfo{
		Main:     debug.Module{Version: "v9.9.9"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	}

	fillFromBuildInfo(bi)

	assert.Equal(t, "1.2.3", Version)
	assert.Equal(t, "abc123", Commit)
	assert.Equal(t, "2026-01-01", Date)
}

func TestFillFromBuildInfo_IgnoresDevelVersion(t *testing.T) {
	withBuildVars(t, "dev", "unknown", "unknown")

	fillFromBuildInfo(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})

	assert.Equal(t, "dev", Version)
	assert.Equal(t, "unknown", Commit)
}

func TestString_ReturnsFormattedString(t *testing.T) {
	// When: calling String()
	str := String()

	// Then: it names the program, version, commit and Go version
	assert.Contains(t, str, "orderindex "+Version)
	assert.Contains(t, str, "commit: "+Commit)
	assert.Contains(t, str, "go: "+GoVersion)
}

func TestShort_ReturnsVersion(t *testing.T) {
	assert.Equal(t, Version, Short())
}

func TestGetInfo_MarshalsPlatform(t *testing.T) {
	// Given: the structured build info
	info := GetInfo()

	// When: encoding it
	data, err := json.Marshal(info)
	require.NoError(t, err)

	// Then: the platform fields use snake_case keys
	var m map[string]string
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, runtime.GOOS, m["os"])
	assert.Equal(t, runtime.GOARCH, m["arch"])
	assert.Equal(t, Version, m["version"])
	assert.Contains(t, m, "go_version")
}
