package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrent(t *testing.T) {
	defer func(v, sha, bt string) { Version, GitSHA, BuildTime = v, sha, bt }(Version, GitSHA, BuildTime)
	Version, GitSHA, BuildTime = "v0.3.0", "abc123", "2026-01-02T03:04:05Z"

	assert.Equal(t, Info{Version: "v0.3.0", GitSHA: "abc123", BuildTime: "2026-01-02T03:04:05Z"}, Current())
	assert.Equal(t, "sholl v0.3.0 (abc123, built 2026-01-02T03:04:05Z)", String())
}
