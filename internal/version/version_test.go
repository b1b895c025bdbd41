package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	old := [3]string{Version, GitSHA, BuildTime}
	t.Cleanup(func() { Version, GitSHA, BuildTime = old[0], old[1], old[2] })

	assert.Equal(t, "trackfit dev (unknown, built unknown)", String())

	Version, GitSHA, BuildTime = "0.3.1", "abc1234", "2026-10-01T12:00:00Z"
	assert.Equal(t, "trackfit 0.3.1 (abc1234, built 2026-10-01T12:00:00Z)", String())
}
