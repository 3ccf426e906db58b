package driver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildChildEnv_SetsSessionVars(t *testing.T) {
	env := BuildChildEnv([]string{"HOME=/home/ci"}, "session-xyz", "specs/login.js", "./videos")

	m := envToMap(env)
	assert.Equal(t, "session-xyz", m[EnvSession])
	assert.Equal(t, "specs/login.js", m[EnvSpec])
	assert.Equal(t, "./videos", m[EnvOutputDir])
	assert.Equal(t, "/home/ci", m["HOME"])
}

func TestBuildChildEnv_OverwritesInherited(t *testing.T) {
	base := []string{"ADBREC_SESSION=old", "ADBREC_SPEC=/old.js", "PATH=/bin"}

	env := BuildChildEnv(base, "new", "/new.js", "out")

	m := envToMap(env)
	assert.Equal(t, "new", m[EnvSession])
	assert.Equal(t, "/new.js", m[EnvSpec])
	assert.Equal(t, "/bin", m["PATH"])

	count := 0
	for _, e := range env {
		if strings.HasPrefix(e, EnvSession+"=") {
			count++
		}
	}
	assert.Equal(t, 1, count, "ADBREC_SESSION should appear exactly once")
}

func TestBuildChildEnv_DoesNotMutateBase(t *testing.T) {
	base := []string{"ADBREC_SESSION=old"}
	_ = BuildChildEnv(base, "new", "", "out")
	assert.Equal(t, []string{"ADBREC_SESSION=old"}, base)
}

func TestBuildChildEnv_KeepsMalformedEntries(t *testing.T) {
	env := BuildChildEnv([]string{"NOEQUALSSIGN"}, "s", "", "out")
	assert.Contains(t, env, "NOEQUALSSIGN")
}

func TestSplitEnvVar(t *testing.T) {
	key, val, ok := splitEnvVar("FOO=bar=baz")
	assert.True(t, ok)
	assert.Equal(t, "FOO", key)
	assert.Equal(t, "bar=baz", val)

	_, _, ok = splitEnvVar("NOEQUALSSIGN")
	assert.False(t, ok)

	key, val, ok = splitEnvVar("EMPTY=")
	assert.True(t, ok)
	assert.Equal(t, "EMPTY", key)
	assert.Equal(t, "", val)
}

// envToMap converts a []string env slice into a map for easier assertions.
func envToMap(env []string) map[string]string {
	m := make(map[string]string)
	for _, e := range env {
		k, v, ok := splitEnvVar(e)
		if ok {
			m[k] = v
		}
	}
	return m
}
