package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBlake3HashDeterministic(t *testing.T) {
	path := writeConfig(t, "service:\n  name: hashme\n")

	h1, err := ComputeBlake3Hash(path)
	require.NoError(t, err)
	h2, err := ComputeBlake3Hash(path)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64) // 256-bit hex
}

func TestLockThenLoadSucceeds(t *testing.T) {
	path := writeConfig(t, "service:\n  name: locked\n")

	manifest, err := LockConfig(path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.Version)
	assert.Contains(t, manifest.Hashes, "config.yaml")

	_, err = Load(path)
	assert.NoError(t, err)
}

func TestTamperedConfigFailsLoad(t *testing.T) {
	path := writeConfig(t, "service:\n  name: original\n")

	_, err := LockConfig(path, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("service:\n  name: tampered\n"), 0o644))

	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash mismatch")
}

func TestDryRunWritesNothing(t *testing.T) {
	path := writeConfig(t, "service:\n  name: dry\n")

	manifest, err := LockConfig(path, true)
	require.NoError(t, err)
	assert.NotEmpty(t, manifest.Hashes)

	_, err = os.Stat(filepath.Join(filepath.Dir(path), ".checksums"))
	assert.True(t, os.IsNotExist(err))
}

func TestMissingManifestIsNotAnError(t *testing.T) {
	path := writeConfig(t, "service:\n  name: unlocked\n")
	assert.NoError(t, VerifyChecksums(path))
}
