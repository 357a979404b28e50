package config

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPsr4Map(t *testing.T) {
	if _, err := exec.LookPath("php"); err != nil {
		t.Skip("php binary not available")
	}
	dir := t.TempDir()
	autoloadFile := filepath.Join(dir, "autoload_psr4.php")
	script := `<?php
$baseDir = __DIR__;
return array(
    'VendorNamespace\\' => array($baseDir . '/vendor'),
    'BaseNamespace\\' => array($baseDir . '/base'),
);
`
	require.NoError(t, os.WriteFile(autoloadFile, []byte(script), 0o644))

	psr4Map, err := GetPsr4Map(autoloadFile, "php")
	require.NoError(t, err)

	expected := Psr4Map{
		"VendorNamespace\\": []string{filepath.Join(dir, "vendor")},
		"BaseNamespace\\":   []string{filepath.Join(dir, "base")},
	}
	assert.Equal(t, expected, psr4Map)
}

func TestGetPsr4MapMissingBinary(t *testing.T) {
	_, err := GetPsr4Map(filepath.Join(t.TempDir(), "autoload_psr4.php"), filepath.Join(t.TempDir(), "no-php"))
	assert.Error(t, err)
}

func TestComposerPsr4Map(t *testing.T) {
	dir := t.TempDir()
	composer := `{
  "autoload": {"psr-4": {"App\\": "src/"}},
  "autoload-dev": {"psr-4": {"App\\Tests\\": ["tests/", "tests-extra/"]}}
}`
	path := filepath.Join(dir, "composer.json")
	require.NoError(t, os.WriteFile(path, []byte(composer), 0o644))

	psr4Map, err := ComposerPsr4Map(path)
	require.NoError(t, err)
	assert.Equal(t, Psr4Map{
		`App\`:        {filepath.Join(dir, "src")},
		`App\Tests\`: {filepath.Join(dir, "tests"), filepath.Join(dir, "tests-extra")},
	}, psr4Map)

	_, err = ComposerPsr4Map(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestAutoloadResolve(t *testing.T) {
	autoload := AutoloadMap{PSR4: Psr4Map{
		`App\`:        {"src"},
		`App\Entity\`: {"/abs/entities"},
	}}

	got := AutoloadResolve(autoload, `\App\Entity\Product`, "/work")
	assert.Equal(t, []string{
		filepath.Join("/abs/entities", "Product.php"),
		filepath.Join("/work/src", "Entity", "Product.php"),
	}, got)

	assert.Empty(t, AutoloadResolve(autoload, `Vendor\Thing`, "/work"))
	assert.Empty(t, AutoloadResolve(autoload, "", "/work"))
	assert.True(t, AutoloadMap{}.IsEmpty())
	assert.False(t, autoload.IsEmpty())
}

func TestLoadPsr4MapFallsBackToComposer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "composer.json"),
		[]byte(`{"autoload": {"psr-4": {"App\\": "src/"}}}`), 0o644))

	c := NewConfig()
	c.WorkspaceRoot = dir
	c.PhpPath = filepath.Join(dir, "missing-php")
	c.LoadPsr4Map()
	assert.Equal(t, Psr4Map{`App\`: {filepath.Join(dir, "src")}}, c.Autoload.PSR4)

	if runtime.GOOS == "windows" {
		return
	}
	// A php that evaluates to an empty map is not trusted either.
	php := filepath.Join(dir, "php")
	require.NoError(t, os.WriteFile(php, []byte("#!/bin/sh\necho '{}'\n"), 0o755))
	c = NewConfig()
	c.WorkspaceRoot = dir
	c.PhpPath = php
	c.LoadPsr4Map()
	assert.False(t, c.Autoload.IsEmpty())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "composer.json"), []byte(`{}`), 0o644))
	c.LoadPsr4Map()
	assert.True(t, c.Autoload.IsEmpty())
}
