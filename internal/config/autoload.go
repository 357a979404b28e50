package config

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Psr4Map maps namespace prefixes (with trailing backslash) to directories.
type Psr4Map map[string][]string

type AutoloadMap struct {
	PSR4 Psr4Map
}

func (m AutoloadMap) IsEmpty() bool {
	return len(m.PSR4) == 0
}

func GetPsr4Map(autoloadFile, phpPath string) (Psr4Map, error) {
	// It is important to use the absolute path to the file, otherwise php will not find it.
	absAutoloadFile, err := filepath.Abs(autoloadFile)
	if err != nil {
		return nil, errors.Wrapf(err, "could not get absolute path for %s", autoloadFile)
	}
	if phpPath == "" {
		phpPath = "php"
	}

	cmd := exec.Command(phpPath, "-r", fmt.Sprintf("echo json_encode(require '%s');", absAutoloadFile))
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrap(err, "could not execute php script")
	}

	var psr4Map Psr4Map
	if err := json.Unmarshal(out, &psr4Map); err != nil {
		return nil, errors.Wrap(err, "could not unmarshal json")
	}

	return psr4Map, nil
}

type composerFile struct {
	Autoload    composerAutoload `json:"autoload"`
	AutoloadDev composerAutoload `json:"autoload-dev"`
}

type composerAutoload struct {
	PSR4 map[string]json.RawMessage `json:"psr-4"`
}

// ComposerPsr4Map reads the psr-4 sections of a composer.json. It is the
// fallback when no php binary can evaluate the generated autoloader.
func ComposerPsr4Map(composerJSON string) (Psr4Map, error) {
	data, err := os.ReadFile(composerJSON)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", composerJSON)
	}
	var file composerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "could not decode %s", composerJSON)
	}

	base := filepath.Dir(composerJSON)
	out := make(Psr4Map)
	for _, section := range []composerAutoload{file.Autoload, file.AutoloadDev} {
		for prefix, raw := range section.PSR4 {
			var dirs []string
			var single string
			if err := json.Unmarshal(raw, &single); err == nil {
				dirs = []string{single}
			} else if err := json.Unmarshal(raw, &dirs); err != nil {
				return nil, errors.Wrapf(err, "invalid psr-4 entry %q", prefix)
			}
			for _, dir := range dirs {
				out[prefix] = append(out[prefix], filepath.Join(base, dir))
			}
		}
	}
	return out, nil
}

// AutoloadResolve returns the candidate files for a class, longest matching
// prefix first. Relative directories are taken from the workspace root.
func AutoloadResolve(autoload AutoloadMap, className, workspaceRoot string) []string {
	className = strings.TrimPrefix(className, `\`)
	if className == "" {
		return nil
	}

	prefixes := make([]string, 0, len(autoload.PSR4))
	for prefix := range autoload.PSR4 {
		if strings.HasPrefix(className, prefix) {
			prefixes = append(prefixes, prefix)
		}
	}
	sort.Slice(prefixes, func(i, j int) bool {
		return len(prefixes[i]) > len(prefixes[j])
	})

	var out []string
	for _, prefix := range prefixes {
		rel := strings.ReplaceAll(strings.TrimPrefix(className, prefix), `\`, string(filepath.Separator)) + ".php"
		for _, dir := range autoload.PSR4[prefix] {
			if !filepath.IsAbs(dir) && workspaceRoot != "" {
				dir = filepath.Join(workspaceRoot, dir)
			}
			out = append(out, filepath.Join(dir, rel))
		}
	}
	return out
}
