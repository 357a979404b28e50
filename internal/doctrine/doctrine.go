// Package doctrine builds the entity table DQL resolution runs against from
// attribute, XML and YAML mappings.
package doctrine

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/shinyvision/twiglens/internal/dql"
	"github.com/tliron/commonlog"
)

var logger = commonlog.GetLoggerf("twiglens.doctrine")

// Load reads attribute mappings from entityDirs and XML/YAML mappings from
// mappingDirs. Files that fail to parse are logged and skipped; the error
// reports directories that could not be walked.
func Load(entityDirs, mappingDirs []string) (dql.EntityTable, error) {
	table := dql.EntityTable{}
	var errs []string

	add := func(loaded dql.EntityTable, err error) {
		for _, class := range loaded.Classes() {
			table.Add(loaded[class])
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	add(LoadAttributes(entityDirs))
	add(LoadXML(mappingDirs))
	add(LoadYAML(mappingDirs))

	logger.Infof("loaded %d doctrine entities", len(table))
	if len(errs) > 0 {
		return table, errors.New(strings.Join(errs, "; "))
	}
	return table, nil
}

// walkFiles calls fn for every file below dirs whose name ends in one of
// the suffixes. Missing directories are ignored.
func walkFiles(dirs []string, fn func(path string) error, suffixes ...string) error {
	for _, dir := range dirs {
		if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
			logger.Debugf("mapping directory %s does not exist", dir)
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !hasSuffix(path, suffixes) {
				return nil
			}
			if err := fn(path); err != nil {
				logger.Warningf("skipping %s: %v", path, err)
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "could not walk %s", dir)
		}
	}
	return nil
}

func hasSuffix(path string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

// Qualify resolves a target entity written relative to the namespace of
// the owning entity.
func Qualify(target, owner string) string {
	target = strings.TrimPrefix(strings.TrimSpace(target), `\`)
	if target == "" || strings.Contains(target, `\`) {
		return target
	}
	if i := strings.LastIndexByte(owner, '\\'); i > 0 {
		return owner[:i+1] + target
	}
	return target
}
