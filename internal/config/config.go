package config

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/shinyvision/twiglens/internal/types"
	"github.com/shinyvision/twiglens/internal/utils"
	"github.com/tliron/commonlog"
	"gopkg.in/yaml.v3"
)

// FileName is the optional per-workspace configuration file.
const FileName = "twiglens.yaml"

type Config struct {
	WorkspaceRoot string
	VendorDir     string
	PhpPath       string
	Autoload      AutoloadMap
	// ContainerXMLPath points at Symfony's compiled container dump.
	ContainerXMLPath string
	// Globals maps twig global names to type expressions.
	Globals map[string]string
	// Functions maps twig function names to return type expressions.
	Functions map[string]string
	// Namespaces maps DQL short aliases (App:Product) to namespace prefixes.
	Namespaces  map[string]string
	EntityDirs  []string
	MappingDirs []string
	// Extensions lists Twig extension classes whose getFunctions() are
	// scanned for TwigFunction declarations.
	Extensions   []string
	TemplateDirs []string
	// TemplateNamespaces maps @Name template prefixes to directories.
	TemplateNamespaces map[string]string
}

func NewConfig() *Config {
	return &Config{
		VendorDir: "vendor",
		PhpPath:   "php",
		Autoload:  AutoloadMap{PSR4: make(Psr4Map)},
		Globals: map[string]string{
			"app": `Symfony\Bridge\Twig\AppVariable`,
		},
		Functions: make(map[string]string),
		Namespaces: map[string]string{
			"App": `App\Entity`,
		},
		EntityDirs:         []string{"src/Entity"},
		MappingDirs:        []string{"config/doctrine"},
		TemplateDirs:       []string{"templates"},
		TemplateNamespaces: make(map[string]string),
	}
}

type fileConfig struct {
	VendorDir    string            `yaml:"vendor_dir"`
	PhpPath      string            `yaml:"php_path"`
	ContainerXML string            `yaml:"container_xml_path"`
	Globals      map[string]string `yaml:"globals"`
	Functions    map[string]string `yaml:"functions"`
	Namespaces   map[string]string `yaml:"namespaces"`
	EntityDirs   []string          `yaml:"entity_dirs"`
	MappingDirs  []string          `yaml:"mapping_dirs"`
	Extensions   []string          `yaml:"twig_extensions"`
	Templates    []string          `yaml:"template_dirs"`
	TemplateNS   map[string]string `yaml:"template_namespaces"`
}

// LoadFile merges twiglens.yaml from the workspace root into c. A missing
// file is not an error.
func (c *Config) LoadFile() error {
	logger := commonlog.GetLoggerf("twiglens.config")
	path := filepath.Join(c.WorkspaceRoot, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debugf("no %s in %s", FileName, c.WorkspaceRoot)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "could not read %s", path)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return errors.Wrapf(err, "could not decode %s", path)
	}

	if fc.VendorDir != "" {
		c.VendorDir = fc.VendorDir
	}
	if fc.PhpPath != "" {
		c.PhpPath = fc.PhpPath
	}
	if fc.ContainerXML != "" {
		c.ContainerXMLPath = fc.ContainerXML
	}
	mergeMap(c.Globals, fc.Globals)
	mergeMap(c.Functions, fc.Functions)
	mergeMap(c.Namespaces, fc.Namespaces)
	if len(fc.EntityDirs) > 0 {
		c.EntityDirs = fc.EntityDirs
	}
	if len(fc.MappingDirs) > 0 {
		c.MappingDirs = fc.MappingDirs
	}
	c.Extensions = appendUnique(c.Extensions, fc.Extensions...)
	if len(fc.Templates) > 0 {
		c.TemplateDirs = fc.Templates
	}
	mergeMap(c.TemplateNamespaces, fc.TemplateNS)
	logger.Infof("loaded %s", path)
	return nil
}

// ApplyOptions merges LSP initialization options. Keys mirror twiglens.yaml.
func (c *Config) ApplyOptions(m map[string]any) {
	if str, ok := m["vendor_dir"].(string); ok && str != "" {
		c.VendorDir = str
	}
	if str, ok := m["php_path"].(string); ok && str != "" {
		c.PhpPath = str
	}
	if str, ok := m["container_xml_path"].(string); ok && str != "" {
		c.ContainerXMLPath = str
	}
	mergeMap(c.Globals, stringMap(m["globals"]))
	mergeMap(c.Functions, stringMap(m["functions"]))
	mergeMap(c.Namespaces, stringMap(m["namespaces"]))
	if dirs := stringSlice(m["entity_dirs"]); len(dirs) > 0 {
		c.EntityDirs = dirs
	}
	if dirs := stringSlice(m["mapping_dirs"]); len(dirs) > 0 {
		c.MappingDirs = dirs
	}
	c.Extensions = appendUnique(c.Extensions, stringSlice(m["twig_extensions"])...)
	if dirs := stringSlice(m["template_dirs"]); len(dirs) > 0 {
		c.TemplateDirs = dirs
	}
	mergeMap(c.TemplateNamespaces, stringMap(m["template_namespaces"]))
}

// LoadPsr4Map asks php for the generated psr-4 map. An empty or failed
// result falls back to the autoload sections of composer.json.
func (c *Config) LoadPsr4Map() {
	logger := commonlog.GetLoggerf("twiglens.config")
	if c.VendorDir == "" {
		return
	}

	autoloadFile := c.Abs(filepath.Join(c.VendorDir, "composer", "autoload_psr4.php"))
	psr4Map, err := GetPsr4Map(autoloadFile, c.PhpPath)
	if err != nil {
		logger.Warningf("could not load psr4 map: %v", err)
	}
	c.Autoload = AutoloadMap{PSR4: psr4Map}

	if c.Autoload.IsEmpty() {
		psr4Map, err = ComposerPsr4Map(c.Abs("composer.json"))
		if err != nil {
			logger.Warningf("could not read composer.json autoload: %v", err)
			return
		}
		c.Autoload = AutoloadMap{PSR4: psr4Map}
	}
	if c.Autoload.IsEmpty() {
		logger.Warning("no psr-4 mappings found, PHP classes will not resolve")
		return
	}
	logger.Infof("loaded %d psr-4 mappings", len(c.Autoload.PSR4))
}

// Abs resolves path against the workspace root.
func (c *Config) Abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.WorkspaceRoot, path)
}

// AbsDirs resolves every directory against the workspace root.
func (c *Config) AbsDirs(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		out = append(out, c.Abs(dir))
	}
	return out
}

// GlobalScope builds the initial scope of every template from the configured
// globals.
func (c *Config) GlobalScope() *types.Scope {
	scope := types.NewScope(nil)
	for _, name := range sortedKeys(c.Globals) {
		scope.Set(name, types.ParseExpr(c.Globals[name]))
	}
	return scope
}

// FunctionTypes parses the configured function return types.
func (c *Config) FunctionTypes() map[string]types.Type {
	out := make(map[string]types.Type, len(c.Functions))
	for name, expr := range c.Functions {
		out[name] = types.ParseExpr(expr)
	}
	return out
}

func mergeMap(dst, src map[string]string) {
	for k, v := range src {
		if k != "" && v != "" {
			dst[k] = v
		}
	}
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		dst = utils.AppendUnique(dst, v)
	}
	return dst
}

func stringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, raw := range m {
		if str, ok := raw.(string); ok {
			out[k] = str
		}
	}
	return out
}

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, raw := range arr {
		if str, ok := raw.(string); ok && str != "" {
			out = append(out, str)
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
