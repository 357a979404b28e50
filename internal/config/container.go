package config

import (
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/shinyvision/twiglens/internal/utils"
	"github.com/tliron/commonlog"
)

const (
	templateLoaderID   = "twig.loader.native_filesystem"
	twigEnvironmentID  = "twig"
	twigExtensionTag   = "twig.extension"
	maxAliasResolution = 10
)

// TemplatePath is one addPath call on the Twig filesystem loader. Namespace
// is empty for paths without one.
type TemplatePath struct {
	Path      string
	Namespace string
}

// Container is what the compiled container tells about Twig.
type Container struct {
	ServiceClasses map[string]string
	ServiceAliases map[string]string
	TemplatePaths  []TemplatePath
	// Extensions are the classes of services tagged twig.extension.
	Extensions []string
	// Globals maps addGlobal names to the id of the service they hold.
	Globals map[string]string
}

type containerArgument struct {
	value   string
	service string
}

type containerService struct {
	id        string
	class     string
	alias     string
	extension bool
	calls     map[string][][]containerArgument
}

// ParseContainer reads a compiled container dump. Whatever was read before a
// syntax error is returned along with the error.
func ParseContainer(r io.Reader) (*Container, error) {
	ct := &Container{
		ServiceClasses: make(map[string]string),
		ServiceAliases: make(map[string]string),
		Globals:        make(map[string]string),
	}

	dec := xml.NewDecoder(r)
	dec.Strict = false

	var (
		current *containerService
		depth   int
		method  string
		args    []containerArgument
		arg     *containerArgument
		text    strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return ct, nil
		}
		if err != nil {
			return ct, errors.Wrap(err, "could not parse container")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if current == nil {
				if t.Name.Local == "service" {
					current = &containerService{
						id:    xmlAttr(t, "id"),
						class: xmlAttr(t, "class"),
						alias: xmlAttr(t, "alias"),
						calls: make(map[string][][]containerArgument),
					}
					depth = 1
				}
				continue
			}
			depth++
			// Inline services below arguments are skipped.
			switch {
			case depth == 2 && t.Name.Local == "tag":
				if xmlAttr(t, "name") == twigExtensionTag {
					current.extension = true
				}
			case depth == 2 && t.Name.Local == "call":
				method = xmlAttr(t, "method")
				args = nil
			case depth == 3 && method != "" && t.Name.Local == "argument":
				arg = &containerArgument{}
				if xmlAttr(t, "type") == "service" {
					arg.service = xmlAttr(t, "id")
				}
				text.Reset()
			}

		case xml.CharData:
			if arg != nil {
				text.Write(t)
			}

		case xml.EndElement:
			if current == nil {
				continue
			}
			switch {
			case depth == 3 && arg != nil:
				arg.value = strings.TrimSpace(text.String())
				args = append(args, *arg)
				arg = nil
			case depth == 2 && method != "":
				current.calls[method] = append(current.calls[method], args)
				method = ""
			}
			depth--
			if depth == 0 {
				ct.add(current)
				current = nil
			}
		}
	}
}

func (ct *Container) add(s *containerService) {
	if s.id == "" {
		return
	}
	if s.class != "" {
		ct.ServiceClasses[s.id] = s.class
	} else if s.alias != "" {
		ct.ServiceAliases[s.id] = s.alias
	}
	if s.extension {
		class := s.class
		if class == "" {
			class = s.id
		}
		ct.Extensions = utils.AppendUnique(ct.Extensions, class)
	}

	switch s.id {
	case templateLoaderID:
		for _, args := range s.calls["addPath"] {
			if len(args) == 0 || args[0].value == "" {
				continue
			}
			tp := TemplatePath{Path: args[0].value}
			if len(args) >= 2 {
				tp.Namespace = args[1].value
			}
			ct.TemplatePaths = append(ct.TemplatePaths, tp)
		}
	case twigEnvironmentID:
		for _, args := range s.calls["addGlobal"] {
			if len(args) >= 2 && args[0].value != "" && args[1].service != "" {
				ct.Globals[args[0].value] = args[1].service
			}
		}
	}
}

// Resolves a service ID to its class name.
func (ct *Container) ResolveServiceId(serviceID string) (string, bool) {
	// First, check if it's a direct class
	if class, ok := ct.ServiceClasses[serviceID]; ok {
		return class, true
	}

	// If not, check if it's an alias and resolve recursively
	resolvedID := serviceID
	for range maxAliasResolution {
		targetID, ok := ct.ServiceAliases[resolvedID]
		if !ok {
			return "", false
		}
		resolvedID = targetID
		if class, ok := ct.ServiceClasses[resolvedID]; ok {
			return class, true
		}
	}
	return "", false
}

// LoadContainer merges the Twig setup of the compiled container into c.
// Values set in twiglens.yaml win over the container.
func (c *Config) LoadContainer() {
	logger := commonlog.GetLoggerf("twiglens.config")
	if c.ContainerXMLPath == "" {
		return
	}

	path := c.Abs(c.ContainerXMLPath)
	f, err := os.Open(path)
	if err != nil {
		logger.Warningf("cannot read container_xml_path: %v", err)
		return
	}
	defer f.Close()

	ct, err := ParseContainer(f)
	if err != nil {
		logger.Warningf("error while parsing %s: %v", path, err)
	}

	addedBare, addedNamespaced := 0, 0
	for _, tp := range ct.TemplatePaths {
		dir := c.Abs(tp.Path)
		switch {
		case tp.Namespace == "":
			before := len(c.TemplateDirs)
			c.TemplateDirs = utils.AppendUnique(c.TemplateDirs, dir)
			if len(c.TemplateDirs) > before {
				addedBare++
			}
		case strings.HasPrefix(tp.Namespace, "!"):
			// Symfony's "!Name" namespaces skip bundle overrides.
		default:
			if _, ok := c.TemplateNamespaces[tp.Namespace]; !ok {
				c.TemplateNamespaces[tp.Namespace] = dir
				addedNamespaced++
			}
		}
	}

	c.Extensions = appendUnique(c.Extensions, ct.Extensions...)

	addedGlobals := 0
	for _, name := range sortedKeys(ct.Globals) {
		if _, ok := c.Globals[name]; ok {
			continue
		}
		if class, ok := ct.ResolveServiceId(ct.Globals[name]); ok {
			c.Globals[name] = class
			addedGlobals++
		}
	}

	logger.Infof(
		"container_xml_path: loaded %d bare roots, %d template namespaces, %d twig extensions and %d globals from XML",
		addedBare, addedNamespaced, len(ct.Extensions), addedGlobals,
	)
}

func xmlAttr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
