package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/shinyvision/twiglens/internal/config"
	"github.com/shinyvision/twiglens/internal/doctrine"
	"github.com/shinyvision/twiglens/internal/dql"
	"github.com/shinyvision/twiglens/internal/php"
	"github.com/shinyvision/twiglens/internal/twig"
	"github.com/shinyvision/twiglens/internal/utils"
	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var logger = commonlog.GetLoggerf("twiglens.analyzer")

// documentCacheSize bounds how many closed PHP files stay parsed.
const documentCacheSize = 200

// Workspace is the project knowledge every analyzer shares.
type Workspace struct {
	Config   *config.Config
	Store    *php.DocumentStore
	Resolver *php.Resolver
	Entities dql.EntityTable
}

// NewWorkspace wires the PHP resolver and the Doctrine entity table for cfg.
// Mapping errors are logged; whatever loaded is still used.
func NewWorkspace(cfg *config.Config) *Workspace {
	store := php.NewDocumentStore(documentCacheSize)
	store.Configure(cfg.Autoload, cfg.WorkspaceRoot)

	entities, err := doctrine.Load(cfg.AbsDirs(cfg.EntityDirs), cfg.AbsDirs(cfg.MappingDirs))
	if err != nil {
		logger.Warningf("doctrine mappings: %v", err)
	}
	resolver := php.NewResolver(store, cfg.FunctionTypes(), cfg.Extensions)
	resolver.SetEntities(entities)

	return &Workspace{
		Config:   cfg,
		Store:    store,
		Resolver: resolver,
		Entities: entities,
	}
}

func location(path string, rng protocol.Range) []protocol.Location {
	return []protocol.Location{{
		URI:   protocol.DocumentUri(utils.PathToURI(path)),
		Range: rng,
	}}
}

func (w *Workspace) classLocation(class string) ([]protocol.Location, bool) {
	path, rng, ok := php.Resolve(w.Store, class)
	if !ok {
		return nil, false
	}
	return location(path, rng), true
}

// memberLocation jumps to a member of class, or to the class itself when
// the member is declared somewhere find cannot see.
func (w *Workspace) memberLocation(class string, find func(path string) (protocol.Range, bool)) ([]protocol.Location, bool) {
	path, classRange, ok := php.Resolve(w.Store, class)
	if !ok {
		return nil, false
	}
	if rng, ok := find(path); ok {
		return location(path, rng), true
	}
	return location(path, classRange), true
}

func (w *Workspace) methodLocation(class, method string) ([]protocol.Location, bool) {
	return w.memberLocation(class, func(path string) (protocol.Range, bool) {
		return php.FindMethodRange(w.Store, path, class, method)
	})
}

func (w *Workspace) propertyLocation(class, property string) ([]protocol.Location, bool) {
	return w.memberLocation(class, func(path string) (protocol.Range, bool) {
		return php.FindPropertyRange(w.Store, path, class, property)
	})
}

func (w *Workspace) functionLocation(ctx context.Context, name string) ([]protocol.Location, bool) {
	fn, ok := w.Resolver.TwigFunction(ctx, name)
	if !ok || fn.Path == "" {
		return nil, false
	}
	return location(fn.Path, php.ToProtocolRange(fn.Range)), true
}

// resolveTemplate finds a template file through the configured template
// directories and @namespaces.
func (w *Workspace) resolveTemplate(name string) (string, bool) {
	namespaces := make(map[string]string, len(w.Config.TemplateNamespaces))
	for ns, dir := range w.Config.TemplateNamespaces {
		namespaces[ns] = w.Config.Abs(dir)
	}
	path, tried, ok := twig.ResolveTemplate(name, w.Config.AbsDirs(w.Config.TemplateDirs), namespaces)
	if ok {
		return path, true
	}
	if len(tried) == 0 {
		logger.Infof("definition not found for twig path '%s': no candidates tried", name)
	} else {
		logger.Infof("definition not found for twig path '%s'; tried %d candidates, last: %s", name, len(tried), tried[len(tried)-1])
		for i, c := range tried {
			logger.Debugf("candidate %d: %s", i+1, c)
		}
	}
	return "", false
}

func (w *Workspace) relativePath(path string) string {
	return utils.RelativeTo(w.Config.WorkspaceRoot, path)
}

func (w *Workspace) describeEntity(class string) string {
	entity := w.Entities.Get(class)
	if entity == nil {
		return phpBlock("(entity) " + class + " (not mapped)")
	}
	lines := []string{"(entity) " + entity.Class}
	if entity.Repository != "" {
		lines = append(lines, "repository: "+entity.Repository)
	}
	return phpBlock(lines...)
}

// describeField is empty when class has no such mapped field.
func (w *Workspace) describeField(class, name string) string {
	field, ok := w.Entities.Get(class).Field(name)
	if !ok {
		return ""
	}
	if field.IsRelation {
		target := field.Target
		if field.ToMany {
			target += "[]"
		}
		return phpBlock(fmt.Sprintf("(relation) %s::$%s: %s", class, field.Name, target))
	}
	fieldType := field.Type
	if fieldType == "" {
		fieldType = "mixed"
	}
	return phpBlock(fmt.Sprintf("(field) %s::$%s: %s", class, field.Name, fieldType))
}

// entityCompletionItems offers mapped entity classes starting with prefix.
func (w *Workspace) entityCompletionItems(prefix string) []protocol.CompletionItem {
	prefix = strings.TrimPrefix(prefix, `\`)
	items := []protocol.CompletionItem{}
	for _, class := range w.Entities.Classes() {
		if strings.HasPrefix(class, prefix) {
			items = append(items, completionItem(class, protocol.CompletionItemKindClass, "entity"))
		}
	}
	return items
}
