package php

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shinyvision/twiglens/internal/config"
	"github.com/shinyvision/twiglens/internal/dql"
	"github.com/shinyvision/twiglens/internal/types"
	"github.com/tliron/commonlog"
)

// Functions every Twig environment provides. Only range has a useful type.
var builtinFunctions = map[string]types.Type{
	"absolute_url": types.Any, "asset": types.Any, "asset_version": types.Any,
	"attribute": types.Any, "block": types.Any, "constant": types.Any,
	"csrf_token": types.Any, "cycle": types.Any, "date": types.Any,
	"dump": types.Any, "form": types.Any, "form_end": types.Any,
	"form_errors": types.Any, "form_label": types.Any, "form_rest": types.Any,
	"form_row": types.Any, "form_start": types.Any, "form_widget": types.Any,
	"include": types.Any, "is_granted": types.Any, "logout_path": types.Any,
	"max": types.Any, "min": types.Any, "parent": types.Any, "path": types.Any,
	"random": types.Any, "range": types.ArrayOf(types.Any), "relative_path": types.Any,
	"source": types.Any, "template_from_string": types.Any, "url": types.Any,
}

// Resolver answers class and function questions from PHP sources found
// through the PSR-4 map. Failures are logged and reported as unknown.
type Resolver struct {
	store      *DocumentStore
	functions  map[string]types.Type
	extensions []string
	logger     commonlog.Logger

	mu            sync.Mutex
	generation    int64
	classes       map[string]*types.ClassInfo
	twigFunctions map[string]TwigFunction
	// repositories maps lowercased repository classes to their entity.
	repositories map[string]string
}

func NewResolver(store *DocumentStore, functions map[string]types.Type, extensions []string) *Resolver {
	return &Resolver{
		store:      store,
		functions:  functions,
		extensions: extensions,
		logger:     commonlog.GetLoggerf("twiglens.php"),
		classes:    make(map[string]*types.ClassInfo),
	}
}

// resetIfStaleLocked drops cached answers once any summary changed.
func (r *Resolver) resetIfStaleLocked() {
	if gen := r.store.Generation(); gen != r.generation {
		r.generation = gen
		r.classes = make(map[string]*types.ClassInfo)
		r.twigFunctions = nil
	}
}

// FindClass locates the declaration of a class through the autoload map.
func (r *Resolver) FindClass(name string) (string, ClassSummary, bool) {
	return findClass(r.store, name, r.logger)
}

func findClass(store *DocumentStore, name string, logger commonlog.Logger) (string, ClassSummary, bool) {
	name = normalizeFQN(name)
	if store == nil || name == "" {
		return "", ClassSummary{}, false
	}
	autoload, root := store.Config()
	for _, path := range config.AutoloadResolve(autoload, name, root) {
		file, err := store.Summary(path)
		if err != nil {
			logger.Debugf("skipping %s for %s: %v", path, name, err)
			continue
		}
		if summary, ok := file.Class(name); ok {
			return path, summary, true
		}
	}
	return "", ClassSummary{}, false
}

// ResolveClass returns the member summary of a class with inherited and
// trait members merged in, or nil when the class cannot be found.
func (r *Resolver) ResolveClass(ctx context.Context, name string) *types.ClassInfo {
	if ctx.Err() != nil {
		return nil
	}
	key := strings.ToLower(normalizeFQN(name))
	if key == "" {
		return nil
	}

	r.mu.Lock()
	r.resetIfStaleLocked()
	if info, ok := r.classes[key]; ok {
		r.mu.Unlock()
		return info
	}
	r.mu.Unlock()

	info := r.buildClass(name, make(map[string]bool))
	if info == nil {
		r.logger.Debugf("class %s not found", name)
	}

	r.mu.Lock()
	if entity, ok := r.repositories[key]; ok && info != nil {
		addRepositoryMethods(info, entity)
	}
	r.classes[key] = info
	r.mu.Unlock()
	return info
}

// SetEntities installs the mapped entities. Their repositories gain the
// finder methods Doctrine implements through EntityRepository.
func (r *Resolver) SetEntities(entities dql.EntityTable) {
	repos := make(map[string]string)
	for _, class := range entities.Classes() {
		if repo := entities[class].Repository; repo != "" {
			repos[strings.ToLower(normalizeFQN(repo))] = class
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.repositories = repos
	r.classes = make(map[string]*types.ClassInfo)
}

const entityRepositoryClass = `Doctrine\ORM\EntityRepository`

// addRepositoryMethods types the finders of an entity repository. Methods
// the repository declares itself are left alone.
func addRepositoryMethods(info *types.ClassInfo, entity string) {
	finders := []types.Method{
		{Name: "find", ReturnType: types.Object(entity)},
		{Name: "findOneBy", ReturnType: types.Object(entity)},
		{Name: "findAll", ReturnType: types.ArrayOf(types.Object(entity))},
		{Name: "findBy", ReturnType: types.ArrayOf(types.Object(entity))},
		{Name: "createQueryBuilder", ReturnType: types.Query(entity)},
	}
	for _, m := range finders {
		m.Public = true
		m.Class = entityRepositoryClass
		replaced := false
		for i, existing := range info.Methods {
			if !strings.EqualFold(existing.Name, m.Name) {
				continue
			}
			if !strings.EqualFold(existing.Class, info.Name) {
				info.Methods[i] = m
			}
			replaced = true
			break
		}
		if !replaced {
			info.Methods = append(info.Methods, m)
		}
	}
}

func (r *Resolver) buildClass(name string, visiting map[string]bool) *types.ClassInfo {
	key := strings.ToLower(normalizeFQN(name))
	if visiting[key] {
		r.logger.Warningf("inheritance cycle through %s", name)
		return nil
	}
	visiting[key] = true
	defer delete(visiting, key)

	_, summary, ok := r.FindClass(name)
	if !ok {
		return nil
	}

	info := &types.ClassInfo{Name: summary.FQN, Parent: summary.Parent}
	mergeSummary(info, summary)
	for _, trait := range summary.Traits {
		if t := r.buildClass(trait, visiting); t != nil {
			mergeInfo(info, t)
		}
	}
	if summary.Parent != "" {
		if parent := r.buildClass(summary.Parent, visiting); parent != nil {
			mergeInfo(info, parent)
		}
	}
	return info
}

func mergeSummary(info *types.ClassInfo, summary ClassSummary) {
	for _, p := range summary.Properties {
		info.Properties = append(info.Properties, types.Property{
			Name:   p.Name,
			Public: p.Visibility == "public",
			Type:   types.OrAny(p.Type),
			Class:  summary.FQN,
		})
	}
	for _, m := range summary.Methods {
		info.Methods = append(info.Methods, types.Method{
			Name:       m.Name,
			Public:     m.Visibility == "public",
			ReturnType: types.OrAny(m.ReturnType),
			Class:      summary.FQN,
		})
	}
	for _, c := range summary.Constants {
		info.Constants = append(info.Constants, types.Constant{
			Name:   c.Name,
			Public: c.Visibility == "public",
			Class:  summary.FQN,
		})
	}
}

// mergeInfo appends the members of from that info does not override.
func mergeInfo(info, from *types.ClassInfo) {
	for _, p := range from.Properties {
		if !hasProperty(info, p.Name) {
			info.Properties = append(info.Properties, p)
		}
	}
	for _, m := range from.Methods {
		if !hasMethod(info, m.Name) {
			info.Methods = append(info.Methods, m)
		}
	}
	for _, c := range from.Constants {
		if !hasConstant(info, c.Name) {
			info.Constants = append(info.Constants, c)
		}
	}
}

func hasProperty(info *types.ClassInfo, name string) bool {
	for _, p := range info.Properties {
		if p.Name == name {
			return true
		}
	}
	return false
}

func hasMethod(info *types.ClassInfo, name string) bool {
	for _, m := range info.Methods {
		if strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}

func hasConstant(info *types.ClassInfo, name string) bool {
	for _, c := range info.Constants {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ResolveFunctionReturnType answers configured functions first, then
// functions declared by Twig extensions, then Twig built-ins.
func (r *Resolver) ResolveFunctionReturnType(ctx context.Context, name string) (types.Type, bool) {
	if t, ok := r.functions[name]; ok {
		return types.OrAny(t), true
	}
	if fn, ok := r.TwigFunction(ctx, name); ok {
		if fn.Method == "" {
			return types.Any, true
		}
		if m, ok := r.ResolveClass(ctx, fn.Class).PublicMethod(fn.Method); ok {
			return types.OrAny(m.ReturnType), true
		}
		return types.Any, true
	}
	if t, ok := builtinFunctions[name]; ok {
		return t, true
	}
	return nil, false
}

// TwigFunction looks a function up among the configured extensions.
func (r *Resolver) TwigFunction(ctx context.Context, name string) (TwigFunction, bool) {
	r.mu.Lock()
	r.resetIfStaleLocked()
	fns := r.twigFunctions
	r.mu.Unlock()

	if fns == nil {
		if ctx.Err() != nil {
			return TwigFunction{}, false
		}
		fns = r.scanExtensions()
		r.mu.Lock()
		r.twigFunctions = fns
		r.mu.Unlock()
	}
	fn, ok := fns[name]
	return fn, ok
}

// TwigFunctions returns every function declared by the configured extensions.
func (r *Resolver) TwigFunctions(ctx context.Context) map[string]TwigFunction {
	r.TwigFunction(ctx, "")
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]TwigFunction, len(r.twigFunctions))
	for k, v := range r.twigFunctions {
		out[k] = v
	}
	return out
}

// FunctionNames lists every function the resolver knows, sorted.
func (r *Resolver) FunctionNames(ctx context.Context) []string {
	seen := make(map[string]bool)
	for name := range r.functions {
		seen[name] = true
	}
	for name := range r.TwigFunctions(ctx) {
		seen[name] = true
	}
	for name := range builtinFunctions {
		seen[name] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
