package inference

import (
	"context"
	"sort"

	"github.com/shinyvision/twiglens/internal/types"
)

// Resolver answers questions about the host application. Both methods report
// "unknown" instead of failing: a nil class, or ok == false for a function
// that is not registered.
type Resolver interface {
	ResolveClass(ctx context.Context, name string) *types.ClassInfo
	ResolveFunctionReturnType(ctx context.Context, name string) (types.Type, bool)
}

// ResolverFuncs adapts plain functions to Resolver. Nil fields resolve nothing.
type ResolverFuncs struct {
	Class    func(ctx context.Context, name string) *types.ClassInfo
	Function func(ctx context.Context, name string) (types.Type, bool)
}

func (r ResolverFuncs) ResolveClass(ctx context.Context, name string) *types.ClassInfo {
	if r.Class == nil {
		return nil
	}
	return r.Class(ctx, name)
}

func (r ResolverFuncs) ResolveFunctionReturnType(ctx context.Context, name string) (types.Type, bool) {
	if r.Function == nil {
		return nil, false
	}
	return r.Function(ctx, name)
}

// NameInfo classifies a NAME token: Variable, ClassMethod, ClassProperty or
// Function.
type NameInfo interface {
	nameInfo()
}

// Variable is a leading name bound in scope.
type Variable struct {
	Type types.Type
}

// ClassMethod is a member name resolved to a method. Type is the method's
// return type.
type ClassMethod struct {
	Class  string
	Method string
	Type   types.Type
}

// ClassProperty is a member name resolved to a property.
type ClassProperty struct {
	Class    string
	Property string
	Type     types.Type
}

// Function is a leading name that is not in scope but names a registered
// function.
type Function struct {
	Name       string
	ReturnType types.Type
}

func (Variable) nameInfo()      {}
func (ClassMethod) nameInfo()   {}
func (ClassProperty) nameInfo() {}
func (Function) nameInfo()      {}

// DotInfo records the type on the left of a '.' token.
type DotInfo struct {
	TypeBefore types.Type
}

// Result is what a walk learned about a template. Names and Dots are keyed by
// token index.
type Result struct {
	Names map[int]NameInfo
	Dots  map[int]DotInfo

	checkpoints []checkpoint
}

type checkpoint struct {
	offset int
	values map[string]types.Type
}

func newResult() *Result {
	return &Result{
		Names: make(map[int]NameInfo),
		Dots:  make(map[int]DotInfo),
	}
}

func (r *Result) record(offset int, scope *types.Scope) {
	r.checkpoints = append(r.checkpoints, checkpoint{offset: offset, values: scope.Values()})
}

// ValuesAtOffset returns the variables visible at a byte offset. The map is a
// copy the caller may keep.
func (r *Result) ValuesAtOffset(offset int) map[string]types.Type {
	i := sort.Search(len(r.checkpoints), func(i int) bool {
		return r.checkpoints[i].offset > offset
	}) - 1
	out := make(map[string]types.Type)
	if i < 0 {
		return out
	}
	for name, t := range r.checkpoints[i].values {
		out[name] = t
	}
	return out
}

// TypeOf returns the type a NameInfo stands for.
func TypeOf(info NameInfo) types.Type {
	switch v := info.(type) {
	case Variable:
		return types.OrAny(v.Type)
	case ClassMethod:
		return types.OrAny(v.Type)
	case ClassProperty:
		return types.OrAny(v.Type)
	case Function:
		return types.OrAny(v.ReturnType)
	}
	return types.Any
}
