package inference

import (
	"context"
	"strings"
	"testing"

	"github.com/shinyvision/twiglens/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	appClass  = `Symfony\Bridge\Twig\AppVariable`
	userClass = `App\Entity\User`
	postClass = `App\Entity\Post`
)

func testResolver() Resolver {
	classes := map[string]*types.ClassInfo{
		appClass: {
			Name: appClass,
			Methods: []types.Method{
				{Name: "getUser", Public: true, ReturnType: types.Object(userClass)},
			},
		},
		userClass: {
			Name: userClass,
			Properties: []types.Property{
				{Name: "email", Public: true, Type: types.Any},
				{Name: "password", Public: false, Type: types.Any},
			},
			Methods: []types.Method{
				{Name: "getName", Public: true, ReturnType: types.Any},
				{Name: "getEmail", Public: true, ReturnType: types.Any},
				{Name: "isAdmin", Public: true, ReturnType: types.Any},
				{Name: "getPosts", Public: true, ReturnType: types.ArrayOf(types.Object(postClass))},
			},
		},
		postClass: {
			Name: postClass,
			Properties: []types.Property{
				{Name: "title", Public: true, Type: types.Any, Class: postClass},
			},
		},
	}
	functions := map[string]types.Type{
		"repo": types.Repository(postClass),
		"path": types.Any,
	}
	return ResolverFuncs{
		Class: func(_ context.Context, name string) *types.ClassInfo {
			return classes[name]
		},
		Function: func(_ context.Context, name string) (types.Type, bool) {
			t, ok := functions[name]
			return t, ok
		},
	}
}

func globals() *types.Scope {
	scope := types.NewScope(nil)
	scope.Set("app", types.Object(appClass))
	return scope
}

func analyze(code string) *Analysis {
	return AnalyzeTemplate(context.Background(), code, globals(), testResolver())
}

// tokenIndex returns the index of the nth token whose text is needle.
func tokenIndex(t *testing.T, a *Analysis, needle string, nth int) int {
	t.Helper()
	for i, tok := range a.Tokens {
		if tok.Text(a.Code) == needle {
			if nth == 0 {
				return i
			}
			nth--
		}
	}
	t.Fatalf("token %q not found", needle)
	return -1
}

func TestScopeShadowing(t *testing.T) {
	code := "{% set xx = 12 %}{{ }}"
	a := analyze(code)
	assert.Contains(t, a.ValuesAtOffset(strings.Index(code, "{{ }}")+3), "xx")

	code = "{% for xx in [3,4,5] %}{% set yy = xx %}{% endfor %}{{ }}"
	a = analyze(code)

	inside := a.ValuesAtOffset(strings.Index(code, "{% endfor"))
	assert.Contains(t, inside, "xx")
	assert.Contains(t, inside, "yy")
	assert.Contains(t, inside, "loop")

	after := a.ValuesAtOffset(strings.Index(code, "{{ }}") + 3)
	assert.NotContains(t, after, "xx")
	assert.NotContains(t, after, "yy")
	assert.Contains(t, after, "app")
}

func TestDottedChainResolution(t *testing.T) {
	a := analyze("{{ app.user.name }}{{ app.user.getName }}")

	expected := ClassMethod{Class: userClass, Method: "getName", Type: types.Any}
	assert.Equal(t, expected, a.Names[tokenIndex(t, a, "name", 0)])
	assert.Equal(t, expected, a.Names[tokenIndex(t, a, "getName", 0)])

	assert.Equal(t, Variable{Type: types.Object(appClass)}, a.Names[tokenIndex(t, a, "app", 0)])
	assert.Equal(t, DotInfo{TypeBefore: types.Object(appClass)}, a.Dots[tokenIndex(t, a, ".", 0)])
	assert.Equal(t, DotInfo{TypeBefore: types.Object(userClass)}, a.Dots[tokenIndex(t, a, ".", 1)])
}

func TestMemberPriority(t *testing.T) {
	a := analyze("{{ app.user.email }}{{ app.user.admin }}{{ app.user.password }}")

	assert.Equal(t, ClassProperty{Class: userClass, Property: "email", Type: types.Any}, a.Names[tokenIndex(t, a, "email", 0)])
	assert.Equal(t, ClassMethod{Class: userClass, Method: "isAdmin", Type: types.Any}, a.Names[tokenIndex(t, a, "admin", 0)])
	assert.NotContains(t, a.Names, tokenIndex(t, a, "password", 0))
}

func TestIfBranchesDoNotLeak(t *testing.T) {
	code := "{% if a %}{% set b = app %}{{ }}{% elseif c %}{{ }}{% else %}{{ }}{% endif %}{{ }}"
	a := analyze(code)

	pos := func(nth int) int {
		idx := -1
		for i := 0; i <= nth; i++ {
			idx += strings.Index(code[idx+1:], "{{ }}") + 1
		}
		return idx + 3
	}
	assert.Contains(t, a.ValuesAtOffset(pos(0)), "b")
	assert.NotContains(t, a.ValuesAtOffset(pos(1)), "b")
	assert.NotContains(t, a.ValuesAtOffset(pos(2)), "b")
	assert.NotContains(t, a.ValuesAtOffset(pos(3)), "b")
}

func TestForBindsElementType(t *testing.T) {
	a := analyze("{% for post in app.user.posts if post.title %}{{ post.title }}{% else %}{{ post }}{% endfor %}")

	assert.Equal(t, Variable{Type: types.Object(postClass)}, a.Names[tokenIndex(t, a, "post", 0)])
	assert.Equal(t, ClassProperty{Class: postClass, Property: "title", Type: types.Any}, a.Names[tokenIndex(t, a, "title", 0)])
	assert.Equal(t, ClassProperty{Class: postClass, Property: "title", Type: types.Any}, a.Names[tokenIndex(t, a, "title", 1)])
	// the else branch does not see the loop variable
	assert.NotContains(t, a.Names, tokenIndex(t, a, "post", 3))
}

func TestForKeyValue(t *testing.T) {
	code := "{% for key, post in app.user.posts %}{{ }}{% endfor %}"
	a := analyze(code)

	values := a.ValuesAtOffset(strings.Index(code, "{{ }}") + 3)
	assert.Equal(t, types.Any, values["key"])
	assert.Equal(t, types.Object(postClass), values["post"])
}

func TestForOverObjectBindsAny(t *testing.T) {
	code := "{% for x in app %}{{ }}{% endfor %}"
	a := analyze(code)

	values := a.ValuesAtOffset(strings.Index(code, "{{ }}") + 3)
	require.Contains(t, values, "x")
	assert.Equal(t, types.Any, values["x"])
}

func TestSubscriptNarrowsArray(t *testing.T) {
	a := analyze("{{ app.user.posts[0].title }}")

	assert.Equal(t, ClassProperty{Class: postClass, Property: "title", Type: types.Any}, a.Names[tokenIndex(t, a, "title", 0)])
}

func TestSetPropagatesTypes(t *testing.T) {
	code := "{% set u = app.user %}{% set a, b = 1, 2 %}{{ u.name }}{{ }}"
	a := analyze(code)

	assert.Equal(t, ClassMethod{Class: userClass, Method: "getName", Type: types.Any}, a.Names[tokenIndex(t, a, "name", 0)])

	values := a.ValuesAtOffset(strings.Index(code, "{{ }}") + 3)
	assert.Equal(t, types.Object(userClass), values["u"])
	assert.Equal(t, types.Any, values["a"])
	assert.Equal(t, types.Any, values["b"])
}

func TestBodySetDoesNotBind(t *testing.T) {
	code := "{% set x %}text{% endset %}{{ }}"
	a := analyze(code)
	assert.NotContains(t, a.ValuesAtOffset(strings.Index(code, "{{ }}")+3), "x")
}

func TestFunctionsAndDoctrine(t *testing.T) {
	a := analyze("{% set p = repo.findOneByTitle('x') %}{{ p.title }}{{ repo.createQueryBuilder('p').getQuery.getResult }}")

	assert.Equal(t, Function{Name: "repo", ReturnType: types.Repository(postClass)}, a.Names[tokenIndex(t, a, "repo", 0)])
	assert.Equal(t, ClassProperty{Class: postClass, Property: "title", Type: types.Any}, a.Names[tokenIndex(t, a, "title", 0)])

	result := a.Names[tokenIndex(t, a, "getResult", 0)]
	require.IsType(t, ClassMethod{}, result)
	assert.Equal(t, types.ArrayOf(types.Object(postClass)), TypeOf(result))
}

func TestScopeWinsOverFunctions(t *testing.T) {
	a := analyze("{% set path = app %}{{ path }}")
	assert.Equal(t, Variable{Type: types.Object(appClass)}, a.Names[tokenIndex(t, a, "path", 1)])
}

func TestMacroParameters(t *testing.T) {
	code := "{% macro field(name, opts = {}) %}{{ }}{% endmacro %}{{ }}"
	a := analyze(code)

	inside := a.ValuesAtOffset(strings.Index(code, "{{ }}") + 3)
	assert.Contains(t, inside, "name")
	assert.Contains(t, inside, "opts")
	assert.NotContains(t, inside, "field")

	after := a.ValuesAtOffset(strings.LastIndex(code, "{{ }}") + 3)
	assert.NotContains(t, after, "name")
}

func TestLiteralsFiltersAndImports(t *testing.T) {
	code := `{% import "forms.twig" as forms %}{% from "m.twig" import input as field, label %}{% set h = {a: app, 'b': 1} %}{{ app|upper }}{{ }}`
	a := analyze(code)

	values := a.ValuesAtOffset(strings.Index(code, "{{ }}") + 3)
	assert.Contains(t, values, "forms")
	assert.Contains(t, values, "field")
	assert.Contains(t, values, "label")
	assert.NotContains(t, values, "input")
	assert.Equal(t, types.Hash(map[string]types.Type{"a": types.Any, "b": types.Any}), values["h"])

	assert.NotContains(t, a.Names, tokenIndex(t, a, "a", 0))
	assert.NotContains(t, a.Names, tokenIndex(t, a, "upper", 0))
}

func TestVerbatimIsOpaque(t *testing.T) {
	a := analyze("{% verbatim %}{{ app }}{% endverbatim %}")
	assert.Empty(t, a.Names)
}

func TestUnresolvedNames(t *testing.T) {
	a := analyze("{{ unknown.foo }}")
	assert.Empty(t, a.Names)
	assert.Equal(t, DotInfo{TypeBefore: types.Any}, a.Dots[tokenIndex(t, a, ".", 0)])

	typ, ok := a.DotBefore(strings.Index(a.Code, "foo") + 2)
	require.True(t, ok)
	assert.Equal(t, types.Any, typ)
}

func TestDotBeforeWhileTyping(t *testing.T) {
	a := analyze("{{ app.user.")
	typ, ok := a.DotBefore(len(a.Code))
	require.True(t, ok)
	assert.Equal(t, types.Object(userClass), typ)

	a = analyze("{{ app.}}")
	typ, ok = a.DotBefore(strings.Index(a.Code, "}}"))
	require.True(t, ok)
	assert.Equal(t, types.Object(appClass), typ)
}

func TestWalkStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := AnalyzeTemplate(ctx, "{{ app.user }}{% set x = 1 %}", globals(), testResolver())
	assert.Empty(t, a.Names)
	assert.Contains(t, a.ValuesAtOffset(0), "app")
}

func TestInitialScopeUntouched(t *testing.T) {
	scope := globals()
	AnalyzeTemplate(context.Background(), "{% set app = 1 %}{% set other = 2 %}", scope, testResolver())

	got, _ := scope.Get("app")
	assert.Equal(t, types.Object(appClass), got)
	_, ok := scope.Get("other")
	assert.False(t, ok)
}
