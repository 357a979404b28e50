package inference

import (
	"context"
	"sort"
	"strings"

	"github.com/shinyvision/twiglens/internal/types"
)

type MemberKind int

const (
	MemberProperty MemberKind = iota
	MemberMethod
	MemberKey
)

// Member is something that may follow a '.' on a value.
type Member struct {
	Name string
	Kind MemberKind
	Type types.Type
}

var (
	repositoryMethodNames = []string{"find", "findAll", "findBy", "findOneBy", "matching", "createQueryBuilder"}
	queryMethodNames      = []string{
		"getResult", "execute", "getOneOrNullResult", "getSingleResult", "getQuery",
		"select", "where", "andWhere", "orWhere", "join", "leftJoin", "innerJoin",
		"setParameter", "setParameters", "orderBy", "addOrderBy", "setMaxResults", "setFirstResult",
	}
)

// Members lists what member access on a value of type t can reach, using
// the same rules the walker applies when it resolves a member.
func Members(ctx context.Context, resolver Resolver, t types.Type) []Member {
	switch v := t.(type) {
	case types.ObjectType:
		return classMembers(resolver.ResolveClass(ctx, v.Class))
	case types.ArrayType:
		keys := make([]string, 0, len(v.Fields))
		for k := range v.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]Member, 0, len(keys))
		for _, k := range keys {
			out = append(out, Member{Name: k, Kind: MemberKey, Type: types.OrAny(v.Fields[k])})
		}
		return out
	case types.EntityRepositoryType:
		return magicMembers(repositoryMethodNames, repositoryFinders, v.Entity)
	case types.DoctrineQueryType:
		return magicMembers(queryMethodNames, queryMethods, v.Entity)
	}
	return nil
}

func classMembers(info *types.ClassInfo) []Member {
	if info == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []Member
	for _, p := range info.Properties {
		if key := strings.ToLower(p.Name); p.Public && !seen[key] {
			seen[key] = true
			out = append(out, Member{Name: p.Name, Kind: MemberProperty, Type: types.OrAny(p.Type)})
		}
	}
	for _, m := range info.Methods {
		key := strings.ToLower(m.Name)
		if !m.Public || strings.HasPrefix(m.Name, "__") || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Member{Name: m.Name, Kind: MemberMethod, Type: types.OrAny(m.ReturnType)})
	}
	return out
}

func magicMembers(names []string, table map[string]func(string) types.Type, entity string) []Member {
	out := make([]Member, 0, len(names))
	for _, name := range names {
		t, _ := magic(table, name, entity)
		out = append(out, Member{Name: name, Kind: MemberMethod, Type: t})
	}
	return out
}
