package types

// Scope is a level of the variable environment. Lookups climb to the parent,
// writes stay local so a child can shadow without touching its ancestors.
type Scope struct {
	parent *Scope
	vars   map[string]Type
}

// NewScope returns an empty scope below parent, which may be nil.
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: make(map[string]Type)}
}

// Child returns a fresh scope below s.
func (s *Scope) Child() *Scope {
	return NewScope(s)
}

func (s *Scope) Parent() *Scope {
	return s.parent
}

// Get resolves name through the chain. ok is false when no level binds it.
func (s *Scope) Get(name string) (Type, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// Set binds name on this level only.
func (s *Scope) Set(name string, t Type) {
	s.vars[name] = OrAny(t)
}

// Values flattens the chain into one map; inner bindings win.
func (s *Scope) Values() map[string]Type {
	var chain []*Scope
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	out := make(map[string]Type)
	for i := len(chain) - 1; i >= 0; i-- {
		for name, t := range chain[i].vars {
			out[name] = t
		}
	}
	return out
}
