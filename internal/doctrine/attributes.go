package doctrine

import (
	"os"

	"github.com/pkg/errors"
	"github.com/shinyvision/twiglens/internal/dql"
	"github.com/shinyvision/twiglens/internal/php"
	"github.com/shinyvision/twiglens/internal/types"
)

const mappingNamespace = `Doctrine\ORM\Mapping\`

var relationAttributes = map[string]bool{
	"ManyToOne":  false,
	"OneToOne":   false,
	"OneToMany":  true,
	"ManyToMany": true,
}

// LoadAttributes reads #[ORM\Entity] classes from PHP files below dirs.
func LoadAttributes(dirs []string) (dql.EntityTable, error) {
	table := dql.EntityTable{}
	err := walkFiles(dirs, func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "could not read file")
		}
		doc := php.NewDocument()
		defer doc.Close()
		if err := doc.Update(data, nil); err != nil {
			return errors.Wrap(err, "could not parse file")
		}
		for _, class := range doc.Summary().Classes {
			if entity, ok := EntityFromClass(class); ok {
				table.Add(entity)
			}
		}
		return nil
	}, ".php")
	return table, err
}

// EntityFromClass maps a class carrying #[ORM\Entity]. Properties count as
// fields when they carry a column, id or relation attribute.
func EntityFromClass(class php.ClassSummary) (*dql.Entity, bool) {
	attr, ok := class.Attribute(mappingNamespace + "Entity")
	if !ok {
		return nil, false
	}
	entity := &dql.Entity{Class: class.FQN}
	entity.Repository, _ = attr.Arg("repositoryClass", -1)

	for _, p := range class.Properties {
		if field, ok := fieldFromProperty(p, class.FQN); ok {
			entity.Fields = append(entity.Fields, field)
		}
	}
	return entity, true
}

func fieldFromProperty(p php.PropertySummary, owner string) (dql.Field, bool) {
	for name, toMany := range relationAttributes {
		attr, ok := p.Attribute(mappingNamespace + name)
		if !ok {
			continue
		}
		target, ok := attr.Arg("targetEntity", 0)
		if !ok && !toMany {
			target = p.TypeName
		}
		return dql.Field{
			Name:       p.Name,
			IsRelation: true,
			Target:     Qualify(target, owner),
			ToMany:     toMany,
		}, true
	}

	column, isColumn := p.Attribute(mappingNamespace + "Column")
	_, isID := p.Attribute(mappingNamespace + "Id")
	if !isColumn && !isID {
		return dql.Field{}, false
	}
	field := dql.Field{Name: p.Name}
	if t, ok := column.Arg("type", -1); ok {
		field.Type = t
	} else if obj, ok := p.Type.(types.ObjectType); ok {
		field.Type = obj.Class
	}
	return field, true
}
