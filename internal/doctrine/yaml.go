package doctrine

import (
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shinyvision/twiglens/internal/dql"
	"gopkg.in/yaml.v3"
)

type yamlField struct {
	Type string `yaml:"type"`
}

type yamlRelation struct {
	TargetEntity string `yaml:"targetEntity"`
}

type yamlEntity struct {
	Type            string                  `yaml:"type"`
	RepositoryClass string                  `yaml:"repositoryClass"`
	ID              map[string]yamlField    `yaml:"id"`
	Fields          map[string]yamlField    `yaml:"fields"`
	ManyToOne       map[string]yamlRelation `yaml:"manyToOne"`
	OneToOne        map[string]yamlRelation `yaml:"oneToOne"`
	OneToMany       map[string]yamlRelation `yaml:"oneToMany"`
	ManyToMany      map[string]yamlRelation `yaml:"manyToMany"`
}

// LoadYAML reads *.orm.yml and *.orm.yaml mapping files below dirs.
func LoadYAML(dirs []string) (dql.EntityTable, error) {
	table := dql.EntityTable{}
	err := walkFiles(dirs, func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "could not read file")
		}
		entities, err := ParseYAMLMapping(data)
		if err != nil {
			return err
		}
		for _, e := range entities {
			table.Add(e)
		}
		return nil
	}, ".orm.yml", ".orm.yaml")
	return table, err
}

// ParseYAMLMapping reads the entities of a Doctrine YAML mapping. Embeddables
// and mapped superclasses are skipped.
func ParseYAMLMapping(content []byte) ([]*dql.Entity, error) {
	var doc map[string]yamlEntity
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, errors.Wrap(err, "could not decode yaml mapping")
	}

	classes := make([]string, 0, len(doc))
	for class := range doc {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	var out []*dql.Entity
	for _, class := range classes {
		mapping := doc[class]
		if mapping.Type != "" && mapping.Type != "entity" {
			continue
		}
		class = strings.TrimPrefix(class, `\`)
		entity := &dql.Entity{Class: class, Repository: mapping.RepositoryClass}
		entity.Fields = append(entity.Fields, yamlFields(mapping.ID)...)
		entity.Fields = append(entity.Fields, yamlFields(mapping.Fields)...)
		entity.Fields = append(entity.Fields, yamlRelations(mapping.ManyToOne, class, false)...)
		entity.Fields = append(entity.Fields, yamlRelations(mapping.OneToOne, class, false)...)
		entity.Fields = append(entity.Fields, yamlRelations(mapping.OneToMany, class, true)...)
		entity.Fields = append(entity.Fields, yamlRelations(mapping.ManyToMany, class, true)...)
		out = append(out, entity)
	}
	return out, nil
}

func yamlFields(m map[string]yamlField) []dql.Field {
	var out []dql.Field
	for _, name := range sortedNames(m) {
		out = append(out, dql.Field{Name: name, Type: m[name].Type})
	}
	return out
}

func yamlRelations(m map[string]yamlRelation, owner string, toMany bool) []dql.Field {
	var out []dql.Field
	for _, name := range sortedNames(m) {
		out = append(out, dql.Field{
			Name:       name,
			IsRelation: true,
			Target:     Qualify(m[name].TargetEntity, owner),
			ToMany:     toMany,
		})
	}
	return out
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
