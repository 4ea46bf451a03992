package inventory

import (
	"context"
	"sort"
	"strings"
)

// AddPerson registers someone who can hold tools.
func (e *Engine) AddPerson(ctx context.Context, name, phone string) (Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Person{}, validationf("name is required")
	}
	p := Person{Name: name, Phone: strings.TrimSpace(phone)}
	err := e.mutate(ctx, "add_person", []Dataset{DatasetDirectory}, func(ctx context.Context) error {
		p.ID = e.newID(prefixPerson)
		p.CreatedAt = e.stamp()
		return storageErr("add person", e.store.AddPerson(ctx, p))
	})
	if err != nil {
		return Person{}, err
	}
	return p, nil
}

// Persons lists the directory sorted by name.
func (e *Engine) Persons(ctx context.Context) ([]Person, error) {
	return cached(e, DatasetDirectory, func() ([]Person, error) {
		persons, err := e.store.ListPersons(ctx)
		if err != nil {
			return nil, storageErr("list persons", err)
		}
		if persons == nil {
			persons = []Person{}
		}
		sort.SliceStable(persons, func(i, j int) bool {
			return strings.ToLower(persons[i].Name) < strings.ToLower(persons[j].Name)
		})
		return persons, nil
	})
}
