// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package book holds the named object stores consulted by the evaluator:
// an address book and a service book, each with cycle-safe memoized group
// flattening. Books are populated during ingest, frozen with FlattenAll,
// and shared read-only across workers afterwards.
package book

import (
	"sort"

	"grimm.is/flowsim/internal/model"
)

// AddressBook maps names to address objects and groups. The flattened
// cache is populated by resolution and must be complete (via FlattenAll)
// before the book is shared across goroutines.
type AddressBook struct {
	Objects map[string]model.AddressObject
	Groups  map[string]model.AddressGroup

	flattened map[string][]model.AddressObject
}

// NewAddressBook returns an empty address book.
func NewAddressBook() *AddressBook {
	return &AddressBook{
		Objects:   make(map[string]model.AddressObject),
		Groups:    make(map[string]model.AddressGroup),
		flattened: make(map[string][]model.AddressObject),
	}
}

// ResolveMembers resolves a name to its flattened leaf objects. A plain
// object resolves to itself. A group resolves to its transitive members
// with cycles broken and duplicates removed, in deterministic name order;
// a member name that is neither an object nor a group appears as a
// name-based (AddressFQDN) placeholder. An unknown top-level name resolves
// to an empty slice; callers treat that as contributing to an unknown
// outcome.
func (b *AddressBook) ResolveMembers(name string) []model.AddressObject {
	if cached, ok := b.flattened[name]; ok {
		return cached
	}
	return b.resolve(name, make(map[string]bool))
}

// resolve walks the group graph depth-first. The visited set is carried
// down the recursion so re-entering a name already on the path yields an
// empty branch instead of looping.
func (b *AddressBook) resolve(name string, visited map[string]bool) []model.AddressObject {
	if cached, ok := b.flattened[name]; ok {
		return cached
	}
	if obj, ok := b.Objects[name]; ok {
		return []model.AddressObject{obj}
	}
	group, ok := b.Groups[name]
	if !ok {
		return nil
	}
	if visited[name] {
		return nil
	}
	visited[name] = true

	var resolved []model.AddressObject
	for _, member := range group.Members {
		_, isObject := b.Objects[member]
		if _, isGroup := b.Groups[member]; !isObject && !isGroup {
			// A dangling member stays in the result as a name-based
			// placeholder, so the group folds to unknown rather than a miss.
			resolved = append(resolved, model.AddressObject{Name: member, Type: model.AddressFQDN})
			continue
		}
		resolved = append(resolved, b.resolve(member, visited)...)
	}

	unique := dedupeAddresses(resolved)
	b.flattened[name] = unique
	return unique
}

// FlattenAll eagerly resolves every group so the cache is complete and
// the book is effectively read-only from here on.
func (b *AddressBook) FlattenAll() {
	for name := range b.Groups {
		b.ResolveMembers(name)
	}
}

func dedupeAddresses(objects []model.AddressObject) []model.AddressObject {
	if len(objects) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(objects))
	unique := make([]model.AddressObject, 0, len(objects))
	for _, obj := range objects {
		if seen[obj.Name] {
			continue
		}
		seen[obj.Name] = true
		unique = append(unique, obj)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Name < unique[j].Name })
	return unique
}
