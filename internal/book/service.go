// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package book

import (
	"sort"

	"grimm.is/flowsim/internal/model"
)

// ServiceBook maps names to service objects and groups, with the same
// resolution contract as AddressBook.
type ServiceBook struct {
	Services map[string]model.ServiceObject
	Groups   map[string]model.ServiceGroup

	flattened map[string][]model.ServiceObject
}

// NewServiceBook returns an empty service book.
func NewServiceBook() *ServiceBook {
	return &ServiceBook{
		Services:  make(map[string]model.ServiceObject),
		Groups:    make(map[string]model.ServiceGroup),
		flattened: make(map[string][]model.ServiceObject),
	}
}

// ResolveMembers resolves a name to its flattened leaf services. A group
// member that is neither a service nor a group appears as an unresolved
// placeholder; unknown top-level names resolve to an empty slice.
func (b *ServiceBook) ResolveMembers(name string) []model.ServiceObject {
	if cached, ok := b.flattened[name]; ok {
		return cached
	}
	return b.resolve(name, make(map[string]bool))
}

func (b *ServiceBook) resolve(name string, visited map[string]bool) []model.ServiceObject {
	if cached, ok := b.flattened[name]; ok {
		return cached
	}
	if svc, ok := b.Services[name]; ok {
		return []model.ServiceObject{svc}
	}
	group, ok := b.Groups[name]
	if !ok {
		return nil
	}
	if visited[name] {
		return nil
	}
	visited[name] = true

	var resolved []model.ServiceObject
	for _, member := range group.Members {
		_, isService := b.Services[member]
		if _, isGroup := b.Groups[member]; !isService && !isGroup {
			// A dangling member stays in the result as an entry-less
			// (unresolved) service, so the group folds to unknown.
			resolved = append(resolved, model.ServiceObject{Name: member})
			continue
		}
		resolved = append(resolved, b.resolve(member, visited)...)
	}

	unique := dedupeServices(resolved)
	b.flattened[name] = unique
	return unique
}

// FlattenAll eagerly resolves every group.
func (b *ServiceBook) FlattenAll() {
	for name := range b.Groups {
		b.ResolveMembers(name)
	}
}

func dedupeServices(services []model.ServiceObject) []model.ServiceObject {
	if len(services) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(services))
	unique := make([]model.ServiceObject, 0, len(services))
	for _, svc := range services {
		if seen[svc.Name] {
			continue
		}
		seen[svc.Name] = true
		unique = append(unique, svc)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Name < unique[j].Name })
	return unique
}
