package zia

import "context"

// Reference holds the group and department vocabularies from the hosted DB.
// Each vocabulary is loaded at most once per run through the corresponding
// call budget and is immutable afterwards. Reads before the explicit load
// call fail with ErrNotLoaded.
type Reference struct {
	client *Client

	depsLoaded   bool
	groupsLoaded bool

	departments  []Department
	groups       []Group
	groupsByName map[string]Group
}

// NewReference creates an empty, unloaded reference cache.
func NewReference(client *Client) *Reference {
	return &Reference{client: client}
}

// LoadDepartments fetches the departments vocabulary. A no-op once loaded.
func (r *Reference) LoadDepartments(ctx context.Context) error {
	if r.depsLoaded {
		return nil
	}
	departments, err := r.client.Departments(ctx)
	if err != nil {
		return err
	}
	r.departments = departments
	r.depsLoaded = true
	return nil
}

// LoadGroups fetches the groups vocabulary. A no-op once loaded.
func (r *Reference) LoadGroups(ctx context.Context) error {
	if r.groupsLoaded {
		return nil
	}
	groups, err := r.client.Groups(ctx)
	if err != nil {
		return err
	}
	r.groups = groups
	r.groupsByName = make(map[string]Group, len(groups))
	for _, g := range groups {
		r.groupsByName[g.Name] = g
	}
	r.groupsLoaded = true
	return nil
}

// Departments returns the cached vocabulary, in server order.
func (r *Reference) Departments() ([]Department, error) {
	if !r.depsLoaded {
		return nil, ErrNotLoaded
	}
	return r.departments, nil
}

// Groups returns the cached vocabulary, in server order.
func (r *Reference) Groups() ([]Group, error) {
	if !r.groupsLoaded {
		return nil, ErrNotLoaded
	}
	return r.groups, nil
}

// ValidateDepartment fails if name is not a known department.
func (r *Reference) ValidateDepartment(name string) error {
	if !r.depsLoaded {
		return ErrNotLoaded
	}
	for _, d := range r.departments {
		if d.Name == name {
			return nil
		}
	}
	return &ValidationError{Kind: "department", Names: []string{name}}
}

// ValidateGroups fails if any of the names is not a known group.
func (r *Reference) ValidateGroups(names []string) error {
	if !r.groupsLoaded {
		return ErrNotLoaded
	}
	var unknown []string
	for _, name := range names {
		if _, ok := r.groupsByName[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return &ValidationError{Kind: "group", Names: unknown}
	}
	return nil
}

// GroupsByName resolves names to their group records, preserving input order.
func (r *Reference) GroupsByName(names []string) ([]Group, error) {
	if err := r.ValidateGroups(names); err != nil {
		return nil, err
	}
	groups := make([]Group, 0, len(names))
	for _, name := range names {
		groups = append(groups, r.groupsByName[name])
	}
	return groups, nil
}
