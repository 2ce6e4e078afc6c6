package zia

import "encoding/json"

// Department is a hosted-DB reference entity. Read-only within a run.
type Department struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Group is a hosted-DB reference entity. Read-only within a run.
type Group struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// UserRecord is one directory user. The admin API expects the full record to
// be echoed back on update, so fields this tool does not model are kept in
// Extra and round-tripped unchanged.
type UserRecord struct {
	ID         int
	Name       string
	LoginName  string
	Department *Department
	Groups     []Group

	// Extra holds every attribute of the record this tool does not model.
	Extra map[string]json.RawMessage
}

// Keys the typed fields above are lifted from.
const (
	keyID         = "id"
	keyName       = "name"
	keyLoginName  = "loginName"
	keyDepartment = "department"
	keyGroups     = "groups"
)

// UnmarshalJSON lifts the modelled fields out of the record and keeps the
// remaining attributes raw in Extra.
func (u *UserRecord) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw[keyID]; ok {
		if err := json.Unmarshal(v, &u.ID); err != nil {
			return err
		}
	}
	if v, ok := raw[keyName]; ok {
		if err := json.Unmarshal(v, &u.Name); err != nil {
			return err
		}
	}
	if v, ok := raw[keyLoginName]; ok {
		if err := json.Unmarshal(v, &u.LoginName); err != nil {
			return err
		}
	}
	if v, ok := raw[keyDepartment]; ok {
		if err := json.Unmarshal(v, &u.Department); err != nil {
			return err
		}
	}
	if v, ok := raw[keyGroups]; ok {
		if err := json.Unmarshal(v, &u.Groups); err != nil {
			return err
		}
	}

	for _, k := range []string{keyID, keyName, keyLoginName, keyDepartment, keyGroups} {
		delete(raw, k)
	}
	u.Extra = raw
	return nil
}

// MarshalJSON reassembles the full record, typed fields over Extra.
func (u UserRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(u.Extra)+5)
	for k, v := range u.Extra {
		out[k] = v
	}

	set := func(key string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out[key] = data
		return nil
	}

	if err := set(keyID, u.ID); err != nil {
		return nil, err
	}
	if err := set(keyName, u.Name); err != nil {
		return nil, err
	}
	if err := set(keyLoginName, u.LoginName); err != nil {
		return nil, err
	}
	if u.Department != nil {
		if err := set(keyDepartment, u.Department); err != nil {
			return nil, err
		}
	}
	if err := set(keyGroups, u.Groups); err != nil {
		return nil, err
	}

	return json.Marshal(out)
}

// HasGroup reports whether the record already carries the group.
func (u *UserRecord) HasGroup(groupID int) bool {
	for _, g := range u.Groups {
		if g.ID == groupID {
			return true
		}
	}
	return false
}

// AddGroup appends the group to the record's membership if it is not already
// present. Returns true if the record was changed.
func (u *UserRecord) AddGroup(g Group) bool {
	if u.HasGroup(g.ID) {
		return false
	}
	u.Groups = append(u.Groups, g)
	return true
}

// Page is one fetch result from a paginated collection endpoint.
type Page struct {
	// Number is the 1-based page number that was requested.
	Number int
	// TotalPages is the server-declared page count for the collection.
	TotalPages int
	// Users are the records on this page, in server order.
	Users []UserRecord
}

// pagedResponse is the wire shape of paginated collection responses.
type pagedResponse struct {
	List       []UserRecord `json:"list"`
	TotalPages int          `json:"totalPages"`
}
