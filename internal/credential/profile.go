package credential

import "encoding/json"

// UserProfile is the backend's representation of the logged-in user. The
// client treats everything except Role as opaque; Role is read by the
// role-specific dashboard views. Fields the client doesn't model are
// preserved in Extra so a profile survives a store round-trip intact.
type UserProfile struct {
	ID         int64          `json:"id"`
	Email      string         `json:"email"`
	Name       string         `json:"name"`
	Role       string         `json:"role"`
	Campus     string         `json:"campus"`
	Department string         `json:"department"`
	Username   string         `json:"username"`
	Extra      map[string]any `json:"-"`
}

var knownProfileFields = map[string]struct{}{
	"id": {}, "email": {}, "name": {}, "role": {},
	"campus": {}, "department": {}, "username": {},
}

// UnmarshalJSON decodes the known fields and captures any remaining keys
// into Extra.
func (p *UserProfile) UnmarshalJSON(data []byte) error {
	type alias UserProfile
	var known alias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range knownProfileFields {
		delete(all, k)
	}
	if len(all) == 0 {
		all = nil
	}

	*p = UserProfile(known)
	p.Extra = all
	return nil
}

// MarshalJSON emits the known fields plus any Extra keys, so that a stored
// profile round-trips without losing backend-supplied fields.
func (p UserProfile) MarshalJSON() ([]byte, error) {
	type alias UserProfile
	data, err := json.Marshal(alias(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return data, nil
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if _, known := knownProfileFields[k]; !known {
			all[k] = v
		}
	}
	return json.Marshal(all)
}

// Merge overlays fresh onto p field by field: fields the backend returned
// take precedence, fields it omitted keep their stored value. Extra keys
// are merged individually.
func (p UserProfile) Merge(fresh UserProfile) UserProfile {
	merged := p

	if fresh.ID != 0 {
		merged.ID = fresh.ID
	}
	if fresh.Email != "" {
		merged.Email = fresh.Email
	}
	if fresh.Name != "" {
		merged.Name = fresh.Name
	}
	if fresh.Role != "" {
		merged.Role = fresh.Role
	}
	if fresh.Campus != "" {
		merged.Campus = fresh.Campus
	}
	if fresh.Department != "" {
		merged.Department = fresh.Department
	}
	if fresh.Username != "" {
		merged.Username = fresh.Username
	}

	if len(fresh.Extra) > 0 {
		extra := make(map[string]any, len(merged.Extra)+len(fresh.Extra))
		for k, v := range merged.Extra {
			extra[k] = v
		}
		for k, v := range fresh.Extra {
			extra[k] = v
		}
		merged.Extra = extra
	}

	return merged
}
