package export

import (
	"fmt"
	"strings"

	"casework-hq/auditexport/pkg/info"
)

// Adapter tags understood by the registry. info.HiddenAdapter is handled by
// the converter and never resolved.
const (
	AdapterUserEmail        = "UserEmail"
	AdapterUsername         = "Username"
	AdapterFirstAndLastName = "FirstAndLastName"
	AdapterUnitName         = "UnitName"
	AdapterTopicName        = "TopicName"
	AdapterTeamName         = "TeamName"
)

// FieldAdapter transforms one field value. Convert returns the value to hand
// to the next adapter in the chain, or an error if the value cannot be
// converted.
type FieldAdapter interface {
	Type() string
	Convert(value interface{}) (interface{}, error)
}

// lookupKey extracts the directory key from a value. ok is false for absent
// values, which adapters pass through untouched.
func lookupKey(tag string, value interface{}) (key string, ok bool, err error) {
	if value == nil {
		return "", false, nil
	}
	s, isString := value.(string)
	if !isString {
		return "", false, fmt.Errorf("%s expects a string identifier, got %T", tag, value)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false, nil
	}
	return s, true, nil
}

// userAdapter maps a user ID to one attribute of that user.
type userAdapter struct {
	tag   string
	users map[string]info.User
	pick  func(info.User) string
}

func newUserAdapters(users []info.User) []FieldAdapter {
	byID := make(map[string]info.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return []FieldAdapter{
		&userAdapter{tag: AdapterUserEmail, users: byID, pick: func(u info.User) string { return u.Email }},
		&userAdapter{tag: AdapterUsername, users: byID, pick: func(u info.User) string { return u.Username }},
		&userAdapter{tag: AdapterFirstAndLastName, users: byID, pick: func(u info.User) string {
			return strings.TrimSpace(u.FirstName + " " + u.LastName)
		}},
	}
}

func (a *userAdapter) Type() string { return a.tag }

func (a *userAdapter) Convert(value interface{}) (interface{}, error) {
	id, ok, err := lookupKey(a.tag, value)
	if !ok {
		return value, err
	}
	user, found := a.users[id]
	if !found {
		return nil, fmt.Errorf("user %s not found", id)
	}
	return a.pick(user), nil
}

// nameAdapter maps an ID to a display name from a fixed table.
type nameAdapter struct {
	tag   string
	kind  string
	names map[string]string
}

func newTeamNameAdapter(teams []info.Team) *nameAdapter {
	names := make(map[string]string, len(teams))
	for _, t := range teams {
		names[t.ID] = t.Name
	}
	return &nameAdapter{tag: AdapterTeamName, kind: "team", names: names}
}

// newUnitNameAdapter maps a team ID to the name of the unit owning the team.
func newUnitNameAdapter(teams []info.Team) *nameAdapter {
	names := make(map[string]string, len(teams))
	for _, t := range teams {
		if t.Unit != nil {
			names[t.ID] = t.Unit.Name
		}
	}
	return &nameAdapter{tag: AdapterUnitName, kind: "unit for team", names: names}
}

func newTopicNameAdapter(topics []info.Topic) *nameAdapter {
	names := make(map[string]string, len(topics))
	for _, t := range topics {
		names[t.ID] = t.Name
	}
	return &nameAdapter{tag: AdapterTopicName, kind: "topic", names: names}
}

func (a *nameAdapter) Type() string { return a.tag }

func (a *nameAdapter) Convert(value interface{}) (interface{}, error) {
	id, ok, err := lookupKey(a.tag, value)
	if !ok {
		return value, err
	}
	name, found := a.names[id]
	if !found {
		return nil, fmt.Errorf("%s %s not found", a.kind, id)
	}
	return name, nil
}
