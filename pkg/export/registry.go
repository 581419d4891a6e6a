package export

import (
	"context"
	"fmt"
	"sort"

	"casework-hq/auditexport/pkg/info"
)

// Registry resolves adapter tags for one export run. It is built from
// reference data fetched for that run and is not shared between runs.
type Registry struct {
	adapters map[string]FieldAdapter
}

// NewRegistry builds every adapter from already fetched reference data.
func NewRegistry(users []info.User, teams []info.Team, topics []info.Topic) *Registry {
	r := &Registry{adapters: make(map[string]FieldAdapter)}
	for _, a := range newUserAdapters(users) {
		r.register(a)
	}
	r.register(newUnitNameAdapter(teams))
	r.register(newTeamNameAdapter(teams))
	r.register(newTopicNameAdapter(topics))
	return r
}

// LoadRegistry fetches the user, team and topic directories once each and
// builds a registry from them.
func LoadRegistry(ctx context.Context, directory InfoService, casework CaseworkService) (*Registry, error) {
	users, err := directory.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	teams, err := directory.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch teams: %w", err)
	}
	topics, err := casework.CaseTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch case topics: %w", err)
	}
	return NewRegistry(users, teams, topics), nil
}

func (r *Registry) register(a FieldAdapter) {
	r.adapters[a.Type()] = a
}

// Lookup returns the adapter registered for tag.
func (r *Registry) Lookup(tag string) (FieldAdapter, bool) {
	a, ok := r.adapters[tag]
	return a, ok
}

// Tags returns the registered adapter tags, sorted.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.adapters))
	for tag := range r.adapters {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
