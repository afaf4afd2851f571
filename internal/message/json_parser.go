package message

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type rawState struct {
	EntityID    string `json:"entity_id"`
	State       string `json:"state"`
	LastChanged string `json:"last_changed"`
}

func (r rawState) observation() (Observation, error) {
	ts, ok := ParseTimestamp(r.LastChanged)
	if !ok {
		return Observation{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, Snippet(r.LastChanged, 40))
	}
	return Observation{State: r.State, LastChanged: ts}, nil
}

// ParseHistoryJSON decodes a history/period response. The API returns one
// list per requested entity; only the first list is used. An empty body or
// empty outer list yields no observations.
func ParseHistoryJSON(data []byte) ([]Observation, error) {
	var lists [][]rawState
	if err := json.Unmarshal(data, &lists); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSONUnmarshalFailed, err)
	}
	if len(lists) == 0 {
		return nil, nil
	}

	out := make([]Observation, 0, len(lists[0]))
	for _, item := range lists[0] {
		obs, err := item.observation()
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, nil
}

// ParseStateJSON decodes a single entity state object.
func ParseStateJSON(data []byte) (*EntityState, error) {
	var raw rawState
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSONUnmarshalFailed, err)
	}
	if raw.EntityID == "" {
		return nil, ErrMissingEntityID
	}
	st := &EntityState{EntityID: raw.EntityID, State: raw.State}
	if raw.LastChanged != "" {
		ts, ok := ParseTimestamp(raw.LastChanged)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimestamp, Snippet(raw.LastChanged, 40))
		}
		st.LastChanged = ts
	}
	return st, nil
}
