package pagination

import (
	"fmt"
	"strings"

	"github.com/lwitkowski/aero-offers/internal/models"
)

// DefaultLimit matches the page size of the offers API.
const DefaultLimit = 30

// State is the lifecycle of an offer list.
type State int

const (
	Idle State = iota
	Loading
	Loaded
	Exhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Filter narrows an offer list to a category and/or a manufacturer model.
type Filter struct {
	Category     models.Category `json:"category,omitempty"`
	Manufacturer string          `json:"manufacturer,omitempty"`
	Model        string          `json:"model,omitempty"`
}

func (f Filter) IsZero() bool {
	return f == Filter{}
}

// HasModel reports whether the filter names a single manufacturer model.
func (f Filter) HasModel() bool {
	return f.Manufacturer != "" && f.Model != ""
}

func (f Filter) String() string {
	var parts []string
	if f.Category != "" {
		parts = append(parts, fmt.Sprintf("category=%s", f.Category))
	}
	if f.Manufacturer != "" {
		parts = append(parts, fmt.Sprintf("manufacturer=%s", f.Manufacturer))
	}
	if f.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", f.Model))
	}
	return strings.Join(parts, "&")
}
