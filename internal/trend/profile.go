package trend

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrUnknownProfile indicates a profile name with no built-in definition.
var ErrUnknownProfile = errors.New("trend: unknown profile")

// Profile parameterises turning-point segmentation for one instrument class.
type Profile struct {
	Name string
	// Prominence is the minimum height of a peak over its surrounding minima.
	Prominence float64
	// PriceChange is the minimum move from the previous kept turning point.
	PriceChange float64
	// MinInterval is the minimum index distance between kept turning points.
	MinInterval int
	// MinDuration is the minimum wall-clock span between segment boundaries.
	MinDuration time.Duration
	MaxSegments int
	// WideVolatility splits range-bound segments into wide and narrow.
	WideVolatility float64
	// NarrowVolatility, when set, adds a mild range band between it and WideVolatility.
	NarrowVolatility float64
	// MinorTrends labels slopes above half the trend threshold as minor moves.
	MinorTrends bool
	// MinPoints is the shortest history Confirm will segment.
	MinPoints int
}

var profiles = map[string]Profile{
	"standard": {
		Name:           "standard",
		Prominence:     20,
		PriceChange:    30,
		MinInterval:    6,
		MinDuration:    30 * time.Minute,
		MaxSegments:    5,
		WideVolatility: 20,
		MinPoints:      70,
	},
	"three-phase": {
		Name:           "three-phase",
		Prominence:     20,
		PriceChange:    30,
		MinInterval:    6,
		MinDuration:    30 * time.Minute,
		MaxSegments:    3,
		WideVolatility: 20,
		MinPoints:      70,
	},
	"fine": {
		Name:             "fine",
		Prominence:       5,
		PriceChange:      3,
		MinInterval:      6,
		MinDuration:      15 * time.Minute,
		MaxSegments:      8,
		WideVolatility:   10,
		NarrowVolatility: 3,
		MinorTrends:      true,
		MinPoints:        70,
	},
}

// DefaultProfile returns the standard profile.
func DefaultProfile() Profile {
	return profiles["standard"]
}

// LookupProfile resolves a built-in profile by name.
func LookupProfile(name string) (Profile, error) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownProfile, name, strings.Join(ProfileNames(), ", "))
	}
	return p, nil
}

// ProfileNames lists built-in profiles in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate rejects profiles that cannot produce a segmentation.
func (p Profile) Validate() error {
	switch {
	case p.MaxSegments <= 0:
		return fmt.Errorf("trend profile %s: max segments must be greater than zero", p.Name)
	case p.MinInterval < 0:
		return fmt.Errorf("trend profile %s: min interval cannot be negative", p.Name)
	case p.MinDuration < 0:
		return fmt.Errorf("trend profile %s: min duration cannot be negative", p.Name)
	}
	return nil
}
