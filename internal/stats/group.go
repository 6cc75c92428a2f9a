package stats

import (
	"sort"

	"github.com/lwitkowski/aero-offers/internal/models"
)

// GroupKey selects the attribute offers are aggregated by.
type GroupKey func(models.Offer) string

func ByModel(o models.Offer) string {
	return o.Manufacturer + " " + o.Model
}

func ByCategory(o models.Offer) string {
	return o.Category.String()
}

type Group struct {
	Key    string         `json:"key"`
	Offers []models.Offer `json:"-"`
	Stats  AggregateStats `json:"stats"`
	// HasData is false when the group has no priced offer.
	HasData bool `json:"has_data"`
}

// GroupBy splits offers by key and builds statistics for every group. Groups
// are returned sorted by key.
func GroupBy(offers []models.Offer, key GroupKey, source AmountSource) []Group {
	buckets := make(map[string][]models.Offer)
	for _, offer := range offers {
		k := key(offer)
		buckets[k] = append(buckets[k], offer)
	}

	groups := make([]Group, 0, len(buckets))
	for k, members := range buckets {
		g := Group{Key: k, Offers: members}
		if s, err := Build(members, source); err == nil {
			g.Stats = s
			g.HasData = true
		} else {
			g.Stats = AggregateStats{Count: len(members)}
		}
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Key < groups[j].Key
	})
	return groups
}
