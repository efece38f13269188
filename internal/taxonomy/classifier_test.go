package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"citypulse/internal/models"
)

func TestClassify(t *testing.T) {
	tax := Default()
	all := tax.Names()

	tests := []struct {
		name   string
		item   models.ContentItem
		active []string
		want   []string
	}{
		{
			name:   "case insensitive substring",
			item:   models.ContentItem{Title: "Singapore MAYOR unveils SMART CITY roadmap"},
			active: all,
			want:   []string{LeadershipGovernance, CreativityInnovation},
		},
		{
			name:   "body is searched",
			item:   models.ContentItem{Title: "Weekend", Body: "Regional coordination improved"},
			active: all,
			want:   []string{IntegrationOfPlans},
		},
		{
			name:   "inactive pillars are ignored",
			item:   models.ContentItem{Title: "The mayor talks technology"},
			active: []string{CreativityInnovation},
			want:   []string{CreativityInnovation},
		},
		{
			name:   "shared keyword matches both pillars",
			item:   models.ContentItem{Title: "A bold vision"},
			active: all,
			want:   []string{LeadershipGovernance, SustainabilityOfChange},
		},
		{
			name:   "follows active order",
			item:   models.ContentItem{Title: "A bold vision"},
			active: []string{SustainabilityOfChange, LeadershipGovernance},
			want:   []string{SustainabilityOfChange, LeadershipGovernance},
		},
		{
			name:   "no match",
			item:   models.ContentItem{Title: "Great noodles downtown"},
			active: all,
			want:   nil,
		},
		{
			name:   "empty text",
			item:   models.ContentItem{},
			active: all,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.item, tax, tt.active))
		})
	}
}

func TestClassify_IndependentOfOtherPillars(t *testing.T) {
	tax := Default()
	item := models.ContentItem{Title: "Mayor backs a scalable digital plan"}

	full := Classify(item, tax, tax.Names())
	for _, p := range tax.Names() {
		single := Classify(item, tax, []string{p})
		assert.Equal(t, contains(full, p), len(single) == 1, "pillar %s", p)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []string{models.GeneralPillar}, Normalize(nil))
	assert.Equal(t, []string{models.GeneralPillar}, Normalize([]string{}))
	assert.Equal(t, []string{"A"}, Normalize([]string{"A"}))

	item := models.ContentItem{Title: "Great noodles downtown"}
	assert.Equal(t, []string{models.GeneralPillar}, ClassifyNormalized(item, Default(), Default().Names()))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
