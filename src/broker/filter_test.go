package broker

import (
	"testing"

	"metrics-broker/src/models"

	"github.com/stretchr/testify/assert"
)

var filterDocJSON = []byte(`{
	"metricId": "cpu.load",
	"value": 120.5,
	"unit": "%",
	"tags": {"host": "web-1", "region": "eu"},
	"metadata": {"cores": 8, "labels": ["prod", "edge"], "spot": false}
}`)

func TestMatchFilters(t *testing.T) {
	cases := []struct {
		name   string
		filter models.MStreamFilter
		want   bool
	}{
		{"eq number", models.MStreamFilter{Field: "value", Operator: "eq", Value: 120.5}, true},
		{"eq string", models.MStreamFilter{Field: "tags.host", Operator: "eq", Value: "web-1"}, true},
		{"eq type mismatch", models.MStreamFilter{Field: "value", Operator: "eq", Value: "120.5"}, false},
		{"eq bool", models.MStreamFilter{Field: "metadata.spot", Operator: "eq", Value: false}, true},
		{"ne", models.MStreamFilter{Field: "tags.region", Operator: "ne", Value: "us"}, true},
		{"gt", models.MStreamFilter{Field: "value", Operator: "gt", Value: 100}, true},
		{"gt boundary", models.MStreamFilter{Field: "value", Operator: "gt", Value: 120.5}, false},
		{"gte boundary", models.MStreamFilter{Field: "value", Operator: "gte", Value: 120.5}, true},
		{"lt", models.MStreamFilter{Field: "metadata.cores", Operator: "lt", Value: 16}, true},
		{"lte on string", models.MStreamFilter{Field: "unit", Operator: "lte", Value: 1}, false},
		{"in", models.MStreamFilter{Field: "tags.region", Operator: "in", Value: []interface{}{"us", "eu"}}, true},
		{"in miss", models.MStreamFilter{Field: "tags.region", Operator: "in", Value: []interface{}{"us"}}, false},
		{"contains substring", models.MStreamFilter{Field: "metricId", Operator: "contains", Value: "load"}, true},
		{"contains array", models.MStreamFilter{Field: "metadata.labels", Operator: "contains", Value: "edge"}, true},
		{"contains array miss", models.MStreamFilter{Field: "metadata.labels", Operator: "contains", Value: "dev"}, false},
		{"missing field eq", models.MStreamFilter{Field: "tags.zone", Operator: "eq", Value: "a"}, false},
		{"missing field ne", models.MStreamFilter{Field: "tags.zone", Operator: "ne", Value: "a"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchFilters([]models.MStreamFilter{tc.filter}, filterDocJSON))
		})
	}
}

func TestMatchFiltersIsConjunction(t *testing.T) {
	filters := []models.MStreamFilter{
		{Field: "value", Operator: "gt", Value: 100},
		{Field: "tags.region", Operator: "eq", Value: "us"},
	}
	assert.False(t, MatchFilters(filters, filterDocJSON))
	assert.True(t, MatchFilters(nil, filterDocJSON))
}

func TestGreaterThanFilterNeverPassesSmallerValues(t *testing.T) {
	filters := []models.MStreamFilter{{Field: "value", Operator: "gt", Value: 100.0}}
	for _, v := range []string{"-3", "0", "99.999", "100"} {
		assert.False(t, MatchFilters(filters, []byte(`{"value":`+v+`}`)), v)
	}
	assert.True(t, MatchFilters(filters, []byte(`{"value":100.001}`)))
}

func TestValidateFilters(t *testing.T) {
	assert.NoError(t, ValidateFilters([]models.MStreamFilter{{Field: "value", Operator: "gte", Value: 1}}))
	assert.Error(t, ValidateFilters([]models.MStreamFilter{{Field: "value", Operator: "between"}}))
	assert.Error(t, ValidateFilters([]models.MStreamFilter{{Field: " ", Operator: "eq"}}))
	assert.Error(t, ValidateFilters([]models.MStreamFilter{{Field: "value", Operator: "in", Value: "x"}}))
}
