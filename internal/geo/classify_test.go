package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/housing-research/internal/model"
)

func TestClassifyZip(t *testing.T) {
	tests := []struct {
		name     string
		zip      string
		expected model.ZipType
	}{
		{name: "military: APO AE lower bound", zip: "09000", expected: model.ZipTypeMilitary},
		{name: "military: APO AE", zip: "09123", expected: model.ZipTypeMilitary},
		{name: "military: APO AE upper bound", zip: "09499", expected: model.ZipTypeMilitary},
		{name: "unknown: just past APO AE", zip: "09500", expected: model.ZipTypeNonResidentialOrUnknown},
		{name: "unknown: just before APO AE", zip: "08999", expected: model.ZipTypeNonResidentialOrUnknown},
		{name: "military: APO AA", zip: "34050", expected: model.ZipTypeMilitary},
		{name: "military: APO AA upper bound", zip: "34099", expected: model.ZipTypeMilitary},
		{name: "unknown: past APO AA", zip: "34100", expected: model.ZipTypeNonResidentialOrUnknown},
		{name: "military: APO AP lower bound", zip: "96200", expected: model.ZipTypeMilitary},
		{name: "military: APO AP upper bound", zip: "96699", expected: model.ZipTypeMilitary},
		{name: "territory: American Samoa", zip: "96799", expected: model.ZipTypeUSTerritory},
		{name: "unknown: next to American Samoa", zip: "96798", expected: model.ZipTypeNonResidentialOrUnknown},
		{name: "territory: Guam lower bound", zip: "96910", expected: model.ZipTypeUSTerritory},
		{name: "territory: Guam upper bound", zip: "96932", expected: model.ZipTypeUSTerritory},
		{name: "unknown: past Guam", zip: "96933", expected: model.ZipTypeNonResidentialOrUnknown},
		{name: "territory: USVI lower bound", zip: "00801", expected: model.ZipTypeUSTerritory},
		{name: "territory: USVI upper bound", zip: "00851", expected: model.ZipTypeUSTerritory},
		{name: "unknown: past USVI", zip: "00852", expected: model.ZipTypeNonResidentialOrUnknown},
		{name: "unknown: all zeros", zip: "00000", expected: model.ZipTypeNonResidentialOrUnknown},
		{name: "unknown: Puerto Rico", zip: "00901", expected: model.ZipTypeNonResidentialOrUnknown},
		{name: "unknown: non-numeric", zip: "ABCDE", expected: model.ZipTypeNonResidentialOrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyZip(tt.zip)
			assert.Equal(t, tt.expected, got.ZipType)
			assert.NotEmpty(t, got.Explanation)
		})
	}
}

func TestClassifyZip_SuggestionOnlyForUnknown(t *testing.T) {
	assert.Nil(t, ClassifyZip("09123").Suggestion)
	assert.Nil(t, ClassifyZip("96910").Suggestion)

	unknown := ClassifyZip("00000")
	require.NotNil(t, unknown.Suggestion)
	assert.Contains(t, *unknown.Suggestion, "/search")
	assert.Contains(t, unknown.Explanation, "PO Box")
}

func TestClassifyZip_Deterministic(t *testing.T) {
	first := ClassifyZip("12345")
	second := ClassifyZip("12345")
	assert.Equal(t, first, second)

	// Callers mutating the returned suggestion must not leak into later calls.
	*first.Suggestion = "changed"
	assert.NotEqual(t, "changed", *ClassifyZip("12345").Suggestion)
}
