package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchemasLoad(t *testing.T) {
	sv, err := NewDefaultSchemaValidator()
	require.NoError(t, err)

	for name := range schemaFiles {
		assert.True(t, sv.SchemaExists(name), name)
	}
}

func TestRecommendationRequestSchema(t *testing.T) {
	sv, err := NewDefaultSchemaValidator()
	require.NoError(t, err)

	tests := []struct {
		name  string
		body  string
		valid bool
	}{
		{"minimal", `{"user_id":"u1"}`, true},
		{"full", `{"user_id":"u1","count":5,"time_bucket":"dinner","weather":"rainy","day_of_week":5,"location":{"lat":12.97,"lon":77.59}}`, true},
		{"count zero means default", `{"user_id":"u1","count":0}`, true},
		{"missing user", `{"count":5}`, false},
		{"negative count", `{"user_id":"u1","count":-1}`, false},
		{"unknown bucket", `{"user_id":"u1","time_bucket":"brunch"}`, false},
		{"unknown weather", `{"user_id":"u1","weather":"snow"}`, false},
		{"day out of range", `{"user_id":"u1","day_of_week":7}`, false},
		{"latitude out of range", `{"user_id":"u1","location":{"lat":91,"lon":0}}`, false},
		{"unexpected field", `{"user_id":"u1","foo":1}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sv.ValidateJSONString(RecommendationRequestSchema, tt.body)
			assert.Equal(t, tt.valid, result.Valid, "%+v", result.Errors)
			if !tt.valid {
				assert.NotNil(t, result.ToAPIError())
			}
		})
	}
}

func TestUnknownSchema(t *testing.T) {
	sv := NewSchemaValidator()

	result := sv.ValidateStruct("missing", map[string]string{})

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "SCHEMA_NOT_FOUND", result.Errors[0].Code)
}

func TestToAPIErrorGroupsFields(t *testing.T) {
	result := &ValidationResult{Errors: []ValidationError{
		{Field: "count", Message: "too small"},
		{Field: "count", Message: "not an integer"},
	}}

	apiErr := result.ToAPIError()
	details := apiErr["error"].(map[string]interface{})["details"].(map[string]interface{})

	assert.Equal(t, []string{"too small", "not an integer"}, details["fieldErrors"].(map[string][]string)["count"])
}
