package schemas

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"type": "object",
	"required": ["company", "topics"],
	"properties": {
		"company": {"type": "string"},
		"topics": {"type": "array", "items": {"type": "string"}, "minItems": 1}
	}
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateJSON_ValidJSON(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", testSchema)
	jsonPath := writeFile(t, dir, "doc.json", `{"company": "테스트기업", "topics": ["overview"]}`)

	assert.NoError(t, ValidateJSON(schemaPath, jsonPath))
}

func TestValidateJSON_MissingAndWrongFields(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", testSchema)
	jsonPath := writeFile(t, dir, "doc.json", `{"topics": "overview"}`)

	err := ValidateJSON(schemaPath, jsonPath)
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Len(t, validationErr.Errors, 2)
}

func TestValidateJSON_NonExistentFiles(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", testSchema)

	err := ValidateJSON(filepath.Join(dir, "missing.json"), schemaPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = ValidateJSON(schemaPath, filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateJSON_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", testSchema)
	jsonPath := writeFile(t, dir, "doc.json", "{ invalid json }")

	err := ValidateJSON(schemaPath, jsonPath)
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestValidateJSONString(t *testing.T) {
	assert.NoError(t, ValidateJSONString(testSchema, `{"company": "a", "topics": ["b"]}`))

	err := ValidateJSONString(testSchema, `{"company": "a", "topics": []}`)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "topics", validationErr.Errors[0].Field)
}

func TestValidateSummaryOutput(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"full", `{"summary": "물류 플랫폼 기업", "keywords": ["물류"], "sources": ["https://a.com"]}`, false},
		{"summary only", `{"summary": "요약"}`, false},
		{"missing summary", `{"keywords": []}`, true},
		{"empty summary", `{"summary": ""}`, true},
		{"keywords not array", `{"summary": "s", "keywords": "물류"}`, true},
		{"source not string", `{"summary": "s", "sources": [1]}`, true},
		{"not an object", `["summary"]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSummaryOutput(tt.doc)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Errors: []FieldError{
		{Field: "summary", Message: "is required"},
		{Field: "keywords.0", Message: "Invalid type"},
	}}
	msg := err.Error()
	assert.Contains(t, msg, "1. summary: is required")
	assert.Contains(t, msg, "2. keywords.0: Invalid type")
}

func TestResolveSchemaPath(t *testing.T) {
	assert.NotEmpty(t, ResolveSchemaPath("summary_output.schema.json"))
	assert.NotEmpty(t, ResolveSchemaPath(filepath.Join("schemas", "report.schema.json")))
	assert.Empty(t, ResolveSchemaPath("does-not-exist.schema.json"))
}
