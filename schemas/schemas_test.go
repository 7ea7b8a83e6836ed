package schemas

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/company-brief/internal/schemas"
	"github.com/jonathan/company-brief/internal/types"
)

func TestReportSchema_ValidJSONSchema(t *testing.T) {
	data, err := os.ReadFile("report.schema.json")
	require.NoError(t, err)

	var schemaObj map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &schemaObj))
	assert.Contains(t, schemaObj, "$schema")
	assert.Contains(t, schemaObj, "properties")
}

func sampleReport() types.Report {
	return types.Report{
		RunID:   "3f1c2a9e-0000-4000-8000-000000000000",
		Company: types.CompanyQuery{Name: "테스트기업", HomepageURL: "https://test.co.kr"},
		Overview: types.SummaryResult{
			Topic: types.TopicOverview, Text: "물류 플랫폼 기업입니다.", Confidence: types.ConfidenceHigh,
			SourceURLs: []string{"https://test.co.kr"},
		},
		Talent: types.SummaryResult{
			Topic: types.TopicTalent, Text: "도전과 협업을 중시합니다.", Confidence: types.ConfidenceHigh,
			SourceURLs: []string{"https://test.co.kr/careers"}, Keywords: []string{"도전", "협업"},
		},
		Vision: types.SummaryResult{
			Topic: types.TopicVision, Text: "insufficient public information found", Confidence: types.ConfidenceLow,
		},
		Errors:  []string{"search_unavailable: serpapi search unavailable (HTTP 401)"},
		Details: []types.RunError{{Kind: types.ErrorKindSearchUnavailable, Message: "serpapi search unavailable (HTTP 401)"}},
		States: map[types.Topic]types.TopicState{
			types.TopicOverview: types.StateSummarized,
			types.TopicTalent:   types.StateSummarized,
			types.TopicVision:   types.StateFailedLowConfidence,
		},
		StartedAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
		Duration:  12 * time.Second,
	}
}

func TestReportSchema_AcceptsReport(t *testing.T) {
	data, err := json.Marshal(sampleReport())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	assert.NoError(t, schemas.ValidateJSON("report.schema.json", path))
}

func TestReportSchema_RejectsBadConfidence(t *testing.T) {
	report := sampleReport()
	report.Vision.Confidence = "MEDIUM"
	data, err := json.Marshal(report)
	require.NoError(t, err)

	schema, err := os.ReadFile("report.schema.json")
	require.NoError(t, err)

	err = schemas.ValidateJSONString(string(schema), string(data))
	var validationErr *schemas.ValidationError
	require.ErrorAs(t, err, &validationErr)
}
