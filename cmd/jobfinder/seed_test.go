package main

import (
	"encoding/json"
	"testing"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseSeedDocuments_ShouldConvertYamlToJson(t *testing.T) {
	assert := assert.New(t)

	docs, err := parseSeedDocuments([]byte(`
queue-settings:
  minMatchScore: 75
  maxRetries: 4
job-filters:
  strikeThreshold: 3
  hardRejections:
    minSalaryFloor: 100000
    excludedKeywords: [clearance]
`))
	require.NoError(t, err)
	assert.Len(docs, 2)

	settings := entities.QueueSettings{}
	require.NoError(t, json.Unmarshal(docs[repositories.DocQueueSettings], &settings))
	assert.Equal(75, settings.MinMatchScore)
	assert.Equal(4, settings.MaxRetries)
	assert.Contains(string(docs[repositories.DocJobFilters]), `"minSalaryFloor":100000`)
}

func Test_ParseSeedDocuments_UnknownDocument_ShouldFail(t *testing.T) {
	_, err := parseSeedDocuments([]byte("job-filterz:\n  strikeThreshold: 3\n"))
	assert.ErrorContains(t, err, "unknown config document")
}

func Test_ParseSeedDocuments_UnknownField_ShouldFail(t *testing.T) {
	_, err := parseSeedDocuments([]byte("queue-settings:\n  minScore: 75\n"))
	assert.ErrorContains(t, err, "queue-settings")
}

func Test_ParseSeedDocuments_Empty_ShouldFail(t *testing.T) {
	_, err := parseSeedDocuments([]byte(""))
	assert.Error(t, err)
}
