package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestRegisteredDocIsValidJSON(t *testing.T) {
	doc, err := swag.ReadDoc()
	require.NoError(t, err)

	var parsed struct {
		Swagger string         `json:"swagger"`
		Info    map[string]any `json:"info"`
		Paths   map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))
	assert.Equal(t, "2.0", parsed.Swagger)
	assert.Equal(t, "Muryar API", parsed.Info["title"])
	for _, p := range []string{"/api/catalog", "/api/synthesize", "/api/sessions", "/api/sessions/{id}", "/api/sessions/{id}/generate", "/audio/{id}"} {
		assert.Contains(t, parsed.Paths, p)
	}
}
