package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/muryar/internal/session"
)

func TestSynthesizeRequestDefaults(t *testing.T) {
	r := SynthesizeRequest{Text: "hi"}.WithDefaults()
	assert.Equal(t, "Hausa", r.Language)
	assert.Equal(t, "Algenib", r.Voice)

	r = SynthesizeRequest{Text: "hi", Language: "Igbo", Voice: "Kore"}.WithDefaults()
	assert.Equal(t, "Igbo", r.Language)
	assert.Equal(t, "Kore", r.Voice)
}

func TestSessionUpdateDistinguishesEmptyFromAbsent(t *testing.T) {
	var u SessionUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"text":""}`), &u))
	require.NotNil(t, u.Text)
	assert.Empty(t, *u.Text)
	assert.Nil(t, u.Language)
	assert.Nil(t, u.Voice)
}

func TestNewSession(t *testing.T) {
	st := session.New().SetText("one two three")
	v := NewSession("abc", st)
	assert.Equal(t, "abc", v.ID)
	assert.Equal(t, 3, v.WordCount)
	assert.Equal(t, 50000, v.MaxWords)
	assert.True(t, v.CanGenerate)
	assert.Nil(t, v.Audio)

	st = st.CompleteGeneration(session.AudioRef{ObjectID: "o1", URL: "/audio/o1", FileName: "muryar-ai-Hausa-Algenib.wav"})
	v = NewSession("abc", st)
	require.NotNil(t, v.Audio)
	assert.Equal(t, "/audio/o1", v.Audio.URL)

	body, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"file_name":"muryar-ai-Hausa-Algenib.wav"`)
}

func TestNewCatalog(t *testing.T) {
	c := NewCatalog()
	assert.Len(t, c.Languages, 5)
	assert.Len(t, c.Voices, 6)
	assert.Equal(t, 50000, c.MaxWords)
}
