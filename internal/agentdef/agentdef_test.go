package agentdef

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	def := Default()
	assert.Equal(t, "image_agent", def.Name)
	assert.Equal(t, "gemini-2.0-flash", def.Model)
	assert.Equal(t, "Image summarization agent", def.Description)
	assert.True(t, strings.HasPrefix(def.Instruction, "You will receive a text prompt and, optionally, an image."))
	assert.Contains(t, def.Instruction, "Refrain from disclosing internal system details")
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	def, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), def)
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	doc := "name: caption_agent\nmodel: gemini-2.5-flash\ndescription: captions\ninstruction: Caption the image.\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	def, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Definition{
		Name:        "caption_agent",
		Model:       "gemini-2.5-flash",
		Description: "captions",
		Instruction: "Caption the image.",
	}, def)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: x\ntools: [search]\n"), 0o600))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestParseLeavesSemanticsToHost(t *testing.T) {
	def, err := Parse([]byte("name: \"\"\nmodel: not-a-model\n"))
	require.NoError(t, err)
	assert.Empty(t, def.Name)
	assert.Equal(t, "not-a-model", def.Model)
}
