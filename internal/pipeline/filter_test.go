package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterAllowList(t *testing.T) {
	f := NewFilter([]string{".png", ".jpg"}, ".enc")

	assert.True(t, f.Admit("/out/a.png"))
	assert.True(t, f.Admit("/out/b.jpg"))
	assert.False(t, f.Admit("/out/c.txt"))
	assert.False(t, f.Admit("/out/noext"))
}

func TestFilterCaseInsensitive(t *testing.T) {
	f := NewFilter([]string{".png"}, ".enc")

	assert.True(t, f.Admit("/out/SHOT.PNG"))
	assert.False(t, f.Admit("/out/A.PNG.ENC"))
}

func TestFilterRejectsEncryptedArtifacts(t *testing.T) {
	f := NewFilter([]string{".png"}, ".enc")

	// the worker produces these itself; admitting them would upload twice
	assert.False(t, f.Admit("/out/a.png.enc"))
	assert.False(t, f.Admit("/out/bare.enc"))
}
