package lure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderGeneric(t *testing.T) {
	page, err := NewRegistry().Render(GenericTemplate)
	require.NoError(t, err)

	html := string(page.HTML)
	assert.Equal(t, GenericTemplate, page.Key)
	assert.Contains(t, html, `action="/login"`)
	assert.Contains(t, html, `name="email"`)
	assert.Contains(t, html, `name="password"`)
	assert.Contains(t, html, "Sign in to continue")
}

func TestRenderUnknown(t *testing.T) {
	_, err := NewRegistry().Render("nope")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestRegisterEscapesAndDefaults(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("intranet", Descriptor{Title: "<b>Intranet</b>"}))

	page, err := r.Render("intranet")
	require.NoError(t, err)
	html := string(page.HTML)
	assert.NotContains(t, html, "<b>Intranet</b>")
	assert.Contains(t, html, "&lt;b&gt;Intranet&lt;/b&gt;")
	assert.Contains(t, html, "Email address")
	assert.Equal(t, []string{GenericTemplate, "intranet"}, r.Keys())
}

func TestRegisterRequiresKey(t *testing.T) {
	assert.Error(t, NewRegistry().Register("", Descriptor{}))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
templates:
  helpdesk:
    title: IT Helpdesk
    primary_color: "#aa3300"
    submit_label: Continue
`), 0o600))

	r := NewRegistry()
	require.NoError(t, r.LoadFile(path))

	d, err := r.Lookup("helpdesk")
	require.NoError(t, err)
	assert.Equal(t, "IT Helpdesk", d.Title)
	assert.Equal(t, "IT Helpdesk", d.Heading)
	assert.Equal(t, "#aa3300", d.PrimaryColor)
	assert.Equal(t, "Continue", d.SubmitLabel)
	assert.Equal(t, "Password", d.PasswordLabel)
}

func TestLoadFileMissing(t *testing.T) {
	assert.Error(t, NewRegistry().LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestAwarenessPage(t *testing.T) {
	html := string(AwarenessPage())
	assert.Contains(t, html, "simulated phishing exercise")
	assert.Contains(t, html, "Your password was not stored")
}
