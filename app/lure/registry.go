// Package lure renders the simulated sign-in page and the awareness page shown after a submission
package lure

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"sort"
	"sync"

	"github.com/spf13/viper"
)

// GenericTemplate is the built-in neutral descriptor key
const GenericTemplate = "generic"

// FormAction is the path the rendered form posts to
const FormAction = "/login"

var ErrUnknownTemplate = errors.New("unknown lure template")

// Descriptor drives the rendering of one lure page
type Descriptor struct {
	Title         string `mapstructure:"title"`
	Heading       string `mapstructure:"heading"`
	LogoURL       string `mapstructure:"logo_url"`
	PrimaryColor  string `mapstructure:"primary_color"`
	Background    string `mapstructure:"background"`
	EmailLabel    string `mapstructure:"email_label"`
	PasswordLabel string `mapstructure:"password_label"`
	SubmitLabel   string `mapstructure:"submit_label"`
}

func (d Descriptor) withDefaults() Descriptor {
	g := builtin[GenericTemplate]
	if d.Title == "" {
		d.Title = g.Title
	}
	if d.Heading == "" {
		d.Heading = d.Title
	}
	if d.PrimaryColor == "" {
		d.PrimaryColor = g.PrimaryColor
	}
	if d.Background == "" {
		d.Background = g.Background
	}
	if d.EmailLabel == "" {
		d.EmailLabel = g.EmailLabel
	}
	if d.PasswordLabel == "" {
		d.PasswordLabel = g.PasswordLabel
	}
	if d.SubmitLabel == "" {
		d.SubmitLabel = g.SubmitLabel
	}
	return d
}

var builtin = map[string]Descriptor{
	GenericTemplate: {
		Title:         "Sign in",
		Heading:       "Sign in to continue",
		PrimaryColor:  "#2f6fed",
		Background:    "#f4f6fa",
		EmailLabel:    "Email address",
		PasswordLabel: "Password",
		SubmitLabel:   "Sign in",
	},
}

// Registry maps template keys to descriptors
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
}

// NewRegistry returns a registry holding only the built-in templates
func NewRegistry() *Registry {
	r := &Registry{descriptors: make(map[string]Descriptor, len(builtin))}
	for k, d := range builtin {
		r.descriptors[k] = d
	}
	return r
}

// Register adds or replaces a descriptor
func (r *Registry) Register(key string, d Descriptor) error {
	if key == "" {
		return fmt.Errorf("template key is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors[key] = d.withDefaults()
	return nil
}

// LoadFile registers every descriptor found under the "templates" key of a YAML, JSON or TOML file
// Keys come back lowercased, as viper folds them
func (r *Registry) LoadFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read lure templates %s: %w", path, err)
	}
	var file struct {
		Templates map[string]Descriptor `mapstructure:"templates"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return fmt.Errorf("failed to decode lure templates %s: %w", path, err)
	}
	for key, d := range file.Templates {
		if err := r.Register(key, d); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the descriptor for key
func (r *Registry) Lookup(key string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[key]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, key)
	}
	return d, nil
}

// Keys lists registered template keys in sorted order
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.descriptors))
	for k := range r.descriptors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Page is a pre-rendered lure page
type Page struct {
	Key  string
	HTML []byte
}

// Render renders the page for key once; the result is served unchanged for every visit
func (r *Registry) Render(key string) (*Page, error) {
	d, err := r.Lookup(key)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = pageTemplate.Execute(&buf, struct {
		Descriptor
		Action string
	}{d, FormAction})
	if err != nil {
		return nil, fmt.Errorf("failed to render lure template %s: %w", key, err)
	}
	return &Page{Key: key, HTML: buf.Bytes()}, nil
}

// AwarenessPage returns the page served after a submission
func AwarenessPage() []byte { return awarenessHTML }

var pageTemplate = template.Must(template.New("lure").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { margin: 0; font-family: system-ui, sans-serif; background: {{.Background}}; }
.card { max-width: 360px; margin: 10vh auto; padding: 32px; background: #fff; border-radius: 8px; box-shadow: 0 2px 12px rgba(0,0,0,.08); }
.card img { display: block; max-height: 48px; margin: 0 auto 16px; }
.card h1 { font-size: 20px; text-align: center; margin: 0 0 24px; }
.card label { display: block; font-size: 13px; margin-bottom: 4px; }
.card input { width: 100%; box-sizing: border-box; padding: 10px; margin-bottom: 16px; border: 1px solid #ccd; border-radius: 4px; }
.card button { width: 100%; padding: 10px; border: 0; border-radius: 4px; color: #fff; background: {{.PrimaryColor}}; cursor: pointer; }
</style>
</head>
<body>
<div class="card">
{{if .LogoURL}}<img src="{{.LogoURL}}" alt="">{{end}}
<h1>{{.Heading}}</h1>
<form method="post" action="{{.Action}}">
<label for="email">{{.EmailLabel}}</label>
<input id="email" name="email" type="email" autocomplete="off" required>
<label for="password">{{.PasswordLabel}}</label>
<input id="password" name="password" type="password" autocomplete="off" required>
<button type="submit">{{.SubmitLabel}}</button>
</form>
</div>
</body>
</html>
`))

var awarenessHTML = []byte(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Security awareness exercise</title>
<style>
body { margin: 0; font-family: system-ui, sans-serif; background: #f4f6fa; }
.card { max-width: 520px; margin: 10vh auto; padding: 32px; background: #fff; border-radius: 8px; box-shadow: 0 2px 12px rgba(0,0,0,.08); }
h1 { font-size: 22px; margin-top: 0; }
li { margin-bottom: 8px; }
</style>
</head>
<body>
<div class="card">
<h1>This was a simulated phishing exercise</h1>
<p>The page you just used was part of an authorized security awareness test run by your organization. Your password was not stored.</p>
<p>Next time, before signing in:</p>
<ul>
<li>Check the address bar and make sure the domain is one you expect.</li>
<li>Be suspicious of messages that push you to act urgently.</li>
<li>Report suspicious messages to your security team.</li>
</ul>
</div>
</body>
</html>
`)
