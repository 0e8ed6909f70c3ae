// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

const (
	TemplateActivation     = "activation.html"
	TemplatePasswordReset  = "password_reset.html"
	TemplateInvitation     = "invitation.html"
	TemplatePatientWelcome = "patient_welcome.html"
)

//go:embed templates/*.html
var templateFS embed.FS

type Renderer struct {
	templates *template.Template
}

// Render executes the named template with data
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer

	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}

	return buf.String(), nil
}

func NewRenderer() (*Renderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail templates: %w", err)
	}

	return &Renderer{templates: t}, nil
}
