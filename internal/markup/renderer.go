// Package markup renders document models into standalone HTML pages.
//
// Each document type is a templ component over a *core.DocumentModel. The
// renderer only reads the model's view projections; it never computes money.
package markup

import (
	"bytes"
	"context"
	"fmt"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/billdocs/internal/core"
)

// componentFunc builds the page body for one document type.
// It returns a TemplateError when the model lacks data the document needs.
type componentFunc func(m *core.DocumentModel) (templ.Component, error)

// Renderer is the default HTML renderer for every registered document type.
type Renderer struct {
	components map[core.DocumentType]componentFunc
}

// New returns a Renderer with the built-in document components.
func New() *Renderer {
	return &Renderer{
		components: map[core.DocumentType]componentFunc{
			core.DocSummary:        summary,
			core.DocDeviation:      deviation,
			core.DocScrutiny:       scrutiny,
			core.DocExtraItems:     extraItems,
			core.DocCertificateII:  certificateII,
			core.DocCertificateIII: certificateIII,
		},
	}
}

// Render returns the HTML page for document type t.
func (r *Renderer) Render(ctx context.Context, m *core.DocumentModel, t core.DocumentType) (string, error) {
	build, ok := r.components[t]
	if !ok {
		return "", &core.TemplateError{DocumentType: t, Message: "unknown document type"}
	}
	if m == nil {
		return "", &core.TemplateError{DocumentType: t, Message: "no document model"}
	}

	body, err := build(m)
	if err != nil {
		return "", err
	}

	heading := string(t)
	if def, ok := core.Get(t); ok {
		heading = def.Name
	}

	var buf bytes.Buffer
	if err := page(heading).Render(templ.WithChildren(ctx, body), &buf); err != nil {
		return "", &core.TemplateError{DocumentType: t, Message: "render failed", Err: err}
	}
	return buf.String(), nil
}

// requireTitle returns the value of a title field or a TemplateError naming it.
func requireTitle(m *core.DocumentModel, t core.DocumentType, name string) (string, error) {
	v, ok := m.TitleValue(name)
	if !ok || v == "" {
		return "", &core.TemplateError{
			DocumentType: t,
			Reference:    "title." + name,
			Message:      fmt.Sprintf("title sheet has no %q field", name),
		}
	}
	return v, nil
}
