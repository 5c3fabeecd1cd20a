package render

import (
	"bytes"
	"embed"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"path"
	"sort"
	"strings"
	texttmpl "text/template"

	"course_outreach/internal/app"
	"course_outreach/internal/domain/mail"
)

//go:embed templates/*.gohtml templates/*.txt
var templateFS embed.FS

var ErrTemplateNotFound = fmt.Errorf("body template not found")

const (
	baseTemplate    = "templates/_base.gohtml"
	summaryTemplate = "templates/run_summary.txt"
	layoutName      = "layout"
)

var funcs = map[string]any{
	"inc": func(i int) int { return i + 1 },
}

// Renderer executes the embedded body templates. Each "<set>.gohtml" file
// defines one block per slot; a body template id is "<set>.<slot>".
type Renderer struct {
	sets    map[string]*htmltmpl.Template
	summary *texttmpl.Template
}

type layoutData struct {
	Letter mail.Letter
	Body   htmltmpl.HTML
}

// New parses every embedded template.
func New() (*Renderer, error) {
	r := &Renderer{sets: make(map[string]*htmltmpl.Template)}

	files, err := fs.Glob(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("render: listing templates: %w", err)
	}
	for _, fp := range files {
		fname := path.Base(fp)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		set := strings.TrimSuffix(fname, path.Ext(fname))
		tmpl, err := htmltmpl.New(set).Funcs(funcs).Option("missingkey=error").ParseFS(templateFS, baseTemplate, fp)
		if err != nil {
			return nil, fmt.Errorf("render: parsing %s: %w", fname, err)
		}
		r.sets[set] = tmpl
	}

	summary, err := texttmpl.New(path.Base(summaryTemplate)).ParseFS(templateFS, summaryTemplate)
	if err != nil {
		return nil, fmt.Errorf("render: parsing run summary: %w", err)
	}
	r.summary = summary
	return r, nil
}

func splitTemplateID(templateID string) (set, slot string, ok bool) {
	set, slot, ok = strings.Cut(templateID, ".")
	return set, slot, ok && set != "" && slot != ""
}

// Has reports whether a body template id resolves to a defined block.
func (r *Renderer) Has(templateID string) bool {
	set, slot, ok := splitTemplateID(templateID)
	if !ok {
		return false
	}
	tmpl, ok := r.sets[set]
	return ok && tmpl.Lookup(slot) != nil
}

// Sets returns the names of the parsed template sets.
func (r *Renderer) Sets() []string {
	out := make([]string, 0, len(r.sets))
	for name := range r.sets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RenderBody renders the slot block and wraps it in the shared layout.
func (r *Renderer) RenderBody(templateID string, letter mail.Letter) (string, error) {
	set, slot, ok := splitTemplateID(templateID)
	if !ok {
		return "", fmt.Errorf("%w: malformed id %q", ErrTemplateNotFound, templateID)
	}
	tmpl, ok := r.sets[set]
	if !ok || tmpl.Lookup(slot) == nil {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, templateID)
	}

	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, slot, letter); err != nil {
		return "", fmt.Errorf("render: executing %s: %w", templateID, err)
	}
	var out bytes.Buffer
	data := layoutData{Letter: letter, Body: htmltmpl.HTML(body.String())}
	if err := tmpl.ExecuteTemplate(&out, layoutName, data); err != nil {
		return "", fmt.Errorf("render: executing layout for %s: %w", templateID, err)
	}
	return out.String(), nil
}

// RenderRunSummary renders the plain-text run summary sent to the admin chat.
func (r *Renderer) RenderRunSummary(report *app.RunReport) (string, error) {
	if report == nil || report.Run == nil {
		return "", fmt.Errorf("render: empty run report")
	}
	var out bytes.Buffer
	if err := r.summary.Execute(&out, report); err != nil {
		return "", fmt.Errorf("render: executing run summary: %w", err)
	}
	return strings.TrimSpace(out.String()), nil
}
