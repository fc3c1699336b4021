package handler

import (
	"context"
	"html/template"
	"time"

	twmerge "github.com/Oudwins/tailwind-merge-go"
	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DukeRupert/authflow/internal/csrf"
	"github.com/DukeRupert/authflow/internal/templ/shared"
)

const (
	inputBaseClass  = "block w-full rounded-md border border-gray-300 px-3 py-2 text-sm focus:border-indigo-500 focus:outline-none"
	inputErrorClass = "border-red-500 focus:border-red-500"
)

var titleCaser = cases.Title(language.English)

// TemplateFuncs returns the functions available to every page.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"year":  func() int { return time.Now().Year() },
		"title": titleCaser.String,

		// cn merges Tailwind class lists, later classes winning conflicts.
		"cn": func(classes ...string) string {
			return twmerge.Merge(classes...)
		},

		// default returns fallback when val is missing or empty.
		"default": func(fallback string, val any) any {
			if val == nil || val == "" {
				return fallback
			}
			return val
		},

		// dict builds the argument map for component templates.
		"dict": func(pairs ...any) map[string]any {
			if len(pairs)%2 != 0 {
				return nil
			}
			m := make(map[string]any, len(pairs)/2)
			for i := 0; i < len(pairs); i += 2 {
				key, ok := pairs[i].(string)
				if !ok {
					return nil
				}
				m[key] = pairs[i+1]
			}
			return m
		},

		// Form helpers
		"csrfField": func(token string) template.HTML {
			return template.HTML(`<input type="hidden" name="` + csrf.FormFieldName + `" value="` + template.HTMLEscapeString(token) + `">`)
		},
		"fieldError": func(errs map[string]string, field string) string {
			return errs[field]
		},
		"inputClass": func(errs map[string]string, field string) string {
			if _, ok := errs[field]; ok {
				return twmerge.Merge(inputBaseClass, inputErrorClass)
			}
			return inputBaseClass
		},

		// flash renders the shared banner component.
		"flash": func(f *shared.Flash) (template.HTML, error) {
			return templ.ToGoHTML(context.Background(), shared.Banner(f))
		},
	}
}
