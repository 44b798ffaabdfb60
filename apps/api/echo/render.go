package echoapi

import (
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/grade"
	"github.com/trezcool/escola/core/user"
)

// View is what every page is rendered with.
type View struct {
	Template string        `json:"template"`
	Identity user.Identity `json:"identity"`
	Flashes  []Flash       `json:"flashes"`
	Data     interface{}   `json:"data"`
}

// render pops the pending flashes and renders the named page.
// Without a registered echo.Renderer, the View is sent as JSON.
func render(ctx echo.Context, code int, name string, data interface{}) error {
	flashes, err := popFlashes(ctx)
	if err != nil {
		return err
	}
	v := View{
		Template: name,
		Identity: contextIdentity(ctx),
		Flashes:  flashes,
		Data:     data,
	}
	if ctx.Echo().Renderer == nil {
		return ctx.JSON(code, v)
	}
	return ctx.Render(code, name, v)
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(core.DateLayout)
	},
	"gradeField": grade.FieldName,
	"round":      core.Round,
}

// TemplateRenderer renders `<name>.gohtml` pages within the `_base.gohtml` layout.
type TemplateRenderer struct {
	templates map[string]*template.Template
}

var _ echo.Renderer = (*TemplateRenderer)(nil)

func NewTemplateRenderer(fsys fs.FS) (*TemplateRenderer, error) {
	fps, err := fs.Glob(fsys, "*.gohtml")
	if err != nil {
		return nil, errors.Wrap(err, "listing templates")
	}

	r := &TemplateRenderer{templates: make(map[string]*template.Template)}
	for _, fp := range fps {
		fname := path.Base(fp)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		tmpl, err := template.New(fname).Funcs(templateFuncs).ParseFS(fsys, "_base.gohtml", fp)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", fp)
		}
		r.templates[strings.TrimSuffix(fname, ".gohtml")] = tmpl.Option("missingkey=error")
	}
	return r, nil
}

func (r *TemplateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return errors.Errorf("template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}
