package echoapi_test

import (
	"bytes"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/escola/apps/api/echo"
	"github.com/trezcool/escola/core/user"
)

func TestTemplateRenderer(t *testing.T) {
	fsys := fstest.MapFS{
		"_base.gohtml":       {Data: []byte(`{{define "base"}}<p>{{.Identity.Name}}</p>{{range .Flashes}}[{{.Level}}] {{.Message}}{{end}}{{template "content" .}}{{end}}`)},
		"login.gohtml":       {Data: []byte(`{{define "content"}}login{{end}}`)},
		"report_card.gohtml": {Data: []byte(`{{define "content"}}{{date .Data.Day}} {{gradeField 1 2}} {{round .Data.Pct 2}}{{end}}`)},
	}
	r, err := NewTemplateRenderer(fsys)
	require.NoError(t, err)

	var buf bytes.Buffer
	v := View{
		Template: "login",
		Identity: user.Identity{ID: 1, Name: "Zoe & Ben", Role: user.RoleStudent},
		Flashes:  []Flash{{Level: "info", Message: "hi"}},
	}
	require.NoError(t, r.Render(&buf, "login", v, nil))
	assert.Equal(t, "<p>Zoe &amp; Ben</p>[info] hilogin", buf.String())

	buf.Reset()
	v.Flashes = nil
	v.Data = map[string]interface{}{"Day": time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "Pct": 66.6666}
	require.NoError(t, r.Render(&buf, "report_card", v, nil))
	assert.Equal(t, "<p>Zoe &amp; Ben</p>2024-03-01 grade-1-2 66.67", buf.String())

	assert.Error(t, r.Render(&buf, "nope", v, nil))
}
