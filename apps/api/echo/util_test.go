package echoapi_test

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/escola/apps/api/echo"
	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/user"
	"github.com/trezcool/escola/tests"
)

const testPwd = "Pwd.12345"

func setup(t *testing.T) (*Server, *testutil.Services) {
	t.Helper()
	svcs := testutil.NewServices(t)
	srv, err := NewServer(&Options{
		Conf:            svcs.Conf,
		Logger:          core.StdLogger{Std: log.New(io.Discard, "", 0)},
		Translator:      svcs.Translator,
		UserSvc:         svcs.Users,
		SubjectSvc:      svcs.Subjects,
		GradeSvc:        svcs.Grades,
		AttendanceSvc:   svcs.Attendance,
		LessonPlanSvc:   svcs.LessonPlans,
		AnnouncementSvc: svcs.Announcements,
		DashboardSvc:    svcs.Dashboard,
	})
	require.NoError(t, err)
	return srv, svcs
}

type httpTest struct {
	name         string
	method       string
	path         string
	form         url.Values
	client       *client
	wantCode     int
	wantLocation string
	wantTemplate string
}

// view mirrors the JSON rendering of a page.
type view struct {
	Template string          `json:"template"`
	Identity user.Identity   `json:"identity"`
	Flashes  []Flash         `json:"flashes"`
	Data     json.RawMessage `json:"data"`
}

// client is a browser keeping the session cookie between requests.
type client struct {
	t       *testing.T
	srv     *Server
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, srv *Server) *client {
	return &client{t: t, srv: srv, cookies: make(map[string]*http.Cookie)}
}

func (c *client) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.srv.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() { // the last one wins
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, path, nil)
}

func (c *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return c.do(http.MethodPost, path, form)
}

// follow renders the page rec redirects to.
func (c *client) follow(rec *httptest.ResponseRecorder) view {
	c.t.Helper()
	require.Equal(c.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return c.page(rec.Header().Get(echo.HeaderLocation))
}

// page renders path, which must answer 200.
func (c *client) page(path string) view {
	c.t.Helper()
	rec := c.get(path)
	require.Equal(c.t, http.StatusOK, rec.Code, "GET %s: %s", path, rec.Body.String())
	var v view
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func loggedIn(t *testing.T, srv *Server, usr user.User) *client {
	t.Helper()
	c := newClient(t, srv)
	rec := c.post("/login", url.Values{"email": {usr.Email}, "password": {testPwd}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	c.get(rec.Header().Get(echo.HeaderLocation)) // pop the welcome flash
	return c
}

func flashMessages(flashes []Flash) []string {
	msgs := make([]string, 0, len(flashes))
	for _, f := range flashes {
		msgs = append(msgs, f.Level+": "+f.Message)
	}
	return msgs
}

func checkResponse(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if !assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String()) {
		return
	}
	if tt.wantLocation != "" {
		assert.Equal(t, tt.wantLocation, rec.Header().Get(echo.HeaderLocation))
	}
	if tt.wantTemplate != "" {
		var v view
		if assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v)) {
			assert.Equal(t, tt.wantTemplate, v.Template)
		}
	}
}

func runHTTPTests(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			if method == http.MethodPost && tt.form == nil {
				tt.form = url.Values{}
			}
			rec := tt.client.do(method, tt.path, tt.form)
			checkResponse(t, tt, rec)
			if loc := rec.Header().Get(echo.HeaderLocation); loc != "" {
				tt.client.get(loc) // pop the flashes, like a browser would
			}
		})
	}
}
