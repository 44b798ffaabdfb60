package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/user"
)

func TestRollbarLogger_prepare(t *testing.T) {
	logger := NewRollbarLogger(log.New(new(bytes.Buffer), "", 0), core.NewTestConfig())
	err := errors.New("boom")
	extras := map[string]interface{}{"path": "/"}
	id := user.Identity{ID: 7, Name: "Ana", Role: user.RoleTeacher}

	tests := []struct {
		name string
		args []interface{}
		want []interface{}
	}{
		{name: "no args", want: []interface{}{"msg"}},
		{name: "identity dropped", args: []interface{}{err, id}, want: []interface{}{"msg", err}},
		{name: "extras kept", args: []interface{}{extras, id, id}, want: []interface{}{"msg", extras}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logger.prepare("msg", tt.args))
		})
	}
}

func TestRollbarLogger_print(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewRollbarLogger(log.New(buf, "", 0), core.NewTestConfig())

	logger.Error("saving grades", errors.New("boom"))

	assert.Contains(t, buf.String(), "ERROR saving grades")
	assert.Contains(t, buf.String(), "boom")
}
