package monitoring

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogWriters(t *testing.T) {
	defer SetLogWriters(os.Stderr, nil, nil)

	var ops, diag bytes.Buffer
	SetLogWriters(&ops, &diag, nil)

	Opsf("[Test] dropped %d", 3)
	Diagf("[Test] tick %d", 7)
	Tracef("[Test] never written")

	assert.Contains(t, ops.String(), "[Test] dropped 3")
	assert.Contains(t, diag.String(), "[Test] tick 7")
	assert.NotContains(t, ops.String(), "never written")
	assert.NotContains(t, diag.String(), "never written")
}

func TestSetLegacyLogger(t *testing.T) {
	defer SetLogWriters(os.Stderr, nil, nil)

	var buf bytes.Buffer
	SetLegacyLogger(&buf)
	Opsf("a")
	Diagf("b")
	Tracef("c")
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("\n")))

	SetLegacyLogger(nil)
	assert.NotPanics(t, func() {
		Opsf("muted")
		Tracef("muted")
	})
}
