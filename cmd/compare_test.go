package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, []byte(`{"status":"ok"}`)))
	assert.Equal(t, `{"status":"ok"}`, buf.String())
}

func TestWriteReport_PropagatesWriteError(t *testing.T) {
	err := writeReport(failingWriter{}, []byte("report"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write output")
	assert.Contains(t, err.Error(), "broken pipe")
}
