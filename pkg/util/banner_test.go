package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "ar", "ColorGreen")
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, ColorGreen))
	assert.Contains(t, out, "ar version dev")

	buf.Reset()
	PrintBanner(&buf, "ar", "Purple")
	assert.True(t, strings.HasPrefix(buf.String(), ColorReset))
}
