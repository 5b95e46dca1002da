package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		filename    string
		contentType string
		suffix      string
	}{
		{"photo.jpeg", "image/jpeg", "-photo.jpg"},
		{"screen.PNG", "image/png", "-screen.png"},
		{"../../etc/passwd", "", "-passwd.bin"},
		{"", "image/webp", "-image.webp"},
	}

	for _, tt := range tests {
		name := objectName(tt.filename, tt.contentType, now)
		assert.True(t, strings.HasPrefix(name, chatImageFolder+"/20240501093000-"), name)
		assert.True(t, strings.HasSuffix(name, tt.suffix), name)
		assert.NotContains(t, strings.TrimPrefix(name, chatImageFolder+"/"), "/")
	}

	assert.NotEqual(t, objectName("a.png", "image/png", now), objectName("a.png", "image/png", now))
}
