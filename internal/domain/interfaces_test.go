package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkRecordField(t *testing.T) {
	r := ChunkRecord{
		Filename: "report.txt",
		Title:    "report",
		Date:     "2024-01-01",
		Author:   "Alice",
	}

	tests := []struct {
		name  string
		field string
		want  string
		ok    bool
	}{
		{"filename", "filename", "report.txt", true},
		{"title", "title", "report", true},
		{"date", "date", "2024-01-01", true},
		{"author", "author", "Alice", true},
		{"missing location", "location", "", false},
		{"unknown field", "color", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Field(tt.field)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
