package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/snipstash/snipstash-server/internal/store"
)

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   store.PageRequest
		want store.PageRequest
	}{
		{"defaults", store.PageRequest{}, store.PageRequest{Offset: 0, Limit: 50}},
		{"negative limit", store.PageRequest{Limit: -3}, store.PageRequest{Limit: 50}},
		{"clamped", store.PageRequest{Offset: 10, Limit: 500}, store.PageRequest{Offset: 10, Limit: 100}},
		{"lower bound", store.PageRequest{Limit: 1}, store.PageRequest{Limit: 1}},
		{"negative offset", store.PageRequest{Offset: -5, Limit: 20}, store.PageRequest{Offset: 0, Limit: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestPage_HasMore(t *testing.T) {
	for total := 0; total <= 130; total += 13 {
		for offset := 0; offset <= 130; offset += 25 {
			for _, limit := range []int{1, 20, 50, 100} {
				n := max(0, min(limit, total-offset))
				p := store.Page[int]{Items: make([]int, n), Offset: offset, Limit: limit, Total: total}

				assert.Equal(t, offset+limit < total, p.HasMore())
				assert.LessOrEqual(t, len(p.Items), limit)
				assert.Equal(t, offset+n, p.NextOffset())
			}
		}
	}
}
