package linkclass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/user/backlink-service/internal/entity"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"", entity.LinkTypeDofollow},
		{"   ", entity.LinkTypeDofollow},
		{"nofollow", entity.LinkTypeNofollow},
		{"ugc", entity.LinkTypeUGC},
		{"sponsored", entity.LinkTypeSponsored},
		{"nofollow sponsored", entity.LinkTypeSponsored},
		{"ugc nofollow", entity.LinkTypeNofollow},
		{"NOFOLLOW", entity.LinkTypeNofollow},
		{"noopener noreferrer", entity.LinkTypeDofollow},
		{"external ugc", entity.LinkTypeUGC},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.rel), "rel=%q", tt.rel)
	}
}

func TestWeightOrdering(t *testing.T) {
	assert.Greater(t, Weight(entity.LinkTypeDofollow), Weight(entity.LinkTypeSponsored))
	assert.Greater(t, Weight(entity.LinkTypeSponsored), Weight(entity.LinkTypeUGC))
	assert.Greater(t, Weight(entity.LinkTypeUGC), Weight(entity.LinkTypeNofollow))
	assert.Greater(t, Weight(entity.LinkTypeNofollow), Weight(entity.LinkTypeNone))
	assert.Zero(t, Weight("unknown"))
}
