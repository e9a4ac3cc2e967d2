package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuickFilterDefaultDenyList(t *testing.T) {
	t.Parallel()

	f := NewQuickFilter(nil)

	tests := []struct {
		title string
		want  bool
	}{
		{"某公司完成15亿元C轮融资用于IDC建设", true},
		{"白酒行业三季度营收下滑", false},
		{"房地产市场回暖信号明显", false},
		{"游戏公司自建GPU集群", false},
		{"", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.Passes(tt.title), tt.title)
	}
}

func TestQuickFilterCustomTermsCaseInsensitive(t *testing.T) {
	t.Parallel()

	f := NewQuickFilter([]string{"Crypto", " "})
	assert.False(t, f.Passes("New CRYPTO mining farm"))
	assert.Equal(t, "crypto", f.Match("crypto rally"))
	assert.True(t, f.Passes("数据中心液冷改造"))
}
