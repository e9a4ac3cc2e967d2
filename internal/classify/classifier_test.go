package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"IDCIntel/internal/domain"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	c := New()
	tests := []struct {
		name    string
		title   string
		content string
		want    domain.Categories
	}{
		{
			name:  "no keyword",
			title: "某园区举办开放日活动",
			want:  domain.Categories{domain.CategoryOther},
		},
		{
			name:    "investment and technology",
			title:   "某公司完成15亿元C轮融资用于IDC建设",
			content: "本轮资金将用于建设大型数据中心并部署GPU集群",
			want:    domain.Categories{domain.CategoryInvestment, domain.CategoryTechnology},
		},
		{
			name:  "order independent of text order",
			title: "市场调研显示液冷渗透率提升，多家机构加大投资",
			want: domain.Categories{
				domain.CategoryInvestment,
				domain.CategoryTechnology,
				domain.CategoryMarket,
			},
		},
		{
			name:  "policy only",
			title: "工信部印发数据中心能效指南",
			want:  domain.Categories{domain.CategoryPolicy},
		},
		{
			name:  "empty",
			want:  domain.Categories{domain.CategoryOther},
		},
	}

	for _, tt := range tests {
		got := c.Classify(tt.title, tt.content)
		assert.Equal(t, tt.want, got, tt.name)
		assert.NotEmpty(t, got, tt.name)
	}
}

func TestClassifyOtherIsExclusive(t *testing.T) {
	t.Parallel()

	c := New()
	inputs := []string{"投资", "GPU", "政策", "市场", "天气晴朗", ""}
	for _, in := range inputs {
		got := c.Classify(in, "")
		if got.Contains(domain.CategoryOther) {
			assert.Len(t, got, 1, in)
		}
	}
}
