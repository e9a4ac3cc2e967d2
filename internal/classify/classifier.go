// Package classify assigns multi-label categories by keyword containment.
package classify

import (
	"IDCIntel/internal/domain"
	"IDCIntel/internal/textutil"
)

var keywordsByCategory = map[domain.Category][]string{
	domain.CategoryInvestment: {
		"融资", "投资", "并购", "收购", "IPO", "估值", "轮次",
		"风投", "PE", "VC", "募资", "资本", "股权", "上市", "挂牌",
	},
	domain.CategoryTechnology: {
		"GPU", "芯片", "处理器", "算力", "液冷", "风冷", "散热",
		"制冷", "新品", "发布", "推出", "上线", "技术", "突破",
		"创新", "研发", "AI模型", "训练", "推理", "性能", "效率", "优化",
	},
	domain.CategoryPolicy: {
		"政策", "法规", "标准", "规范", "监管", "审批", "许可",
		"备案", "规划", "指导", "意见", "通知", "国家", "政府",
		"工信部", "发改委", "条例", "办法", "细则",
		"国家数据局", "网信办", "能源局", "部门", "五部门", "三部门", "六部门",
		"东数西算", "数据基础设施", "算力网", "新基建", "数据要素",
		"PUE", "能耗双控", "绿色数据中心", "数据安全", "数据中心规划",
		"优化改造", "试点", "示范", "合规", "要求", "指南",
		"行动计划", "实施方案", "管理条例", "管理办法",
		"白皮书", "蓝皮书", "政策解读", "政府文件", "发文", "印发",
	},
	domain.CategoryMarket: {
		"市场", "份额", "排名", "占比", "增长", "下滑", "趋势",
		"预测", "报告", "分析", "研究", "调研", "需求", "供给",
		"竞争", "格局", "价格", "成本", "利润",
	},
}

// Classifier is pure and safe for concurrent use.
type Classifier struct {
	keywords map[domain.Category][]string
}

// New returns a classifier over the built-in keyword lists.
func New() *Classifier {
	return &Classifier{keywords: keywordsByCategory}
}

// Classify returns every matching label in the fixed order Investment,
// Technology, Policy, Market, or exactly {Other} when nothing matched.
func (c *Classifier) Classify(title, content string) domain.Categories {
	text := textutil.Combine(title, content)

	out := make(domain.Categories, 0, len(domain.CategoryOrder))
	for _, cat := range domain.CategoryOrder {
		if textutil.ContainsAny(text, c.keywords[cat]) {
			out = append(out, cat)
		}
	}
	if len(out) == 0 {
		return domain.Categories{domain.CategoryOther}
	}
	return out
}
