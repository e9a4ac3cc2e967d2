package relevance

import (
	"fmt"

	"IDCIntel/internal/textutil"
)

const excerptRunes = 800

const systemPrompt = "你是IDC（互联网数据中心）行业的资深分析师，负责筛选与IDC、数据中心、算力基础设施直接相关的新闻。只返回JSON。"

const userPromptTemplate = `请分析以下新闻与IDC行业的相关性。

标题：%s
内容：%s

请按如下JSON格式返回，不要输出其他内容：
{
  "relevance_score": 0-20的整数，与IDC行业的相关程度,
  "importance_score": 0-20的整数，对行业的重要程度,
  "category": "投资/技术/政策/市场/其他 之一",
  "category_score": 0-10的整数，分类置信度,
  "reason": "不超过100字的判断理由",
  "summary": "不超过150字的中文摘要"
}

评分参考：
- 18-20分：直接涉及数据中心建设、算力基础设施、IDC企业经营
- 12-17分：涉及云计算、AI算力、液冷等上下游
- 8-11分：间接相关，例如通用ICT政策
- 0-7分：与IDC行业无关`

// BuildPrompt renders the user message for one item. Content is cut to the
// first 800 characters.
func BuildPrompt(title, content string) string {
	return fmt.Sprintf(userPromptTemplate, title, textutil.Truncate(content, excerptRunes, ""))
}
