package ingest

// SchemaScore 单个 Schema 的匹配得分
type SchemaScore struct {
	Schema string `json:"schema"`
	Score  int    `json:"score"`
}

// Classification 报表类型识别结果
// Unclassified 表示最高得分为 0，仅按优先级兜底选择，
// 调用方必须把它与真实命中区分开来展示
type Classification struct {
	Schema       Schema        `json:"schema"`
	Scores       []SchemaScore `json:"scores"`
	Unclassified bool          `json:"unclassified"`
}

// Classify 按表头给各 Schema 打分并选出最佳匹配
// 得分 = 必填字段名作为表头标签大小写不敏感子串出现的个数；
// 并列或全零时取声明顺序靠前的 Schema（确定性兜底）
func Classify(header []string) Classification {
	all := Schemas()
	scores := make([]SchemaScore, len(all))

	best := 0
	bestScore := -1
	for i, schema := range all {
		score := 0
		for _, field := range schema.Required {
			for _, label := range header {
				if fieldMatchesLabel(field, label) {
					score++
					break
				}
			}
		}
		scores[i] = SchemaScore{Schema: schema.Name, Score: score}
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	return Classification{
		Schema:       all[best],
		Scores:       scores,
		Unclassified: bestScore <= 0,
	}
}
