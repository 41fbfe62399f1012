package ingest

import "strings"

// Schema 规范记录类型：导入目标的字段集合
// Required 缺失会产生校验问题，Optional 仅参与列映射
type Schema struct {
	Name     string   `json:"name"`
	Title    string   `json:"title"`
	Required []string `json:"required"`
	Optional []string `json:"optional"`
}

// schemas 全部规范 Schema，声明顺序即分类优先级
// 分类打分并列时取先声明者，这是对外承诺的确定性规则
var schemas = []Schema{
	{
		Name:  "outlet",
		Title: "Outlet / POSM",
		Required: []string{
			"Agent Name", "URN", "Retail Point Name", "Address", "State", "LGA",
		},
		Optional: []string{
			"Phone", "Region", "Outlet Type", "Contact Name",
			"Latitude", "Longitude",
			"Table", "Chair", "Parasol", "Tarpaulin", "Hawker Jacket",
		},
	},
	{
		Name:  "agent",
		Title: "Agent",
		// Username 须排在 Name 前面：词表按序取第一个子串命中，
		// 否则 "Username" 表头会被 "Name" 抢先吸附
		Required: []string{
			"Username", "Name", "Role",
		},
		Optional: []string{
			"Region", "State", "Phone", "Email",
		},
	},
	{
		Name:  "execution",
		Title: "Execution",
		Required: []string{
			"URN", "Retail Point Name", "Date", "Status",
		},
		Optional: []string{
			"Notes", "Agent Name",
			"Table", "Chair", "Parasol", "Tarpaulin", "Hawker Jacket",
		},
	},
}

// Schemas 返回全部 Schema（按优先级顺序的副本）
func Schemas() []Schema {
	out := make([]Schema, len(schemas))
	copy(out, schemas)
	return out
}

// SchemaByName 按名称查找 Schema
func SchemaByName(name string) (Schema, bool) {
	for _, s := range schemas {
		if s.Name == name {
			return s, true
		}
	}
	return Schema{}, false
}

// Fields 必填与可选字段的拼接
func (s Schema) Fields() []string {
	out := make([]string, 0, len(s.Required)+len(s.Optional))
	out = append(out, s.Required...)
	out = append(out, s.Optional...)
	return out
}

// FieldVocabulary 列映射可选字段表
// 先列出当前 Schema 的字段，再按优先级补齐其它 Schema 的字段，
// 以便误分类时操作员仍能手工指到正确字段（跨 Schema 并集，刻意为之）
func FieldVocabulary(active Schema) []string {
	var vocab []string
	seen := make(map[string]bool)
	add := func(fields []string) {
		for _, f := range fields {
			key := strings.ToLower(f)
			if !seen[key] {
				seen[key] = true
				vocab = append(vocab, f)
			}
		}
	}

	add(active.Fields())
	for _, s := range schemas {
		if s.Name != active.Name {
			add(s.Fields())
		}
	}
	return vocab
}

// fieldMatchesLabel 字段名是否为表头标签的大小写不敏感子串
func fieldMatchesLabel(field, label string) bool {
	if field == "" || label == "" {
		return false
	}
	return strings.Contains(strings.ToLower(label), strings.ToLower(field))
}
