package utils

// Label 是推荐链路中的一等公民：可解释、可追踪、可透传。
// 混合推荐里主要用它记录召回来源、融合权重、过滤原因等解释信息。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rank / rerank
}

// 标准 Label key
const (
	LabelRecallSource = "recall_source"  // lexical / collaborative，多路命中时以 '|' 累积
	LabelRankFusion   = "rank_fusion"    // 融合权重描述，如 "0.7*lexical+0.3*collaborative"
	LabelRerankDedup  = "rerank_dedup"   // 标题去重时被保留的 item 标记
	LabelFallback     = "recall_fallback" // 协同信号不可用时的降级原因
)

// MergeLabel 合并同名 Label，保留历史：
// Value 以 '|' 累积，Source 以 ',' 累积。重复的 Value 不会重复累积。
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" || existing.Value == incoming.Value {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "", existing.Source == incoming.Source:
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}

// RecallLabel 构造召回来源 Label。
func RecallLabel(source string) Label {
	return Label{Value: source, Source: "recall"}
}
