package metrics

// Label 指标标签，用于为指标添加维度信息
//
// 标签值应相对稳定，避免高基数（如 bean id）。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数
//
//	counter.Inc(ctx, metrics.L("result", "success"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}
