package decision

import "errors"

var (
	// ErrInvalidDecision 决策内容不合法（缺少标的、价格或数量非正、标的有挂单），按 HOLD 处理。
	ErrInvalidDecision = errors.New("invalid decision")
	// ErrSourceUnavailable 外部决策源超时、熔断、限流或返回错误，本周期回退到组合策略。
	ErrSourceUnavailable = errors.New("external decision source unavailable")
)
