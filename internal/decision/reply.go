package decision

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"swarm/internal/pkg/jsonutil"
	"swarm/internal/strategy"
)

const replySchemaJSON = `{
  "type": "object",
  "required": ["action"],
  "properties": {
    "action": {"type": "string", "pattern": "(?i)^\\s*(buy|sell|hold)\\s*$"},
    "symbol_id": {"type": "integer"},
    "instrument_id": {"type": "integer"},
    "order_type": {"type": "string", "pattern": "(?i)^\\s*(limit|market)\\s*$"},
    "price": {"type": ["number", "null"]},
    "quantity": {"type": "integer"},
    "reasoning": {"type": "string"}
  }
}`

var replySchema = jsonschema.MustCompileString("reply.json", replySchemaJSON)

// ParseReply 解析外部决策源的回复。HOLD 返回 (nil, nil)；
// 格式不合法时返回包装了 ErrInvalidDecision 的错误。
// 价格与数量的业务校验留到执行阶段统一做。
func ParseReply(raw string) (*strategy.TradingDecision, error) {
	body, ok := jsonutil.ExtractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("%w: 回复中没有 JSON", ErrInvalidDecision)
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDecision, err)
	}
	if err := replySchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDecision, err)
	}

	r := gjson.Parse(body)
	action := strategy.Action(strings.ToUpper(strings.TrimSpace(r.Get("action").String())))
	if action == strategy.ActionHold {
		return nil, nil
	}
	id := r.Get("symbol_id")
	if !id.Exists() {
		id = r.Get("instrument_id")
	}
	kind := strategy.OrderLimit
	if k := strings.ToUpper(strings.TrimSpace(r.Get("order_type").String())); k != "" {
		kind = strategy.OrderKind(k)
	}
	return &strategy.TradingDecision{
		Action:       action,
		InstrumentID: int(id.Int()),
		Kind:         kind,
		Price:        r.Get("price").Float(),
		Quantity:     int(r.Get("quantity").Int()),
		Reasoning:    r.Get("reasoning").String(),
		Origin:       strategy.OriginExternal,
	}, nil
}
