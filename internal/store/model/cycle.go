package model

import "gorm.io/datatypes"

// CycleModel maps to 'agent_cycles' table.
type CycleModel struct {
	ID           int64                               `gorm:"column:id;primaryKey;autoIncrement"`
	TraceID      string                              `gorm:"column:trace_id;uniqueIndex"`
	AgentID      string                              `gorm:"column:agent_id;index:idx_cycle_agent_time,priority:1"`
	AgentName    string                              `gorm:"column:agent_name"`
	Personality  string                              `gorm:"column:personality"`
	Outcome      string                              `gorm:"column:outcome;index"`
	Source       string                              `gorm:"column:source"`
	Action       string                              `gorm:"column:action"`
	InstrumentID int                                 `gorm:"column:instrument_id"`
	Quantity     int                                 `gorm:"column:quantity"`
	Price        float64                             `gorm:"column:price"`
	Decision     datatypes.JSONType[DecisionPayload] `gorm:"column:decision"`
	Context      string                              `gorm:"column:context"`
	Error        string                              `gorm:"column:error"`
	StartedAt    int64                               `gorm:"column:started_at;index:idx_cycle_agent_time,priority:2"` // unix ms
	ElapsedMs    int64                               `gorm:"column:elapsed_ms"`
}

func (CycleModel) TableName() string { return "agent_cycles" }

// DecisionPayload 是决策的落库形态；HOLD 周期 Action 为空。
type DecisionPayload struct {
	Action       string  `json:"action,omitempty"`
	InstrumentID int     `json:"instrument_id,omitempty"`
	OrderType    string  `json:"order_type,omitempty"`
	Price        float64 `json:"price,omitempty"`
	Quantity     int     `json:"quantity,omitempty"`
	Score        float64 `json:"score,omitempty"`
	Origin       string  `json:"origin,omitempty"`
	Reasoning    string  `json:"reasoning,omitempty"`
}
