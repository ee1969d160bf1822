package cost

import "time"

// UsageRecord is the durable per-call usage record spec names: one row per
// cloud call that produced tokens, written fire-and-forget by Sink. Follows
// llm/types.go's gorm tag idiom (size/index hints, TableName override).
type UsageRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Provider       string    `gorm:"size:50;not null;index:idx_usage_provider_model" json:"provider"`
	Model          string    `gorm:"size:100;not null;index:idx_usage_provider_model" json:"model"`
	InputTokens    int       `gorm:"not null" json:"input_tokens"`
	OutputTokens   int       `gorm:"not null" json:"output_tokens"`
	CostUSD        float64   `gorm:"type:decimal(12,8);not null" json:"cost_usd"`
	LatencyMS      int64     `gorm:"not null" json:"latency_ms"`
	TTFTMS         *int64    `json:"ttft_ms,omitempty"`
	Streaming      bool      `gorm:"default:false" json:"streaming"`
	RequestID      string    `gorm:"size:100;not null;uniqueIndex" json:"request_id"`
	SessionID      string    `gorm:"size:100;index" json:"session_id,omitempty"`
	Intent         string    `gorm:"size:50" json:"intent,omitempty"`
	WasFallback    bool      `gorm:"default:false" json:"was_fallback"`
	FallbackReason string    `gorm:"size:200" json:"fallback_reason,omitempty"`
	StoredAt       time.Time `gorm:"not null;index" json:"stored_at"`
}

func (UsageRecord) TableName() string {
	return "sc_llm_usage_records"
}
