// Package cost computes per-call pricing and persists usage records
// fire-and-forget, grounded on the teacher's llm/budget.TokenBudgetManager
// (atomic counters, alert thresholds) and llm/db_init.go's GORM model
// conventions. Usage persistence is new: the teacher budgets in-process
// only and never writes a durable record, so UsageRecord and Sink are
// built from scratch in the teacher's GORM-model idiom rather than
// adapted from an existing file.
package cost
