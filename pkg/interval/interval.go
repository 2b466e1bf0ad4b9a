package interval

import "time"

// ── 半开区间工具 ──────────────────────────────────────────────
//
// 职责：提供 [start, end) 半开区间的重叠判定，以及设施本地
// 无时区时间戳的固定文本编解码。
//
// 设计决策：
//   - 区间视为半开：a.End == b.Start 的"首尾相接"不算重叠
//   - 完全包含与部分相交统一视为重叠（调用方统一走确认流程）
//   - 时间戳一律按设施本地挂钟时间处理，不做任何时区换算
// ─────────────────────────────────────────────────────────────

// TzLessDateTimeFormat 跨外部边界的无时区时间戳固定格式（秒级精度）
const TzLessDateTimeFormat = "2006-01-02 15:04:05"

// Interval 半开时间区间 [StartsAt, EndsAt)
type Interval struct {
	StartsAt time.Time
	EndsAt   time.Time
}

// Overlaps 判定两个区间是否重叠。
// 规则：一方完全包含于另一方，或存在任意部分相交。
// 首尾相接（a.EndsAt == b.StartsAt）不算重叠。
func Overlaps(a, b Interval) bool {
	contained := !a.StartsAt.Before(b.StartsAt) && !a.EndsAt.After(b.EndsAt)
	partial := a.StartsAt.Before(b.EndsAt) && a.EndsAt.After(b.StartsAt)
	return contained || partial
}

// AnyOverlap 判定候选区间是否与已有区间中的任意一个重叠
func AnyOverlap(candidate Interval, existing []Interval) bool {
	for _, e := range existing {
		if Overlaps(candidate, e) {
			return true
		}
	}
	return false
}

// ParseTzLess 解析 "YYYY-MM-DD HH:mm:ss" 格式的无时区时间戳。
// 不附加任何时区信息，按原样保留挂钟时间。
func ParseTzLess(s string) (time.Time, error) {
	return time.Parse(TzLessDateTimeFormat, s)
}

// FormatTzLess 序列化为 "YYYY-MM-DD HH:mm:ss" 文本
func FormatTzLess(t time.Time) string {
	return t.Format(TzLessDateTimeFormat)
}
