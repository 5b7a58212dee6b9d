package task

import "fmt"

type Statistics struct {
	Total      int            `json:"total"`
	Completed  int            `json:"completed"`
	Incomplete int            `json:"incomplete"`
	DueToday   int            `json:"due_today"`
	Overdue    int            `json:"overdue"`
	ByPriority map[string]int `json:"by_priority"`
	ByMonth    map[string]int `json:"by_month"`
}

// NewStatistics возвращает статистику с заполненными нулями приоритетами и месяцами.
func NewStatistics() *Statistics {
	stats := &Statistics{
		ByPriority: make(map[string]int, 4),
		ByMonth:    make(map[string]int, 12),
	}
	for _, p := range Priorities() {
		stats.ByPriority[p.String()] = 0
	}
	for m := 1; m <= 12; m++ {
		stats.ByMonth[MonthKey(m)] = 0
	}
	return stats
}

func MonthKey(month int) string {
	return fmt.Sprintf("%02d", month)
}
