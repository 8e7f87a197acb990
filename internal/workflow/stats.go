package workflow

import "time"

// Stats 聚合工作流列表的统计信息，供首页概览使用。
type Stats struct {
	Total      int              `json:"total"`
	ByStatus   map[Status]int   `json:"by_status"`
	ByCategory map[Category]int `json:"by_category"`
	TotalRuns  int              `json:"total_runs"`
	TotalNodes int              `json:"total_nodes"`
	LastRun    *time.Time       `json:"last_run,omitempty"`
}

// Stats 统计当前列表。所有状态与分类都会出现在结果中，数量可以为零。
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{
		Total:      len(c.items),
		ByStatus:   make(map[Status]int, len(Statuses())),
		ByCategory: make(map[Category]int, len(Categories())),
	}
	for _, s := range Statuses() {
		stats.ByStatus[s] = 0
	}
	for _, cat := range Categories() {
		stats.ByCategory[cat] = 0
	}
	for _, wf := range c.items {
		stats.ByStatus[wf.Status]++
		stats.ByCategory[wf.Category]++
		stats.TotalRuns += wf.RunCount
		stats.TotalNodes += len(wf.Nodes)
		if wf.LastRun != nil && (stats.LastRun == nil || wf.LastRun.After(*stats.LastRun)) {
			last := *wf.LastRun
			stats.LastRun = &last
		}
	}
	return stats
}
