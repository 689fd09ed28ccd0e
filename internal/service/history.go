package service

import (
	"context"
	"sort"

	"github.com/dyike/ValueArena/config"
	"github.com/dyike/ValueArena/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type HistoryParams struct {
	ID     string `json:"id"`
	Cursor string `json:"cursor"`
	Limit  int    `json:"limit"`
}

// HistoryItem is one trade record tagged with the agent that made it.
type HistoryItem struct {
	Model string             `json:"model"`
	Trade models.TradeRecord `json:"trade"`
}

type HistoryPage struct {
	Items      []HistoryItem `json:"items"`
	NextCursor string        `json:"next_cursor"`
	HasMore    bool          `json:"has_more"`
}

// TradeHistory lists trade records newest first across every agent, or
// for params.ID only. The cursor is the id of the last record of the
// previous page; a cursor that matches no record is ErrUnknownCursor.
func (s *Service) TradeHistory(ctx context.Context, params HistoryParams) (*HistoryPage, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	roster := s.cfg.Agents
	if params.ID != "" {
		agent, ok := s.cfg.FindAgent(params.ID)
		if !ok {
			return nil, ErrUnknownAgent
		}
		roster = []config.AgentConfig{agent}
	}

	var items []HistoryItem
	for _, agent := range roster {
		l := s.load(ctx, agent)
		for _, t := range l.TradeHistory {
			items = append(items, HistoryItem{Model: agent.ID, Trade: t})
		}
	}

	// 固定排序，便于书签定位
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Trade.Date != items[j].Trade.Date {
			return items[i].Trade.Date > items[j].Trade.Date
		}
		return items[i].Trade.ID < items[j].Trade.ID
	})

	start := 0
	if params.Cursor != "" {
		start = -1
		for i, it := range items {
			if it.Trade.ID == params.Cursor {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, ErrUnknownCursor
		}
	}
	end := start + limit
	if len(items) < end {
		end = len(items)
	}

	page := &HistoryPage{Items: items[start:end]}
	if end < len(items) {
		page.NextCursor = items[end-1].Trade.ID
		page.HasMore = true
	}
	if page.Items == nil {
		page.Items = []HistoryItem{}
	}
	return page, nil
}
