package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shoptracker/internal/core"
	"shoptracker/internal/ledger"
	"shoptracker/internal/report"
)

type monthlyTotalResponse struct {
	Month     int     `json:"month"`
	Year      int     `json:"year"`
	Total     float64 `json:"total"`
	Formatted string  `json:"formatted"`
}

func (s *Server) handleMonthlyTotal(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	key := fmt.Sprintf("monthly-total:%d-%d", year, int(month))

	s.cachedJSON(w, r, key, func() any {
		total := s.ledger.MonthlyTotal(month, year)
		return monthlyTotalResponse{
			Month:     int(month),
			Year:      year,
			Total:     total,
			Formatted: core.FormatCurrency(total),
		}
	})
}

type dailyTotalsResponse struct {
	Month int             `json:"month"`
	Year  int             `json:"year"`
	Days  map[int]float64 `json:"days"`
}

func (s *Server) handleDailyTotals(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	key := fmt.Sprintf("daily-totals:%d-%d", year, int(month))

	s.cachedJSON(w, r, key, func() any {
		return dailyTotalsResponse{
			Month: int(month),
			Year:  year,
			Days:  s.ledger.DailyTotals(month, year),
		}
	})
}

type topExpensesResponse struct {
	Month int                  `json:"month"`
	Year  int                  `json:"year"`
	Items []ledger.ItemExpense `json:"items"`
}

func (s *Server) handleTopExpenses(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)

	n := 0
	if v := strings.TrimSpace(r.URL.Query().Get("n")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			respondError(w, r, fmt.Errorf("%w: invalid n %q", core.ErrValidation, v))
			return
		}
		n = parsed
	}

	key := fmt.Sprintf("top-expenses:%d-%d:%d", year, int(month), n)
	s.cachedJSON(w, r, key, func() any {
		return topExpensesResponse{
			Month: int(month),
			Year:  year,
			Items: s.ledger.TopExpenses(month, year, n),
		}
	})
}

func (s *Server) handleShopSessions(w http.ResponseWriter, r *http.Request) {
	s.cachedJSON(w, r, "shop-sessions", func() any {
		return s.ledger.ShopDateGroups()
	})
}

// handleSummary returns the shareable plain-text monthly summary.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	key := fmt.Sprintf("summary:%d-%d", year, int(month))

	if body, ok := s.reportCache.Get(key); ok {
		writeText(w, body)
		return
	}

	text := report.Render(report.BuildMonthly(s.ledger, month, year))
	body := []byte(text)
	s.reportCache.Set(key, body)
	writeText(w, body)
}

func writeText(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// cachedJSON serves key from the report cache, building and caching the
// marshaled response on a miss.
func (s *Server) cachedJSON(w http.ResponseWriter, r *http.Request, key string, build func() any) {
	if body, ok := s.reportCache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	start := time.Now()
	body, err := json.Marshal(build())
	if err != nil {
		respondError(w, r, fmt.Errorf("marshal report: %w", err))
		return
	}
	body = append(body, '\n')
	s.reportCache.Set(key, body)

	slog.DebugContext(r.Context(), "Report computed",
		"key", key,
		"duration_ms", time.Since(start).Milliseconds())

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
