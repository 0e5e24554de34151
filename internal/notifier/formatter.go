package notifier

import (
	"fmt"
	"html"
	"strings"

	"StockPulse/internal/model"
)

// FormatCycleReport formats an ingestion cycle summary into a Telegram message.
func FormatCycleReport(r *model.CycleReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📥 <b>StockPulse ingestion</b> | %s\n\n", r.FinishedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Symbols: %d | Bars inserted: %d\n", len(r.Symbols), r.Inserted()))
	b.WriteString(fmt.Sprintf("Ingested: %d | Up to date: %d | Empty: %d\n",
		r.Count(model.OutcomeIngested), r.Count(model.OutcomeUpToDate), r.Count(model.OutcomeEmpty)))

	var failed []model.SymbolOutcome
	for _, s := range r.Symbols {
		switch s.Outcome {
		case model.OutcomeFetchError, model.OutcomeSchemaError, model.OutcomeFailed:
			failed = append(failed, s)
		}
	}
	if len(failed) > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ <b>Skipped (%d):</b>\n", len(failed)))
		for _, s := range failed {
			b.WriteString(fmt.Sprintf("  %s %s: %s\n", html.EscapeString(s.Ticker), s.Outcome, html.EscapeString(s.Error)))
		}
	}

	b.WriteString(fmt.Sprintf("\nCycle: <code>%s</code>", r.ID))
	return b.String()
}

// FormatAnalysis formats one symbol's analysis.
func FormatAnalysis(a *model.Analysis) string {
	var b strings.Builder

	icon := "📉"
	if a.Trend == model.TrendUp {
		icon = "📈"
	}
	b.WriteString(fmt.Sprintf("%s <b>%s</b>\n\n", icon, html.EscapeString(a.Symbol)))
	b.WriteString(fmt.Sprintf("Price: %.2f\n", a.Price))
	if a.SMA20 != nil {
		pos := "below"
		if a.AboveSMA != nil && *a.AboveSMA {
			pos = "above"
		}
		b.WriteString(fmt.Sprintf("SMA20: %.2f (%s)\n", *a.SMA20, pos))
	} else {
		b.WriteString("SMA20: n/a\n")
	}
	b.WriteString(fmt.Sprintf("Trend: %s\n", a.Trend))
	if a.Volatility != nil {
		b.WriteString(fmt.Sprintf("Volatility: %.2f%%\n", *a.Volatility))
	}
	b.WriteString(fmt.Sprintf("Volume: %s", a.VolumeAnalysis))
	if a.AvgVolume != nil {
		b.WriteString(fmt.Sprintf(" (avg %.0f)", *a.AvgVolume))
	}
	b.WriteString("\n")
	return b.String()
}

// FormatSymbols lists tracked symbols with their latest price.
func FormatSymbols(symbols []model.Symbol) string {
	if len(symbols) == 0 {
		return "No stocks found."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>Tracked stocks (%d)</b>\n\n", len(symbols)))
	for _, s := range symbols {
		price := "n/a"
		if s.LatestPrice != nil {
			price = fmt.Sprintf("%.2f", *s.LatestPrice)
		}
		b.WriteString(fmt.Sprintf("%s %s: %s\n", html.EscapeString(s.Ticker), html.EscapeString(s.CompanyName), price))
	}
	return b.String()
}
