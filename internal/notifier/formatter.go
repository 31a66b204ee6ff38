package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"StockPredictor/internal/model"
)

func price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatRunReport formats a finished prediction run into a Telegram message.
func FormatRunReport(p *model.Prediction, plotPath string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 <b>%s prediction</b> | %s\n\n", html.EscapeString(p.Ticker), time.Now().Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Samples: %d\n", len(p.Actual)))
	if n := len(p.Actual); n > 0 && len(p.Predicted) == n {
		last := "last"
		if len(p.Dates) == n {
			last = p.Dates[n-1].Format("2006-01-02")
		}
		b.WriteString(fmt.Sprintf("Actual (%s): %s\n", last, price(p.Actual[n-1])))
		b.WriteString(fmt.Sprintf("Predicted (%s): %s\n", last, price(p.Predicted[n-1])))
	}
	b.WriteString(fmt.Sprintf("🔮 <b>Next close:</b> %s\n\n", price(p.NextClose)))

	b.WriteString("<b>Fit:</b>\n")
	b.WriteString(fmt.Sprintf("  RMSE: %s | MAE: %s | MAPE: %s%%\n",
		price(p.Metrics.RMSE), price(p.Metrics.MAE), price(p.Metrics.MAPE)))
	if len(p.Losses) > 0 {
		b.WriteString(fmt.Sprintf("  Final loss: %.6f (%d epochs)\n", p.FinalLoss(), len(p.Losses)))
	}

	if plotPath != "" {
		b.WriteString(fmt.Sprintf("\nChart: <code>%s</code>", html.EscapeString(plotPath)))
	}
	return b.String()
}

// FormatRunList formats recorded run summaries, newest first.
func FormatRunList(runs []model.RunSummary) string {
	if len(runs) == 0 {
		return "No runs recorded yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent runs</b>\n\n")
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("%s %s next=%s rmse=%s <code>%s</code>\n",
			r.CreatedAt.Format("2006-01-02 15:04"),
			html.EscapeString(r.Ticker),
			price(r.NextClose),
			price(r.Metrics.RMSE),
			r.ID))
	}
	return b.String()
}

// FormatFailure reports a run that did not complete.
func FormatFailure(ticker string, err error) string {
	return fmt.Sprintf("⚠️ <b>%s prediction failed</b>\n%s", html.EscapeString(ticker), html.EscapeString(err.Error()))
}
