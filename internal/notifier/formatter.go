package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"TimingTerminal/internal/model"
)

func zoneIcon(z model.Zone) string {
	switch z {
	case model.ZoneRetention:
		return "🟢"
	case model.ZoneDistribution:
		return "🔴"
	default:
		return "⚪"
	}
}

// FormatZoneChange formats the alert sent when the latest score leaves its
// previous zone.
func FormatZoneChange(prev, latest model.ScorePoint, q model.DataQuality, strategy string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>Zone change</b> | %s\n\n", zoneIcon(latest.Zone), latest.Timestamp.UTC().Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("%s → <b>%s</b>\n", prev.Zone, latest.Zone))
	b.WriteString(fmt.Sprintf("Score: %.1f (was %.1f)\n", latest.Score, prev.Score))
	b.WriteString(fmt.Sprintf("BTC: %.0f\n", latest.ReferencePrice))
	b.WriteString(fmt.Sprintf("Strategy: %s | Quality: %s\n", strategy, q))
	switch latest.Zone {
	case model.ZoneRetention:
		b.WriteString("\nLong-term holders are retaining supply. Accumulation territory.\n")
	case model.ZoneDistribution:
		b.WriteString("\nLong-term holders are distributing. Elevated top risk.\n")
	}
	if q != model.QualityComplete {
		b.WriteString("\n⚠️ Data quality is not complete, treat with caution.\n")
	}
	return b.String()
}

// FormatStatus formats the reply to the /phase command.
func FormatStatus(latest *model.ScorePoint, q model.DataQuality, strategy string, generatedAt time.Time) string {
	if latest == nil {
		return "No score available yet."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>TimingTerminal</b> | %s\n\n", zoneIcon(latest.Zone), latest.Timestamp.UTC().Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Score: %.1f (%s)\n", latest.Score, latest.Zone))
	b.WriteString(fmt.Sprintf("BTC: %.0f\n", latest.ReferencePrice))
	b.WriteString(fmt.Sprintf("Strategy: %s | Quality: %s\n", strategy, q))
	b.WriteString(fmt.Sprintf("Updated: %s UTC\n", generatedAt.UTC().Format("2006-01-02 15:04")))
	return b.String()
}

// FormatRunFailure formats a failed-run notice.
func FormatRunFailure(err error) string {
	return fmt.Sprintf("❌ <b>Pipeline run failed</b>\n\n%s", html.EscapeString(err.Error()))
}

// HelpText lists the supported chat commands.
const HelpText = "Commands:\n• /phase - latest score and zone\n• /run - run the pipeline now"
