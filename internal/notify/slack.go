// Package notify posts run summaries to the estimators' Slack channel so
// manual-review warnings are seen without anyone watching the UI.
package notify

import (
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"

	"github.com/scopeline/scopeline/internal/database"
	"github.com/scopeline/scopeline/internal/estimate"
	"github.com/scopeline/scopeline/internal/utils"
)

// Notifier posts estimate-run summaries to Slack
type Notifier struct {
	client  *slack.Client
	channel string
}

// NewFromSettings builds a notifier from stored settings, or nil when the
// integration is disabled or unconfigured
func NewFromSettings(settings *database.SlackSettings) *Notifier {
	if settings == nil || !settings.IsActive() {
		return nil
	}
	return &Notifier{
		client:  slack.New(settings.BotToken),
		channel: settings.WarningsChannel,
	}
}

// PostRunSummary posts a formatted summary of a completed run. Failures are
// logged, not returned: notification is best effort and never blocks a run.
func (n *Notifier) PostRunSummary(run *database.EstimateRun, result *estimate.Result) {
	if n == nil {
		return
	}

	message := FormatRunSummary(run, result)
	_, _, err := n.client.PostMessage(n.channel, slack.MsgOptionText(message, false))
	if err != nil {
		log.Printf("Failed to post run summary to Slack: %v", err)
	}
}

// FormatRunSummary renders the Slack message body for a run
func FormatRunSummary(run *database.EstimateRun, result *estimate.Result) string {
	var sb strings.Builder

	label := run.Label
	if label == "" {
		label = run.UUID
	}
	sb.WriteString(fmt.Sprintf("*Estimate run %s*\n", label))
	sb.WriteString(fmt.Sprintf("Severity %d, %s, loss type %q\n", run.Severity, run.Context, run.LossType))
	sb.WriteString(fmt.Sprintf("%d rooms scoped", run.OutputRoomCount))
	if run.MergeCount > 0 {
		sb.WriteString(fmt.Sprintf(", %d ghost rooms merged", run.MergeCount))
	}
	sb.WriteString("\n")

	if len(result.Warnings) == 0 {
		sb.WriteString("No warnings.")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("*%d warnings:*\n", len(result.Warnings)))
	for _, w := range result.Warnings {
		sb.WriteString("• " + utils.TruncateText(w, 300) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
