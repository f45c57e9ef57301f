// Package announce broadcasts a short-form summary of each published
// alert on an SNS topic.
package announce

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
	log "github.com/sirupsen/logrus"

	"github.com/wmo-raf/capwire/shared/cap"
	"github.com/wmo-raf/capwire/shared/models"
)

type SNSAnnouncer struct {
	client   *sns.SNS
	topicArn string
	alertURL string
}

// NewSNS builds an announcer for the given topic. An empty ARN disables
// announcements.
func NewSNS(sess *session.Session, topicArn, alertURL string) *SNSAnnouncer {
	a := &SNSAnnouncer{topicArn: topicArn, alertURL: alertURL}
	if topicArn != "" {
		a.client = sns.New(sess)
	}
	return a
}

func (a *SNSAnnouncer) Enabled() bool {
	return a != nil && a.client != nil && a.topicArn != ""
}

// Announce publishes the short-form message. Alerts that are not publicly
// distributable are skipped.
func (a *SNSAnnouncer) Announce(ctx context.Context, alert *models.Alert) error {
	if !a.Enabled() {
		return nil
	}
	if !alert.PubliclyDistributable() {
		return nil
	}

	msg, err := json.Marshal(announcementFor(alert, a.alertURL))
	if err != nil {
		return err
	}
	msgStr := string(msg)

	_, err = a.client.PublishWithContext(ctx, &sns.PublishInput{
		Message:  &msgStr,
		TopicArn: &a.topicArn,
	})
	if err != nil {
		return fmt.Errorf("failed sending sns for alert %s: %s", alert.Identifier, err)
	}

	log.WithFields(log.Fields{"identifier": alert.Identifier}).Info("announced alert")
	return nil
}

func announcementFor(alert *models.Alert, alertURL string) models.AlertAnnouncement {
	ann := models.AlertAnnouncement{
		Identifier: alert.Identifier,
		IsUpdate:   strings.EqualFold(string(alert.MsgType), string(models.MsgTypeUpdate)),
		RefIDs:     alert.ReferenceIdentifiers(),
		Headline:   alert.Headline(),
	}
	if alertURL != "" {
		ann.URL = fmt.Sprintf("%s/%s", strings.TrimRight(alertURL, "/"), alert.Identifier)
	}
	if info := mostSevereInfo(alert.Infos); info != nil {
		ann.Event = info.Event
		ann.Severity = string(info.Severity)
		ann.Urgency = string(info.Urgency)
		ann.Certainty = string(info.Certainty)
		if info.Onset != nil {
			ann.OnsetTime = cap.FormatSentTime(*info.Onset)
		}
		if info.Expires != nil {
			ann.ExpirationTime = cap.FormatSentTime(*info.Expires)
		}
	}
	return ann
}

// mostSevereInfo picks the info block that should headline the
// announcement. Ties keep the earlier block.
func mostSevereInfo(infos []models.AlertInfo) *models.AlertInfo {
	if len(infos) == 0 {
		return nil
	}
	best := &infos[0]
	for i := range infos {
		if models.SeverityRank(infos[i].Severity) > models.SeverityRank(best.Severity) {
			best = &infos[i]
		}
	}
	return best
}
