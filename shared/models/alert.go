package models

import (
	"fmt"
	"strings"
	"time"
)

// CAP v1.2 controlled vocabularies.
const (
	StatusActual   = "Actual"
	StatusExercise = "Exercise"
	StatusSystem   = "System"
	StatusTest     = "Test"

	MsgTypeAlert  = "Alert"
	MsgTypeUpdate = "Update"
	MsgTypeCancel = "Cancel"
	MsgTypeAck    = "Ack"
	MsgTypeError  = "Error"

	ScopePublic     = "Public"
	ScopeRestricted = "Restricted"
	ScopePrivate    = "Private"

	UrgencyImmediate = "Immediate"
	UrgencyExpected  = "Expected"
	UrgencyFuture    = "Future"
	UrgencyPast      = "Past"
	UrgencyUnknown   = "Unknown"

	SeverityExtreme  = "Extreme"
	SeveritySevere   = "Severe"
	SeverityModerate = "Moderate"
	SeverityMinor    = "Minor"
	SeverityUnknown  = "Unknown"

	CertaintyObserved = "Observed"
	CertaintyLikely   = "Likely"
	CertaintyPossible = "Possible"
	CertaintyUnlikely = "Unlikely"
	CertaintyUnknown  = "Unknown"
)

// Derived display states for an info block, computed from its dates.
const (
	InfoExpired  = "Expired"
	InfoOngoing  = "Ongoing"
	InfoExpected = "Expected"
)

// NamedValue is the CAP valueName/value pair used by eventCode,
// parameter and geocode elements.
type NamedValue struct {
	ValueName string `json:"valueName"`
	Value     string `json:"value"`
}

// Resource describes an external file attached to an info block.
type Resource struct {
	ResourceDesc string `json:"resourceDesc"`
	MimeType     string `json:"mimeType,omitempty"`
	URI          string `json:"uri,omitempty"`
	DerefURI     string `json:"derefUri,omitempty"`
	Digest       string `json:"digest,omitempty"`
}

// Reference points at an earlier alert superseded or cancelled by this one.
type Reference struct {
	Sender     string    `json:"sender"`
	Identifier string    `json:"identifier"`
	Sent       time.Time `json:"sent"`
}

// CAPString renders the reference in the sender,identifier,sent wire form.
func (r Reference) CAPString() string {
	return fmt.Sprintf("%s,%s,%s", r.Sender, r.Identifier, r.Sent.Format(time.RFC3339))
}

// AlertInfo is one hazard description within an alert. An alert may carry
// several, e.g. per language or per area.
type AlertInfo struct {
	Language     string       `json:"language,omitempty"`
	Category     string       `json:"category"`
	Event        string       `json:"event"`
	ResponseType []string     `json:"responseType,omitempty"`
	Urgency      string       `json:"urgency"`
	Severity     string       `json:"severity"`
	Certainty    string       `json:"certainty"`
	Audience     string       `json:"audience,omitempty"`
	EventCode    []NamedValue `json:"eventCode,omitempty"`
	Effective    *time.Time   `json:"effective,omitempty"`
	Onset        *time.Time   `json:"onset,omitempty"`
	Expires      *time.Time   `json:"expires,omitempty"`
	SenderName   string       `json:"senderName,omitempty"`
	Headline     string       `json:"headline,omitempty"`
	Description  string       `json:"description,omitempty"`
	Instruction  string       `json:"instruction,omitempty"`
	Web          string       `json:"web,omitempty"`
	Contact      string       `json:"contact,omitempty"`
	Parameter    []NamedValue `json:"parameter,omitempty"`
	Resource     []Resource   `json:"resource,omitempty"`
	Areas        AreaList     `json:"area"`
}

// EffectiveAt resolves the effective time, falling back to the alert's
// sent time when unset.
func (i *AlertInfo) EffectiveAt(sent time.Time) time.Time {
	if i.Effective != nil {
		return *i.Effective
	}
	return sent
}

// DerivedStatus classifies the info block as Expired, Ongoing or Expected
// relative to now. Expiry is judged at date granularity in UTC, so an info
// keeps showing Ongoing for the rest of its expiry day. Not stored.
func (i *AlertInfo) DerivedStatus(sent time.Time, now time.Time) string {
	if i.Expires != nil && beforeUTCDay(*i.Expires, now) {
		return InfoExpired
	}
	if !now.Before(i.EffectiveAt(sent)) {
		return InfoOngoing
	}
	return InfoExpected
}

// beforeUTCDay reports whether t falls on an earlier UTC calendar day
// than now.
func beforeUTCDay(t, now time.Time) bool {
	ty, tm, td := t.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	if ty != ny {
		return ty < ny
	}
	if tm != nm {
		return tm < nm
	}
	return td < nd
}

// Alert is the top-level hazard notice aggregate.
type Alert struct {
	Identifier  string      `json:"identifier"`
	Sender      string      `json:"sender"`
	Sent        time.Time   `json:"sent"`
	Status      string      `json:"status"`
	MsgType     string      `json:"msgType"`
	Scope       string      `json:"scope"`
	Source      string      `json:"source,omitempty"`
	Restriction string      `json:"restriction,omitempty"`
	Code        string      `json:"code,omitempty"`
	Note        string      `json:"note,omitempty"`
	References  []Reference `json:"references,omitempty"`
	Infos       []AlertInfo `json:"info"`

	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`

	// Object storage keys of derived artifacts, set by the multimedia
	// pipeline after publication.
	AreaMapKey   string `json:"areaMapKey,omitempty"`
	PDFKey       string `json:"pdfKey,omitempty"`
	ThumbnailKey string `json:"thumbnailKey,omitempty"`
}

// Immutable reports whether the alert may no longer be edited, unpublished
// or deleted. Only published Actual alerts freeze; Exercise/System/Test
// alerts stay editable since they are never distributed live.
func (a *Alert) Immutable() bool {
	return a.Published && a.Status == StatusActual
}

// PubliclyDistributable reports whether the alert qualifies for webhook
// delivery and the public feeds.
func (a *Alert) PubliclyDistributable() bool {
	return a.Published && a.Status == StatusActual && a.Scope == ScopePublic
}

// MaxExpires returns the latest expiry across all info blocks, or zero when
// none carry one.
func (a *Alert) MaxExpires() time.Time {
	var max time.Time
	for _, info := range a.Infos {
		if info.Expires != nil && info.Expires.After(max) {
			max = *info.Expires
		}
	}
	return max
}

// ReferenceIdentifiers lists the identifiers of all referenced alerts.
func (a *Alert) ReferenceIdentifiers() []string {
	ids := make([]string, 0, len(a.References))
	for _, ref := range a.References {
		ids = append(ids, ref.Identifier)
	}
	return ids
}

// PublicIdentifier formats the identifier for the wire. When a WMO OID is
// configured the identifier becomes urn:oid:<oid>.<y.m.d.h.m.s> per the WMO
// register of alerting authorities convention.
func (a *Alert) PublicIdentifier(wmoOID string) string {
	if wmoOID == "" || a.Sent.IsZero() {
		return a.Identifier
	}
	s := a.Sent.UTC()
	return fmt.Sprintf("urn:oid:%s.%d.%d.%d.%d.%d.%d",
		wmoOID, s.Year(), int(s.Month()), s.Day(), s.Hour(), s.Minute(), s.Second())
}

// Headline returns the first non-empty headline across infos, falling back
// to the event name.
func (a *Alert) Headline() string {
	for _, info := range a.Infos {
		if info.Headline != "" {
			return info.Headline
		}
	}
	for _, info := range a.Infos {
		if info.Event != "" {
			return info.Event
		}
	}
	return a.Identifier
}

// ValidMsgType reports whether s is one of the CAP message types.
func ValidMsgType(s string) bool {
	switch s {
	case MsgTypeAlert, MsgTypeUpdate, MsgTypeCancel, MsgTypeAck, MsgTypeError:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the CAP status codes.
func ValidStatus(s string) bool {
	switch s {
	case StatusActual, StatusExercise, StatusSystem, StatusTest:
		return true
	}
	return false
}

func (a *Alert) String() string {
	return strings.TrimSpace(fmt.Sprintf("%s - %s - %s", a.Status, a.Sent.Format("2006-01-02 15:04"), a.Headline()))
}
