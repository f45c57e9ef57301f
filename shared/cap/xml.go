// Package cap renders alert aggregates as CAP v1.2 XML documents.
package cap

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wmo-raf/capwire/shared/models"
)

// XMLNamespace is the CAP v1.2 namespace URI.
const XMLNamespace = "urn:oasis:names:tc:emergency:cap:1.2"

// TimeFormat is the CAP dateTime representation (RFC3339 with a numeric
// zone; "Z" is not permitted by the CAP schema).
const TimeFormat = "2006-01-02T15:04:05-07:00"

// SerializationError marks a malformed aggregate. It is fatal for the
// alert's distribution and must reach the caller.
type SerializationError struct {
	Identifier string
	Reason     string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("cap serialization failed for alert %s: %s", e.Identifier, e.Reason)
}

// Wire structs. Element order follows the CAP v1.2 schema; optional fields
// are omitted entirely, never emitted empty.

type capValueName struct {
	ValueName string `xml:"valueName"`
	Value     string `xml:"value"`
}

type capResource struct {
	ResourceDesc string `xml:"resourceDesc"`
	MimeType     string `xml:"mimeType,omitempty"`
	URI          string `xml:"uri,omitempty"`
	DerefURI     string `xml:"derefUri,omitempty"`
	Digest       string `xml:"digest,omitempty"`
}

type capArea struct {
	AreaDesc string         `xml:"areaDesc"`
	Polygon  []string       `xml:"polygon,omitempty"`
	Circle   []string       `xml:"circle,omitempty"`
	Geocode  []capValueName `xml:"geocode,omitempty"`
}

type capInfo struct {
	Language     string         `xml:"language,omitempty"`
	Category     string         `xml:"category"`
	Event        string         `xml:"event"`
	ResponseType []string       `xml:"responseType,omitempty"`
	Urgency      string         `xml:"urgency"`
	Severity     string         `xml:"severity"`
	Certainty    string         `xml:"certainty"`
	Audience     string         `xml:"audience,omitempty"`
	EventCode    []capValueName `xml:"eventCode,omitempty"`
	Effective    string         `xml:"effective,omitempty"`
	Onset        string         `xml:"onset,omitempty"`
	Expires      string         `xml:"expires,omitempty"`
	SenderName   string         `xml:"senderName,omitempty"`
	Headline     string         `xml:"headline,omitempty"`
	Description  string         `xml:"description,omitempty"`
	Instruction  string         `xml:"instruction,omitempty"`
	Web          string         `xml:"web,omitempty"`
	Contact      string         `xml:"contact,omitempty"`
	Parameter    []capValueName `xml:"parameter,omitempty"`
	Resource     []capResource  `xml:"resource,omitempty"`
	Area         []capArea      `xml:"area"`
}

type capAlert struct {
	XMLName     xml.Name  `xml:"urn:oasis:names:tc:emergency:cap:1.2 alert"`
	Identifier  string    `xml:"identifier"`
	Sender      string    `xml:"sender"`
	Sent        string    `xml:"sent"`
	Status      string    `xml:"status"`
	MsgType     string    `xml:"msgType"`
	Source      string    `xml:"source,omitempty"`
	Scope       string    `xml:"scope"`
	Restriction string    `xml:"restriction,omitempty"`
	Code        string    `xml:"code,omitempty"`
	Note        string    `xml:"note,omitempty"`
	References  string    `xml:"references,omitempty"`
	Info        []capInfo `xml:"info"`
}

// SerializeOptions adjust the wire representation without touching the
// stored aggregate.
type SerializeOptions struct {
	// WMOOID, when set, formats the identifier as urn:oid:<oid>.<sent>.
	WMOOID string
	// WebURL overrides the per-info web element, pointing consumers at the
	// public detail page.
	WebURL string
}

// Serialize renders the aggregate into a CAP v1.2 XML document. The mapping
// is deterministic: stored list order is preserved for infos, areas,
// eventCode, parameter and resource.
func Serialize(alert *models.Alert, opts SerializeOptions) ([]byte, error) {
	if err := validate(alert); err != nil {
		return nil, err
	}

	doc := capAlert{
		Identifier:  alert.PublicIdentifier(opts.WMOOID),
		Sender:      alert.Sender,
		Sent:        alert.Sent.Format(TimeFormat),
		Status:      alert.Status,
		MsgType:     alert.MsgType,
		Source:      alert.Source,
		Scope:       alert.Scope,
		Restriction: alert.Restriction,
		Code:        alert.Code,
		Note:        alert.Note,
		References:  referencesString(alert.References),
	}

	for i := range alert.Infos {
		info, err := serializeInfo(alert, &alert.Infos[i], opts)
		if err != nil {
			return nil, err
		}
		doc.Info = append(doc.Info, info)
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, &SerializationError{Identifier: alert.Identifier, Reason: err.Error()}
	}

	return append([]byte(xml.Header), body...), nil
}

func serializeInfo(alert *models.Alert, info *models.AlertInfo, opts SerializeOptions) (capInfo, error) {
	out := capInfo{
		Language:     info.Language,
		Category:     info.Category,
		Event:        info.Event,
		ResponseType: info.ResponseType,
		Urgency:      info.Urgency,
		Severity:     info.Severity,
		Certainty:    info.Certainty,
		Audience:     info.Audience,
		SenderName:   info.SenderName,
		Headline:     info.Headline,
		Description:  info.Description,
		Instruction:  info.Instruction,
		Web:          info.Web,
		Contact:      info.Contact,
	}

	if opts.WebURL != "" {
		out.Web = opts.WebURL
	}

	for _, ec := range info.EventCode {
		out.EventCode = append(out.EventCode, capValueName(ec))
	}
	for _, p := range info.Parameter {
		out.Parameter = append(out.Parameter, capValueName(p))
	}
	for _, r := range info.Resource {
		out.Resource = append(out.Resource, capResource(r))
	}

	if info.Effective != nil {
		out.Effective = info.Effective.Format(TimeFormat)
	}
	if info.Onset != nil {
		out.Onset = info.Onset.Format(TimeFormat)
	}
	if info.Expires != nil {
		out.Expires = info.Expires.Format(TimeFormat)
	}

	for _, area := range info.Areas {
		serialized, err := serializeArea(alert.Identifier, area)
		if err != nil {
			return capInfo{}, err
		}
		out.Area = append(out.Area, serialized)
	}

	return out, nil
}

func serializeArea(identifier string, area models.Area) (capArea, error) {
	out := capArea{AreaDesc: area.Desc()}

	switch a := area.(type) {
	case models.GeocodeArea:
		out.Geocode = []capValueName{{ValueName: a.ValueName, Value: a.Value}}
	case models.PolygonArea:
		polygons, err := a.Geometry.Polygons()
		if err != nil {
			return capArea{}, &SerializationError{Identifier: identifier, Reason: err.Error()}
		}
		for _, polygon := range polygons {
			if len(polygon) == 0 {
				return capArea{}, &SerializationError{Identifier: identifier, Reason: "polygon has no rings"}
			}
			// CAP carries the outer ring only
			out.Polygon = append(out.Polygon, ringString(polygon[0]))
		}
	case models.CircleArea:
		out.Circle = []string{fmt.Sprintf("%s,%s %s",
			formatCoord(a.Lat), formatCoord(a.Lon), formatCoord(a.RadiusKm))}
	default:
		return capArea{}, &SerializationError{Identifier: identifier, Reason: "unknown area variant"}
	}

	return out, nil
}

// ringString renders a ring as the CAP "lat,lon lat,lon ..." pair list.
// GeoJSON positions are lon,lat, so the order flips.
func ringString(ring models.Ring) string {
	pairs := make([]string, 0, len(ring))
	for _, position := range ring {
		if len(position) < 2 {
			continue
		}
		pairs = append(pairs, fmt.Sprintf("%s,%s", formatCoord(position[1]), formatCoord(position[0])))
	}
	return strings.Join(pairs, " ")
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func referencesString(refs []models.Reference) string {
	if len(refs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		parts = append(parts, ref.CAPString())
	}
	return strings.Join(parts, " ")
}

func validate(alert *models.Alert) error {
	fail := func(reason string) error {
		return &SerializationError{Identifier: alert.Identifier, Reason: reason}
	}

	if alert.Identifier == "" {
		return fail("missing identifier")
	}
	if alert.Sender == "" {
		return fail("missing sender")
	}
	if alert.Sent.IsZero() {
		return fail("missing sent time")
	}
	if !models.ValidStatus(alert.Status) {
		return fail(fmt.Sprintf("invalid status %q", alert.Status))
	}
	if !models.ValidMsgType(alert.MsgType) {
		return fail(fmt.Sprintf("invalid msgType %q", alert.MsgType))
	}
	if alert.Scope == "" {
		return fail("missing scope")
	}
	if (alert.MsgType == models.MsgTypeUpdate || alert.MsgType == models.MsgTypeCancel) && len(alert.References) == 0 {
		return fail(fmt.Sprintf("msgType %s requires references", alert.MsgType))
	}
	if len(alert.Infos) == 0 {
		return fail("alert has no info blocks")
	}
	for i, info := range alert.Infos {
		if info.Category == "" || info.Event == "" {
			return fail(fmt.Sprintf("info[%d] missing category/event", i))
		}
		if info.Urgency == "" || info.Severity == "" || info.Certainty == "" {
			return fail(fmt.Sprintf("info[%d] missing urgency/severity/certainty", i))
		}
		if len(info.Areas) == 0 {
			return fail(fmt.Sprintf("info[%d] has no areas", i))
		}
	}
	return nil
}

// InjectStylesheet inserts an xml-stylesheet processing instruction after
// the XML declaration so browsers render the feed with the configured XSL.
func InjectStylesheet(doc []byte, styleURL string) []byte {
	if styleURL == "" {
		return doc
	}
	pi := fmt.Sprintf("<?xml-stylesheet type=%q href=%q?>\n", "text/xsl", styleURL)
	s := string(doc)
	if idx := strings.Index(s, "?>"); idx >= 0 {
		insert := idx + len("?>")
		// keep the declaration's trailing newline with the declaration
		for insert < len(s) && (s[insert] == '\n' || s[insert] == '\r') {
			insert++
		}
		return []byte(s[:insert] + pi + s[insert:])
	}
	return append([]byte(pi), doc...)
}

// FormatSentTime renders t in the CAP dateTime form, for callers that
// quote alert timestamps outside the XML document.
func FormatSentTime(t time.Time) string {
	return t.Format(TimeFormat)
}
