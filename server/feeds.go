package main

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/wmo-raf/capwire/shared/models"
)

const feedLimit = 50

// handleActiveGeoJSON serves every active public alert as one flattened
// feature collection for map clients.
func (h *apiHandler) handleActiveGeoJSON(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.store.ActiveAlerts(r.Context())
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Error("failed to list active alerts")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var features []models.Feature
	for _, alert := range alerts {
		features = append(features, h.normalizer.Features(r.Context(), alert)...)
	}

	writeJSON(w, http.StatusOK, models.NewFeatureCollection(features))
}

// handleAlertXML serves the deliverable CAP document, the same bytes the
// webhook dispatcher sends.
func (h *apiHandler) handleAlertXML(w http.ResponseWriter, r *http.Request) {
	alert, err := h.store.GetAlert(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Error("failed to load alert")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if alert == nil || !alert.Published {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}

	doc, err := h.documents.Deliverable(r.Context(), alert)
	if err != nil {
		log.WithFields(log.Fields{"alertId": alert.Identifier, "err": err}).Error("failed to build CAP document")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	PubDate       string    `xml:"pubDate"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description,omitempty"`
	Category    string `xml:"category,omitempty"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
}

// handleRSS serves the most recently published public alerts as an RSS
// 2.0 feed, each item linking at the CAP XML document.
func (h *apiHandler) handleRSS(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.store.PublishedAlerts(r.Context(), feedLimit)
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Error("failed to list published alerts")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	base := strings.TrimRight(h.cfg.Branding.AlertsURL, "/")
	now := time.Now().UTC().Format(time.RFC1123Z)

	feed := rssFeed{
		Version: "2.0",
		Channel: rssChannel{
			Title:         fmt.Sprintf("%s - Alerts", h.cfg.Branding.OrgName),
			Link:          base,
			Description:   fmt.Sprintf("Hazard alerts issued by %s", h.cfg.Branding.OrgName),
			PubDate:       now,
			LastBuildDate: now,
		},
	}

	for _, alert := range alerts {
		item := rssItem{
			Title:   alert.Headline(),
			Link:    fmt.Sprintf("%s/api/cap/%s.xml", base, alert.Identifier),
			GUID:    alert.PublicIdentifier(h.cfg.CAP.WMOOID),
			PubDate: alert.Sent.Format(time.RFC1123Z),
		}
		if len(alert.Infos) > 0 {
			item.Description = alert.Infos[0].Description
			item.Category = alert.Infos[0].Category
		}
		feed.Channel.Items = append(feed.Channel.Items, item)
	}

	body, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Error("failed to marshal rss feed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	w.Write(body)
}
