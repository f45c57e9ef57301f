// Package multimedia derives the visual artifacts of a published alert:
// a severity-colored area map, a PDF detail document and a thumbnail.
// Every step is best effort; one failing artifact never blocks the others
// and never blocks the alert itself.
package multimedia

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/wmo-raf/capwire/shared/geometries"
	"github.com/wmo-raf/capwire/shared/metrics"
	"github.com/wmo-raf/capwire/shared/models"
)

// AlertStore is the slice of persistence the pipeline needs to attach
// artifact keys back onto the alert.
type AlertStore interface {
	GetAlert(ctx context.Context, identifier string) (*models.Alert, error)
	SaveAlert(ctx context.Context, alert *models.Alert) error
}

type Pipeline struct {
	store      AlertStore
	normalizer *geometries.Normalizer
	renderer   *Renderer
	uploader   Uploader
	branding   Branding
}

func NewPipeline(store AlertStore, normalizer *geometries.Normalizer, renderer *Renderer, uploader Uploader, branding Branding) *Pipeline {
	return &Pipeline{
		store:      store,
		normalizer: normalizer,
		renderer:   renderer,
		uploader:   uploader,
		branding:   branding,
	}
}

// Generate produces map, PDF and thumbnail for the alert and attaches
// whatever succeeded. Only a missing alert or unusable storage is an
// error; artifact failures are logged and skipped.
func (p *Pipeline) Generate(ctx context.Context, identifier string) error {
	alert, err := p.store.GetAlert(ctx, identifier)
	if err != nil {
		return fmt.Errorf("loading alert %s: %w", identifier, err)
	}
	if alert == nil {
		return fmt.Errorf("alert %s not found", identifier)
	}
	if p.uploader == nil {
		log.WithFields(log.Fields{"alertId": identifier}).Warn("no artifact storage configured, skipping multimedia")
		return nil
	}

	fields := log.Fields{"alertId": alert.Identifier}
	log.WithFields(fields).Info("generating multimedia artifacts")

	mapPNG := p.generateMap(ctx, alert, fields)
	pdfBytes := p.generatePDF(ctx, alert, mapPNG, fields)
	p.generateThumbnail(ctx, alert, pdfBytes, fields)

	if err := p.store.SaveAlert(ctx, alert); err != nil {
		return fmt.Errorf("saving artifact keys: %w", err)
	}
	return nil
}

func (p *Pipeline) generateMap(ctx context.Context, alert *models.Alert, fields log.Fields) []byte {
	if p.renderer == nil || !p.renderer.Configured() {
		log.WithFields(fields).Warn("map renderer not configured, skipping area map")
		return nil
	}

	features := p.normalizer.Features(ctx, alert)
	if len(features) == 0 {
		log.WithFields(fields).Warn("alert has no renderable features, skipping area map")
		return nil
	}

	png, err := p.renderer.RenderMap(ctx, features)
	if err != nil {
		metrics.ArtifactsGeneratedTotal.WithLabelValues("map", "failure").Inc()
		log.WithFields(fields).WithFields(log.Fields{"error": err}).Error("area map generation failed")
		return nil
	}

	key, err := p.uploader.Upload(ctx, artifactKey(alert, "map.png"), "image/png", png)
	if err != nil {
		metrics.ArtifactsGeneratedTotal.WithLabelValues("map", "failure").Inc()
		log.WithFields(fields).WithFields(log.Fields{"error": err}).Error("area map upload failed")
		return png
	}

	alert.AreaMapKey = key
	metrics.ArtifactsGeneratedTotal.WithLabelValues("map", "success").Inc()
	return png
}

func (p *Pipeline) generatePDF(ctx context.Context, alert *models.Alert, mapPNG []byte, fields log.Fields) []byte {
	pdfBytes, err := BuildPDF(alert, p.branding, mapPNG)
	if err != nil {
		metrics.ArtifactsGeneratedTotal.WithLabelValues("pdf", "failure").Inc()
		log.WithFields(fields).WithFields(log.Fields{"error": err}).Error("pdf generation failed")
		return nil
	}

	key, err := p.uploader.Upload(ctx, artifactKey(alert, "detail.pdf"), "application/pdf", pdfBytes)
	if err != nil {
		metrics.ArtifactsGeneratedTotal.WithLabelValues("pdf", "failure").Inc()
		log.WithFields(fields).WithFields(log.Fields{"error": err}).Error("pdf upload failed")
		return pdfBytes
	}

	alert.PDFKey = key
	metrics.ArtifactsGeneratedTotal.WithLabelValues("pdf", "success").Inc()
	return pdfBytes
}

func (p *Pipeline) generateThumbnail(ctx context.Context, alert *models.Alert, pdfBytes []byte, fields log.Fields) {
	if len(pdfBytes) == 0 {
		log.WithFields(fields).Warn("no pdf available, skipping thumbnail")
		return
	}

	jpg, err := FirstPageImage(pdfBytes)
	if err != nil {
		metrics.ArtifactsGeneratedTotal.WithLabelValues("thumbnail", "failure").Inc()
		log.WithFields(fields).WithFields(log.Fields{"error": err}).Error("thumbnail generation failed")
		return
	}

	key, err := p.uploader.Upload(ctx, artifactKey(alert, "preview.jpg"), "image/jpeg", jpg)
	if err != nil {
		metrics.ArtifactsGeneratedTotal.WithLabelValues("thumbnail", "failure").Inc()
		log.WithFields(fields).WithFields(log.Fields{"error": err}).Error("thumbnail upload failed")
		return
	}

	alert.ThumbnailKey = key
	metrics.ArtifactsGeneratedTotal.WithLabelValues("thumbnail", "success").Inc()
}

func artifactKey(alert *models.Alert, name string) string {
	return fmt.Sprintf("cap/%s/%s", alert.Identifier, name)
}
