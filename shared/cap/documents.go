package cap

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/wmo-raf/capwire/shared/models"
)

// Signer applies an enveloped XML signature. Implementations must be the
// identity when no key material is configured.
type Signer interface {
	Sign(doc []byte) ([]byte, error)
	Enabled() bool
}

// Documents composes serialization, signing and caching into the single
// deliverable-document entry point shared by the webhook dispatcher and the
// public XML endpoint.
type Documents struct {
	signer           Signer
	cache            *DocumentCache
	unsignedFallback bool
	wmoOID           string
	stylesheetURL    string
}

func NewDocuments(signer Signer, cache *DocumentCache, unsignedFallback bool, wmoOID, stylesheetURL string) *Documents {
	return &Documents{
		signer:           signer,
		cache:            cache,
		unsignedFallback: unsignedFallback,
		wmoOID:           wmoOID,
		stylesheetURL:    stylesheetURL,
	}
}

// Deliverable returns the signed (when configured) CAP XML for the alert.
// Serialization failure is fatal. Signing failure is fatal unless the
// unsigned fallback is explicitly configured, in which case the unsigned
// document ships with an error-level log for operators.
func (d *Documents) Deliverable(ctx context.Context, alert *models.Alert) ([]byte, error) {
	cacheable := d.cache != nil && alert.PubliclyDistributable()

	if cacheable {
		if doc, ok := d.cache.Get(ctx, alert.Identifier); ok {
			return doc, nil
		}
	}

	doc, err := Serialize(alert, SerializeOptions{WMOOID: d.wmoOID})
	if err != nil {
		return nil, err
	}

	signed, err := d.signer.Sign(doc)
	if err != nil {
		if !d.unsignedFallback {
			return nil, err
		}
		log.WithFields(log.Fields{"alertId": alert.Identifier, "error": err}).
			Error("signing failed, delivering unsigned per configuration")
		signed = doc
	}

	signed = InjectStylesheet(signed, d.stylesheetURL)

	if cacheable {
		d.cache.Put(ctx, alert.Identifier, signed)
	}

	return signed, nil
}
