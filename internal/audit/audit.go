// Package audit computes the content and raw-payload hashes of artifacts and
// gates raw-artifact persistence on their presence.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/pkg/utils"
)

var (
	ErrHashMissing   = errors.New("hash missing")
	ErrHashMalformed = errors.New("hash malformed")
)

// contentView is the subset of a product that defines its content. Scrape
// metadata and platform noise are left out so re-scrapes of an unchanged
// listing hash identically.
type contentView struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Tags        []string         `json:"tags"`
	Images      []string         `json:"images"`
	Variants    []variantContent `json:"variants"`
}

type variantContent struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Price          string   `json:"price"`
	CompareAtPrice string   `json:"compare_at_price"`
	InStock        *bool    `json:"in_stock"`
	Options        []string `json:"options"`
}

// ContentHash hashes the listing content of an artifact.
func ContentHash(a *entity.Artifact) string {
	p := a.Product
	if p == nil {
		return utils.HashBytes(nil)
	}
	view := contentView{
		Title:       p.Title,
		Description: p.DescriptionHTML + p.DescriptionMD,
		Tags:        p.Tags,
	}
	for _, img := range p.Images {
		view.Images = append(view.Images, img.URL)
	}
	for _, v := range p.Variants {
		view.Variants = append(view.Variants, variantContent{
			ID:             v.PlatformVariantID.String(),
			Title:          v.Title,
			Price:          v.Price,
			CompareAtPrice: v.CompareAtPrice,
			InStock:        v.InStock,
			Options:        v.Options,
		})
	}
	b, _ := json.Marshal(view)
	return utils.HashBytes(b)
}

// RawPayloadHash hashes the raw document as received.
func RawPayloadHash(raw []byte) string {
	return utils.HashJSON(raw)
}

// Stamp fills in missing hashes on the artifact's normalization section.
// Hashes supplied upstream are kept.
func Stamp(a *entity.Artifact, raw []byte) {
	n := a.EnsureNormalization()
	if n.ContentHash == "" {
		n.ContentHash = ContentHash(a)
	}
	if n.RawPayloadHash == "" {
		n.RawPayloadHash = RawPayloadHash(raw)
	}
}

// Verify checks that both hashes are present and are SHA256 digests.
func Verify(a *entity.Artifact) error {
	if a == nil || a.Normalization == nil {
		return fmt.Errorf("content_hash: %w", ErrHashMissing)
	}
	for _, h := range []struct{ name, value string }{
		{"content_hash", a.Normalization.ContentHash},
		{"raw_payload_hash", a.Normalization.RawPayloadHash},
	} {
		if h.value == "" {
			return fmt.Errorf("%s: %w", h.name, ErrHashMissing)
		}
		if !utils.IsHash(h.value) {
			return fmt.Errorf("%s %q: %w", h.name, h.value, ErrHashMalformed)
		}
	}
	return nil
}

// VerifyHashIntegrity reports whether the artifact may be written to raw storage.
func VerifyHashIntegrity(a *entity.Artifact) bool {
	return Verify(a) == nil
}
