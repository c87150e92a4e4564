package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wagateway/gateway-server-go/internal/model"
)

type MediaFetcher interface {
	FetchMedia(ctx context.Context, evt *model.InboundEvent) (*model.MediaFile, error)
}

type BlobStore interface {
	// Upload returns the public URL, or nil when the upload failed.
	Upload(ctx context.Context, data []byte, fileName, dir string) *string
	Dir(category model.MediaCategory) string
}

// Normalizer turns inbound events into canonical webhook records.
type Normalizer struct {
	blobs BlobStore
	now   func() time.Time
}

func NewNormalizer(blobs BlobStore) *Normalizer {
	return &Normalizer{
		blobs: blobs,
		now:   time.Now,
	}
}

// Normalize builds the record for evt. It returns false only when an
// attachment could not be fetched; a failed upload still yields a record
// with null URLs.
func (n *Normalizer) Normalize(ctx context.Context, evt *model.InboundEvent, fetcher MediaFetcher) (*model.Record, bool) {
	record := &model.Record{
		MessageID:  evt.ID,
		Phone:      evt.Chat.User,
		FromMe:     evt.FromMe,
		Moment:     n.moment(evt.Timestamp),
		SenderName: evt.PushName,
	}

	switch p := evt.Payload.(type) {
	case model.TextPayload:
		record.Forwarded = p.Forwarded
		record.Text = &model.TextRecord{Message: p.Body}

	case model.LocationPayload:
		record.Location = &model.LocationRecord{
			Longitude: p.Longitude,
			Latitude:  p.Latitude,
			Name:      nullable(p.Name),
			Address:   p.Address,
			URL:       "",
		}

	case model.LiveLocationPayload:
		record.LiveLocation = &model.LiveLocationRecord{
			Longitude: p.Longitude,
			Latitude:  p.Latitude,
			Sequence:  model.NewSequenceNumber(p.Sequence),
			Caption:   p.Caption,
		}

	case model.DocumentPayload:
		file, ok := n.fetch(ctx, evt, fetcher)
		if !ok {
			return nil, false
		}
		url := n.blobs.Upload(ctx, file.Data, file.FileName, n.blobs.Dir(model.MediaCategoryDocument))
		record.Document = &model.DocumentRecord{
			Caption:     nullable(p.Caption),
			DocumentURL: url,
			MimeType:    p.MimeType,
			Title:       p.Title,
			PageCount:   p.PageCount,
			FileName:    p.FileName,
		}

	case model.ImagePayload:
		file, ok := n.fetch(ctx, evt, fetcher)
		if !ok {
			return nil, false
		}
		url := n.blobs.Upload(ctx, file.Data, file.FileName, n.blobs.Dir(model.MediaCategoryImage))
		record.Forwarded = p.Forwarded
		record.Image = &model.ImageRecord{
			ImageURL:     url,
			ThumbnailURL: url,
			Caption:      p.Caption,
			MimeType:     p.MimeType,
			ViewOnce:     p.ViewOnce,
			Width:        p.Width,
			Height:       p.Height,
		}
	}

	return record, true
}

func (n *Normalizer) fetch(ctx context.Context, evt *model.InboundEvent, fetcher MediaFetcher) (*model.MediaFile, bool) {
	if fetcher == nil {
		log.Warn().Str("messageId", evt.ID).Msg("no media fetcher, dropping attachment message")
		return nil, false
	}
	file, err := fetcher.FetchMedia(ctx, evt)
	if err != nil || file == nil {
		log.Error().
			Err(err).
			Str("messageId", evt.ID).
			Msg("media fetch failed, dropping message")
		return nil, false
	}
	return file, true
}

func (n *Normalizer) moment(ts time.Time) int64 {
	if ts.IsZero() {
		return n.now().UnixMilli()
	}
	return ts.Unix() * 1000
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
