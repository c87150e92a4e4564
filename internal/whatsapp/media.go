package whatsapp

import (
	"context"
	"fmt"

	"go.mau.fi/util/exmime"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"

	"github.com/wagateway/gateway-server-go/internal/model"
)

type downloader interface {
	Download(ctx context.Context, msg whatsmeow.DownloadableMessage) ([]byte, error)
}

// attachment returns the downloadable part of an event and the file name
// it should be stored under.
func attachment(evt *model.InboundEvent) (whatsmeow.DownloadableMessage, string, string, error) {
	raw, ok := evt.Raw.(*waE2E.Message)
	if !ok || raw == nil {
		return nil, "", "", fmt.Errorf("event %s carries no protocol message", evt.ID)
	}

	switch p := evt.Payload.(type) {
	case model.DocumentPayload:
		doc := documentMessage(raw)
		if doc == nil {
			return nil, "", "", fmt.Errorf("event %s has no document", evt.ID)
		}
		name := p.FileName
		if name == "" {
			name = evt.ID + exmime.ExtensionFromMimetype(p.MimeType)
		}
		return doc, name, p.MimeType, nil

	case model.ImagePayload:
		img := raw.GetImageMessage()
		if img == nil {
			return nil, "", "", fmt.Errorf("event %s has no image", evt.ID)
		}
		return img, evt.ID + exmime.ExtensionFromMimetype(p.MimeType), p.MimeType, nil

	default:
		return nil, "", "", fmt.Errorf("event %s has no attachment", evt.ID)
	}
}

func fetchMedia(ctx context.Context, d downloader, evt *model.InboundEvent) (*model.MediaFile, error) {
	msg, name, mimeType, err := attachment(evt)
	if err != nil {
		return nil, err
	}

	data, err := d.Download(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", evt.ID, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("download %s: empty body", evt.ID)
	}

	return &model.MediaFile{
		Data:     data,
		FileName: name,
		MimeType: mimeType,
	}, nil
}
