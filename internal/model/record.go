package model

// Record is the canonical JSON document posted to the webhook.
type Record struct {
	MessageID    string              `json:"messageId"`
	Phone        string              `json:"phone"`
	FromMe       bool                `json:"fromMe"`
	Moment       int64               `json:"moment"`
	SenderName   string              `json:"senderName"`
	Forwarded    bool                `json:"forwarded"`
	Text         *TextRecord         `json:"text,omitempty"`
	Location     *LocationRecord     `json:"location,omitempty"`
	LiveLocation *LiveLocationRecord `json:"liveLocation,omitempty"`
	Document     *DocumentRecord     `json:"document,omitempty"`
	Image        *ImageRecord        `json:"image,omitempty"`
}

type TextRecord struct {
	Message string `json:"message"`
}

type LocationRecord struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Name      *string `json:"name"`
	Address   string  `json:"address"`
	URL       string  `json:"url"`
}

type LiveLocationRecord struct {
	Longitude float64        `json:"longitude"`
	Latitude  float64        `json:"latitude"`
	Sequence  SequenceNumber `json:"sequence"`
	Caption   string         `json:"caption"`
}

// SequenceNumber is a 64-bit counter split into two signed 32-bit halves.
type SequenceNumber struct {
	Low      int32 `json:"low"`
	High     int32 `json:"high"`
	Unsigned bool  `json:"unsigned"`
}

// NewSequenceNumber splits a signed 64-bit value into its halves.
func NewSequenceNumber(v int64) SequenceNumber {
	return SequenceNumber{
		Low:  int32(uint32(v)),
		High: int32(v >> 32),
	}
}

// Document and image URL fields are never omitted: nil encodes as null.
type DocumentRecord struct {
	Caption     *string `json:"caption"`
	DocumentURL *string `json:"documentUrl"`
	MimeType    string  `json:"mimeType"`
	Title       string  `json:"title"`
	PageCount   uint32  `json:"pageCount"`
	FileName    string  `json:"fileName"`
}

type ImageRecord struct {
	ImageURL     *string `json:"imageUrl"`
	ThumbnailURL *string `json:"thumbnailUrl"`
	Caption      string  `json:"caption"`
	MimeType     string  `json:"mimeType"`
	ViewOnce     bool    `json:"viewOnce"`
	Width        uint32  `json:"width"`
	Height       uint32  `json:"height"`
}
