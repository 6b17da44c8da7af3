package model

import "time"

// UploadRequest describes a product image the caller intends to upload.
type UploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// UploadTicket is a presigned URL the client PUTs the image to.
type UploadTicket struct {
	URL       string    `json:"url"`
	Path      string    `json:"path"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expiresAt"`
}
