package microsoft

import "time"

// driveItem is the raw Graph JSON shape of a drive item, used where the
// transfer engine bypasses the SDK (upload sessions, simple uploads).
// Field names are vendor-fixed.
type driveItem struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Size                 int64      `json:"size"`
	WebURL               string     `json:"webUrl,omitempty"`
	CreatedDateTime      *time.Time `json:"createdDateTime,omitempty"`
	LastModifiedDateTime *time.Time `json:"lastModifiedDateTime,omitempty"`

	File *struct {
		MimeType string `json:"mimeType"`
	} `json:"file,omitempty"`
	Folder *struct {
		ChildCount int32 `json:"childCount"`
	} `json:"folder,omitempty"`
	ParentReference *struct {
		ID string `json:"id"`
	} `json:"parentReference,omitempty"`
}

// uploadSession is the Graph createUploadSession response. The
// continuation URL arrives in the body rather than a Location header.
type uploadSession struct {
	UploadURL          string `json:"uploadUrl"`
	ExpirationDateTime string `json:"expirationDateTime,omitempty"`
}
