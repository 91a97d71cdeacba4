// Package document defines files attached to applications.
package document

import "time"

// Kind classifies an uploaded document.
type Kind string

const (
	KindPhoto            Kind = "PHOTO"
	KindBirthCertificate Kind = "BIRTH_CERTIFICATE"
	KindIDProof          Kind = "ID_PROOF"
	KindMedical          Kind = "MEDICAL"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPhoto, KindBirthCertificate, KindIDProof, KindMedical:
		return true
	}
	return false
}

// AllowedContentTypes lists the sniffed types accepted for upload.
var AllowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// Document is metadata for bytes held in blob storage.
type Document struct {
	ID            string    `json:"id" db:"id"`
	ApplicationID string    `json:"application_id" db:"application_id"`
	Kind          Kind      `json:"kind" db:"kind"`
	FileName      string    `json:"file_name" db:"file_name"`
	ContentType   string    `json:"content_type" db:"content_type"`
	Size          int64     `json:"size" db:"size"`
	StorageKey    string    `json:"-" db:"storage_key"`
	UploadedBy    string    `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
