package models

import (
	"time"

	id "custodia/pkg/domain"
)

// Record is the registry entry for a health record. The payload itself lives
// in content-addressed storage; only the hash travels here.
type Record struct {
	ID              id.RecordID
	Patient         id.AccountID
	IPFSHash        string
	Category        Category
	Format          Format
	Title           string
	FileSize        uint64
	EncryptionKeyID *id.KeyID
	UploadedAt      time.Time
	LastAccessed    *time.Time
	AccessCount     uint64
	Active          bool
}

// AccessLog is one read of the record.
type AccessLog struct {
	RecordID   id.RecordID
	Accessor   id.AccountID
	AccessedAt time.Time
	Purpose    string
}
