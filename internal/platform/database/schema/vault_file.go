package schema

// VaultFileTable represents the 'vault.file' table
type VaultFileTable struct {
	Table        string
	ID           string
	OwnerID      string
	FileName     string
	OriginalName string
	ContentType  string
	Kind         string
	SizeBytes    string
	StorageKey   string
	UploadedAt   string
}

// VaultFile is the schema definition for vault.file
var VaultFile = VaultFileTable{
	Table:        "vault.file",
	ID:           "id",
	OwnerID:      "ownerid",
	FileName:     "filename",
	OriginalName: "originalname",
	ContentType:  "contenttype",
	Kind:         "kind",
	SizeBytes:    "sizebytes",
	StorageKey:   "storagekey",
	UploadedAt:   "uploadedat",
}

// Columns returns all standard column names
func (t VaultFileTable) Columns() []string {
	return []string{
		t.ID, t.OwnerID, t.FileName, t.OriginalName, t.ContentType, t.Kind, t.SizeBytes, t.StorageKey, t.UploadedAt,
	}
}
