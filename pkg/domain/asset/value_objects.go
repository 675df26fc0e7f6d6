package asset

// AssetType classifies an asset.
type AssetType string

const (
	// TypeServer is assigned to every asset discovered through file ingestion.
	TypeServer      AssetType = "Server"
	TypeWorkstation AssetType = "Workstation"
	TypeNetwork     AssetType = "Network Device"
)

// IsValid reports whether t is a known asset type.
func (t AssetType) IsValid() bool {
	switch t {
	case TypeServer, TypeWorkstation, TypeNetwork:
		return true
	}
	return false
}

func (t AssetType) String() string {
	return string(t)
}
