package asset

import (
	"fmt"
	"strings"
	"time"

	"github.com/grcmmap/api/pkg/domain/shared"
)

// Asset is a network-addressable host that findings are observed on.
// The address is the natural key: one Asset exists per address.
type Asset struct {
	id        shared.ID
	name      string
	ipAddress string
	assetType AssetType
	createdAt time.Time
}

// NewAsset creates an Asset first sighted at the given address.
func NewAsset(name, ipAddress string, assetType AssetType) (*Asset, error) {
	ipAddress = strings.TrimSpace(ipAddress)
	if ipAddress == "" {
		return nil, fmt.Errorf("%w: asset address is required", shared.ErrValidation)
	}
	if name = strings.TrimSpace(name); name == "" {
		name = ipAddress
	}
	if !assetType.IsValid() {
		return nil, fmt.Errorf("%w: invalid asset type %q", shared.ErrValidation, assetType)
	}

	return &Asset{
		id:        shared.NewID(),
		name:      name,
		ipAddress: ipAddress,
		assetType: assetType,
		createdAt: time.Now().UTC(),
	}, nil
}

// Reconstitute rebuilds an Asset from persisted state.
func Reconstitute(id shared.ID, name, ipAddress string, assetType AssetType, createdAt time.Time) *Asset {
	return &Asset{
		id:        id,
		name:      name,
		ipAddress: ipAddress,
		assetType: assetType,
		createdAt: createdAt,
	}
}

func (a *Asset) ID() shared.ID { return a.id }
func (a *Asset) Name() string { return a.name }
func (a *Asset) IPAddress() string { return a.ipAddress }
func (a *Asset) Type() AssetType { return a.assetType }
func (a *Asset) CreatedAt() time.Time { return a.createdAt }
