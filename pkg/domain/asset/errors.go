package asset

import (
	"fmt"

	"github.com/grcmmap/api/pkg/domain/shared"
)

// Domain-specific errors for asset.
var (
	ErrAssetNotFound      = fmt.Errorf("asset %w", shared.ErrNotFound)
	ErrAssetAlreadyExists = fmt.Errorf("asset %w", shared.ErrAlreadyExists)
)

// NotFoundByIPError reports a missing asset for an address.
func NotFoundByIPError(ip string) error {
	return fmt.Errorf("%w: ip=%s", ErrAssetNotFound, ip)
}

// AlreadyExistsError reports an address that is already registered.
func AlreadyExistsError(ip string) error {
	return fmt.Errorf("%w: ip=%s", ErrAssetAlreadyExists, ip)
}
