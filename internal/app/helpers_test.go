package app

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grcmmap/api/internal/testutil/memstore"
	"github.com/grcmmap/api/pkg/domain/asset"
	"github.com/grcmmap/api/pkg/domain/compliance"
	"github.com/grcmmap/api/pkg/domain/finding"
	"github.com/grcmmap/api/pkg/domain/uow"
	"github.com/grcmmap/api/pkg/logger"
)

// seededStore returns a store holding the built-in catalog.
func seededStore(t *testing.T) *memstore.Store {
	t.Helper()
	store := memstore.New()
	_, err := NewCatalogSeeder(store, compliance.DefaultCatalog(), logger.NewNop()).Seed(context.Background())
	require.NoError(t, err)
	return store
}

// bufferLogger returns a JSON logger at warn level writing into buf.
func bufferLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Config{Level: "warn", Format: "json", Output: buf})
}

// createFinding persists an asset and a finding in one unit of work.
func createFinding(t *testing.T, store *memstore.Store, ip, title string, sev finding.Severity) *finding.Finding {
	t.Helper()
	var f *finding.Finding
	err := store.Do(context.Background(), func(ctx context.Context, u uow.UnitOfWork) error {
		a, err := u.Assets().GetByIP(ctx, ip)
		if err != nil {
			a, err = asset.NewAsset(ip, ip, asset.TypeServer)
			require.NoError(t, err)
			require.NoError(t, u.Assets().Create(ctx, a))
		}
		f, err = finding.NewFinding(a.ID(), finding.Normalized{
			AssetName:  ip,
			IPAddress:  ip,
			Title:      title,
			SourceType: "nessus",
			Severity:   sev,
		})
		require.NoError(t, err)
		return u.Findings().Create(ctx, f)
	})
	require.NoError(t, err)
	return f
}
