package app

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcmmap/api/internal/testutil/memstore"
	"github.com/grcmmap/api/pkg/domain/compliance"
	"github.com/grcmmap/api/pkg/domain/finding"
	"github.com/grcmmap/api/pkg/domain/uow"
	"github.com/grcmmap/api/pkg/logger"
)

const (
	patchControl  = "Patch Management & Configuration Hardening"
	accessControl = "Access Control & Principle of Least Privilege"
)

func controlNames(ctls []*compliance.Control) []string {
	names := make([]string, 0, len(ctls))
	for _, c := range ctls {
		names = append(names, c.Name())
	}
	return names
}

func TestComplianceMapper_Map(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  []string
	}{
		{name: "ssh keyword", title: "Outdated OpenSSH Version", want: []string{patchControl}},
		{name: "patch keyword", title: "Missing Security PATCH", want: []string{patchControl}},
		{name: "config keyword", title: "Weak TLS configuration", want: []string{patchControl}},
		{name: "privilege keyword", title: "Privilege escalation via sudo", want: []string{accessControl}},
		{name: "both rules", title: "SSH access without MFA", want: []string{accessControl, patchControl}},
		{name: "no match", title: "Expired certificate", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore(t)
			f := createFinding(t, store, "10.0.0.1", tt.title, finding.SeverityHigh)
			mapper := NewComplianceMapper(compliance.DefaultCatalog(), logger.NewNop())

			var got []*compliance.Control
			err := store.Do(context.Background(), func(ctx context.Context, u uow.UnitOfWork) error {
				var err error
				got, err = mapper.Map(ctx, u, f.ID(), tt.title)
				return err
			})

			require.NoError(t, err)
			assert.Equal(t, tt.want, controlNames(got))
		})
	}
}

func TestComplianceMapper_Idempotent(t *testing.T) {
	store := seededStore(t)
	f := createFinding(t, store, "10.0.0.1", "SSH access allowed", finding.SeverityHigh)
	mapper := NewComplianceMapper(compliance.DefaultCatalog(), logger.NewNop())

	var first, second []*compliance.Control
	for _, dst := range []*[]*compliance.Control{&first, &second} {
		err := store.Do(context.Background(), func(ctx context.Context, u uow.UnitOfWork) error {
			var err error
			*dst, err = mapper.Map(ctx, u, f.ID(), "SSH access allowed")
			return err
		})
		require.NoError(t, err)
	}

	assert.Equal(t, controlNames(first), controlNames(second))
	assert.Len(t, second, 2)
}

func TestComplianceMapper_MissingControlIsSkipped(t *testing.T) {
	store := memstore.New()
	f := createFinding(t, store, "10.0.0.1", "Unpatched kernel", finding.SeverityHigh)

	var buf bytes.Buffer
	mapper := NewComplianceMapper(compliance.DefaultCatalog(), bufferLogger(&buf))

	var got []*compliance.Control
	err := store.Do(context.Background(), func(ctx context.Context, u uow.UnitOfWork) error {
		var err error
		got, err = mapper.Map(ctx, u, f.ID(), "Unpatched kernel")
		return err
	})

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Contains(t, buf.String(), "control missing from store")
	assert.Contains(t, buf.String(), "Patch Management")
}

func TestComplianceMapper_LinkFailure(t *testing.T) {
	store := seededStore(t)
	f := createFinding(t, store, "10.0.0.1", "Unpatched kernel", finding.SeverityHigh)
	store.FailOn(memstore.OpLinkFinding, 0, assert.AnError)
	mapper := NewComplianceMapper(compliance.DefaultCatalog(), logger.NewNop())

	err := store.Do(context.Background(), func(ctx context.Context, u uow.UnitOfWork) error {
		_, err := mapper.Map(ctx, u, f.ID(), "Unpatched kernel")
		return err
	})

	assert.ErrorIs(t, err, assert.AnError)
}
