// Package memstore is a map-backed implementation of the unit of work and
// analytics read model for tests. Each Do call works on a copy of the
// state and swaps it in only when the callback succeeds, so rollbacks
// behave like the database.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/grcmmap/api/pkg/domain/analytics"
	"github.com/grcmmap/api/pkg/domain/asset"
	"github.com/grcmmap/api/pkg/domain/compliance"
	"github.com/grcmmap/api/pkg/domain/finding"
	"github.com/grcmmap/api/pkg/domain/risk"
	"github.com/grcmmap/api/pkg/domain/shared"
	"github.com/grcmmap/api/pkg/domain/uow"
)

// Operation names accepted by FailOn.
const (
	OpAssetCreate   = "asset.create"
	OpFindingCreate = "finding.create"
	OpRiskCreate    = "risk.create"
	OpLinkFinding   = "control.link_finding"
	OpAnalytics     = "analytics"
)

type state struct {
	assets     map[shared.ID]*asset.Asset
	assetsByIP map[string]shared.ID

	findings     map[shared.ID]*finding.Finding
	findingOrder []shared.ID

	risks map[shared.ID]*risk.Risk // keyed by finding ID

	controls       map[shared.ID]*compliance.Control
	controlsByName map[string]shared.ID

	frameworks       map[shared.ID]*compliance.Framework
	frameworksByName map[string]shared.ID

	findingLinks map[shared.ID]map[shared.ID]bool // finding -> controls
	citations    map[[2]shared.ID]string          // framework, control -> reference
}

func newState() *state {
	return &state{
		assets:           make(map[shared.ID]*asset.Asset),
		assetsByIP:       make(map[string]shared.ID),
		findings:         make(map[shared.ID]*finding.Finding),
		risks:            make(map[shared.ID]*risk.Risk),
		controls:         make(map[shared.ID]*compliance.Control),
		controlsByName:   make(map[string]shared.ID),
		frameworks:       make(map[shared.ID]*compliance.Framework),
		frameworksByName: make(map[string]shared.ID),
		findingLinks:     make(map[shared.ID]map[shared.ID]bool),
		citations:        make(map[[2]shared.ID]string),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.assets {
		c.assets[k] = v
	}
	for k, v := range s.assetsByIP {
		c.assetsByIP[k] = v
	}
	for k, v := range s.findings {
		c.findings[k] = v
	}
	c.findingOrder = append([]shared.ID(nil), s.findingOrder...)
	for k, v := range s.risks {
		c.risks[k] = v
	}
	for k, v := range s.controls {
		c.controls[k] = v
	}
	for k, v := range s.controlsByName {
		c.controlsByName[k] = v
	}
	for k, v := range s.frameworks {
		c.frameworks[k] = v
	}
	for k, v := range s.frameworksByName {
		c.frameworksByName[k] = v
	}
	for k, v := range s.findingLinks {
		links := make(map[shared.ID]bool, len(v))
		for ctl := range v {
			links[ctl] = true
		}
		c.findingLinks[k] = links
	}
	for k, v := range s.citations {
		c.citations[k] = v
	}
	return c
}

type fault struct {
	after int
	calls int
	err   error
}

// Store is an in-memory uow.Runner and analytics.Repository.
type Store struct {
	mu    sync.Mutex
	state *state

	faultMu sync.Mutex
	faults  map[string]*fault

	// racedIPs are addresses that another writer claims between the
	// lookup and the insert.
	racedIPs map[string]bool

	commits   int
	rollbacks int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		state:    newState(),
		faults:   make(map[string]*fault),
		racedIPs: make(map[string]bool),
	}
}

var (
	_ uow.Runner           = (*Store)(nil)
	_ analytics.Repository = (*Store)(nil)
)

// FailOn makes the operation fail with err once it has succeeded after
// times.
func (s *Store) FailOn(op string, after int, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = &fault{after: after, err: err}
}

// RaceAssetInsert simulates a concurrent upload that inserts the address
// right after this store reports it missing.
func (s *Store) RaceAssetInsert(ip string) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.racedIPs[ip] = true
}

func (s *Store) check(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	f, ok := s.faults[op]
	if !ok {
		return nil
	}
	f.calls++
	if f.calls > f.after {
		return f.err
	}
	return nil
}

func (s *Store) takeRace(ip string) bool {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if s.racedIPs[ip] {
		delete(s.racedIPs, ip)
		return true
	}
	return false
}

// Do runs fn against a private copy of the state and commits it when fn
// returns nil.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, u uow.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &unit{store: s, st: s.state.clone()}
	if err := fn(ctx, tx); err != nil {
		s.rollbacks++
		return err
	}
	s.state = tx.st
	s.commits++
	return nil
}

// Commits returns the number of committed units of work.
func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Rollbacks returns the number of rolled back units of work.
func (s *Store) Rollbacks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollbacks
}

// AssetCount returns the number of committed assets.
func (s *Store) AssetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.assets)
}

// FindingCount returns the number of committed findings.
func (s *Store) FindingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.findings)
}

// Citation returns the committed citation between a framework and control
// name, and false when they are not linked.
func (s *Store) Citation(frameworkName, controlName string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fwID, ok := s.state.frameworksByName[frameworkName]
	if !ok {
		return "", false
	}
	ctlID, ok := s.state.controlsByName[controlName]
	if !ok {
		return "", false
	}
	ref, ok := s.state.citations[[2]shared.ID{fwID, ctlID}]
	return ref, ok
}

// FindingsOn returns the committed findings of the asset at ip in
// insertion order.
func (s *Store) FindingsOn(ip string) []*finding.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	assetID, ok := s.state.assetsByIP[ip]
	if !ok {
		return nil
	}
	var out []*finding.Finding
	for _, id := range s.state.findingOrder {
		if f := s.state.findings[id]; f.AssetID() == assetID {
			out = append(out, f)
		}
	}
	return out
}

// RiskOf returns the committed risk of a finding.
func (s *Store) RiskOf(findingID shared.ID) (*risk.Risk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.state.risks[findingID]
	return r, ok
}

// AddFindingAt inserts a committed finding with an explicit ingestion
// time, for trend tests.
func (s *Store) AddFindingAt(f *finding.Finding, r *risk.Risk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.findings[f.ID()] = f
	s.state.findingOrder = append(s.state.findingOrder, f.ID())
	if r != nil {
		s.state.risks[f.ID()] = r
	}
}

// =============================================================================
// Analytics
// =============================================================================

var ratingOrder = map[risk.Rating]int{
	risk.RatingCritical: 0,
	risk.RatingHigh:     1,
	risk.RatingMedium:   2,
	risk.RatingLow:      3,
}

// RisksByRating counts committed risks per rating, most severe first.
func (s *Store) RisksByRating(ctx context.Context) ([]analytics.RatingCount, error) {
	if err := s.check(OpAnalytics); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[risk.Rating]int64)
	for _, r := range s.state.risks {
		counts[r.Rating()]++
	}
	out := make([]analytics.RatingCount, 0, len(counts))
	for rating, n := range counts {
		out = append(out, analytics.RatingCount{Rating: rating.String(), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		return ratingOrder[risk.Rating(out[i].Rating)] < ratingOrder[risk.Rating(out[j].Rating)]
	})
	return out, nil
}

// ControlMaturity counts linked findings per control, busiest first.
func (s *Store) ControlMaturity(ctx context.Context) ([]analytics.ControlCount, error) {
	if err := s.check(OpAnalytics); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[shared.ID]int64)
	for _, links := range s.state.findingLinks {
		for ctl := range links {
			counts[ctl]++
		}
	}
	out := make([]analytics.ControlCount, 0, len(counts))
	for ctl, n := range counts {
		out = append(out, analytics.ControlCount{ControlName: s.state.controls[ctl].Name(), FindingCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FindingCount != out[j].FindingCount {
			return out[i].FindingCount > out[j].FindingCount
		}
		return out[i].ControlName < out[j].ControlName
	})
	return out, nil
}

// FindingTrend counts committed findings per UTC ingestion day.
func (s *Store) FindingTrend(ctx context.Context) ([]analytics.TrendPoint, error) {
	if err := s.check(OpAnalytics); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int64)
	for _, f := range s.state.findings {
		counts[f.IngestedAt().UTC().Format(analytics.TrendDateLayout)]++
	}
	out := make([]analytics.TrendPoint, 0, len(counts))
	for day, n := range counts {
		out = append(out, analytics.TrendPoint{Date: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// =============================================================================
// Unit of work
// =============================================================================

type unit struct {
	store *Store
	st    *state
}

func (u *unit) Assets() asset.Repository { return assetRepo{u} }
func (u *unit) Findings() finding.Repository { return findingRepo{u} }
func (u *unit) Risks() risk.Repository { return riskRepo{u} }
func (u *unit) Controls() compliance.ControlRepository { return controlRepo{u} }
func (u *unit) Frameworks() compliance.FrameworkRepository { return frameworkRepo{u} }

type assetRepo struct{ u *unit }

func (r assetRepo) Create(ctx context.Context, a *asset.Asset) error {
	if err := r.u.store.check(OpAssetCreate); err != nil {
		return err
	}
	if _, ok := r.u.st.assetsByIP[a.IPAddress()]; ok {
		return asset.AlreadyExistsError(a.IPAddress())
	}
	r.u.st.assets[a.ID()] = a
	r.u.st.assetsByIP[a.IPAddress()] = a.ID()
	return nil
}

func (r assetRepo) GetByIP(ctx context.Context, ip string) (*asset.Asset, error) {
	id, ok := r.u.st.assetsByIP[ip]
	if !ok {
		if r.u.store.takeRace(ip) {
			// Another writer commits the address after our lookup missed.
			rival, err := asset.NewAsset(ip, ip, asset.TypeServer)
			if err != nil {
				return nil, err
			}
			r.u.st.assets[rival.ID()] = rival
			r.u.st.assetsByIP[ip] = rival.ID()
		}
		return nil, asset.NotFoundByIPError(ip)
	}
	return r.u.st.assets[id], nil
}

func (r assetRepo) GetByID(ctx context.Context, id shared.ID) (*asset.Asset, error) {
	a, ok := r.u.st.assets[id]
	if !ok {
		return nil, fmt.Errorf("%w: id=%s", asset.ErrAssetNotFound, id)
	}
	return a, nil
}

type findingRepo struct{ u *unit }

func (r findingRepo) Create(ctx context.Context, f *finding.Finding) error {
	if err := r.u.store.check(OpFindingCreate); err != nil {
		return err
	}
	if _, ok := r.u.st.assets[f.AssetID()]; !ok {
		return errors.New("memstore: finding references unknown asset")
	}
	r.u.st.findings[f.ID()] = f
	r.u.st.findingOrder = append(r.u.st.findingOrder, f.ID())
	return nil
}

func (r findingRepo) GetByID(ctx context.Context, id shared.ID) (*finding.Finding, error) {
	f, ok := r.u.st.findings[id]
	if !ok {
		return nil, finding.NotFoundError(id)
	}
	return f, nil
}

type riskRepo struct{ u *unit }

func (r riskRepo) Create(ctx context.Context, rk *risk.Risk) error {
	if err := r.u.store.check(OpRiskCreate); err != nil {
		return err
	}
	if _, ok := r.u.st.risks[rk.FindingID()]; ok {
		return fmt.Errorf("%w: finding_id=%s", risk.ErrRiskAlreadyExists, rk.FindingID())
	}
	r.u.st.risks[rk.FindingID()] = rk
	return nil
}

func (r riskRepo) GetByFindingID(ctx context.Context, findingID shared.ID) (*risk.Risk, error) {
	rk, ok := r.u.st.risks[findingID]
	if !ok {
		return nil, fmt.Errorf("%w: finding_id=%s", risk.ErrRiskNotFound, findingID)
	}
	return rk, nil
}

type controlRepo struct{ u *unit }

func (r controlRepo) CreateIfAbsent(ctx context.Context, c *compliance.Control) (*compliance.Control, error) {
	if id, ok := r.u.st.controlsByName[c.Name()]; ok {
		return r.u.st.controls[id], nil
	}
	r.u.st.controls[c.ID()] = c
	r.u.st.controlsByName[c.Name()] = c.ID()
	return c, nil
}

func (r controlRepo) GetByName(ctx context.Context, name string) (*compliance.Control, error) {
	id, ok := r.u.st.controlsByName[name]
	if !ok {
		return nil, compliance.ControlNotFoundError(name)
	}
	return r.u.st.controls[id], nil
}

func (r controlRepo) LinkFinding(ctx context.Context, findingID, controlID shared.ID) error {
	if err := r.u.store.check(OpLinkFinding); err != nil {
		return err
	}
	links, ok := r.u.st.findingLinks[findingID]
	if !ok {
		links = make(map[shared.ID]bool)
		r.u.st.findingLinks[findingID] = links
	}
	links[controlID] = true
	return nil
}

func (r controlRepo) ListByFinding(ctx context.Context, findingID shared.ID) ([]*compliance.Control, error) {
	out := make([]*compliance.Control, 0, len(r.u.st.findingLinks[findingID]))
	for id := range r.u.st.findingLinks[findingID] {
		out = append(out, r.u.st.controls[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

type frameworkRepo struct{ u *unit }

func (r frameworkRepo) CreateIfAbsent(ctx context.Context, f *compliance.Framework) (*compliance.Framework, error) {
	if id, ok := r.u.st.frameworksByName[f.Name()]; ok {
		return r.u.st.frameworks[id], nil
	}
	r.u.st.frameworks[f.ID()] = f
	r.u.st.frameworksByName[f.Name()] = f.ID()
	return f, nil
}

func (r frameworkRepo) GetByName(ctx context.Context, name string) (*compliance.Framework, error) {
	id, ok := r.u.st.frameworksByName[name]
	if !ok {
		return nil, compliance.FrameworkNotFoundError(name)
	}
	return r.u.st.frameworks[id], nil
}

func (r frameworkRepo) LinkControl(ctx context.Context, frameworkID, controlID shared.ID, citation string) error {
	key := [2]shared.ID{frameworkID, controlID}
	if _, ok := r.u.st.citations[key]; !ok {
		r.u.st.citations[key] = citation
	}
	return nil
}
