package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"couponnet/internal/model"
	"couponnet/internal/repository"
	"couponnet/pkg/errors"
)

// The fakes below mirror the mongo repositories' atomicity contracts:
// guarded compare-and-swaps under a mutex, and a transaction runner that
// snapshots every store so a failed unit of work rolls back completely.

type snapshotter interface {
	snapshot() func()
}

type fakeTx struct {
	mu     sync.Mutex
	stores []snapshotter
}

// WithTransaction serializes units of work, the way the mongo transaction
// coordinator serializes writers touching the same documents.
func (t *fakeTx) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	restores := make([]func(), 0, len(t.stores))
	for _, s := range t.stores {
		restores = append(restores, s.snapshot())
	}
	if err := fn(ctx); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		return err
	}
	return nil
}

// fakeDirectory is the user-lookup / sponsor-chain / KYC collaborator.
type fakeDirectory struct {
	usernames map[string]string // username -> user id
	sponsors  map[string]string // user id -> sponsor user id
	kyc       map[string]bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		usernames: make(map[string]string),
		sponsors:  make(map[string]string),
		kyc:       make(map[string]bool),
	}
}

func (d *fakeDirectory) Resolve(_ context.Context, username string) (string, error) {
	if id, ok := d.usernames[username]; ok {
		return id, nil
	}
	return "", errors.NotFound("username %q not found", username)
}

func (d *fakeDirectory) Ancestors(_ context.Context, user string, maxLevels int) ([]string, error) {
	out := make([]string, 0, maxLevels)
	current := user
	for len(out) < maxLevels {
		sponsor, ok := d.sponsors[current]
		if !ok || sponsor == "" {
			break
		}
		out = append(out, sponsor)
		current = sponsor
	}
	return out, nil
}

func (d *fakeDirectory) Verified(_ context.Context, user string) (bool, error) {
	return d.kyc[user], nil
}

// fakeCodeRepo keys active records by code string; superseded records move
// to the archive, mirroring the partial unique index.
type fakeCodeRepo struct {
	mu       sync.Mutex
	active   map[string]*model.CouponCode
	archived []*model.CouponCode
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{active: make(map[string]*model.CouponCode)}
}

func (r *fakeCodeRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	activeCopy := make(map[string]*model.CouponCode, len(r.active))
	for k, v := range r.active {
		cp := *v
		activeCopy[k] = &cp
	}
	archivedCopy := make([]*model.CouponCode, len(r.archived))
	copy(archivedCopy, r.archived)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.active = activeCopy
		r.archived = archivedCopy
	}
}

func (r *fakeCodeRepo) CreateBatch(_ context.Context, codes []*model.CouponCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range codes {
		if _, exists := r.active[c.Code]; exists {
			return errors.StateConflict("one or more codes already exist")
		}
	}
	now := time.Now()
	for _, c := range codes {
		cp := *c
		if cp.ID.IsZero() {
			cp.ID = primitive.NewObjectID()
		}
		cp.CreatedAt = now
		cp.UpdatedAt = now
		r.active[cp.Code] = &cp
	}
	return nil
}

func (r *fakeCodeRepo) GetActiveByCode(_ context.Context, code string) (*model.CouponCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cc, ok := r.active[code]
	if !ok {
		return nil, errors.NotFound("code %s not found", code)
	}
	cp := *cc
	return &cp, nil
}

func (r *fakeCodeRepo) Transition(_ context.Context, spec repository.TransitionSpec) (*model.CouponCode, error) {
	for _, from := range spec.From {
		if !model.CanTransition(from, spec.To) {
			return nil, errors.Validation("illegal transition %s to %s", from, spec.To)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cc, ok := r.active[spec.Code]
	if !ok {
		return nil, errors.NotFound("code %s not found", spec.Code)
	}
	statusOK := false
	for _, from := range spec.From {
		if cc.Status == from {
			statusOK = true
			break
		}
	}
	if !statusOK ||
		(spec.GuardEmployee != "" && cc.AssignedEmployee != spec.GuardEmployee) ||
		(spec.GuardConsumer != "" && cc.AssignedConsumer != spec.GuardConsumer) {
		return nil, errors.StateConflict("code %s cannot move to %s", spec.Code, spec.To)
	}

	cc.Status = spec.To
	cc.UpdatedAt = time.Now()
	if spec.Set.AssignedAgency != "" {
		cc.AssignedAgency = spec.Set.AssignedAgency
	}
	if spec.Set.AssignedEmployee != "" {
		cc.AssignedEmployee = spec.Set.AssignedEmployee
	}
	if spec.Set.AssignedConsumer != "" {
		cc.AssignedConsumer = spec.Set.AssignedConsumer
	}
	if spec.Set.TransferredTo != "" {
		cc.TransferredTo = spec.Set.TransferredTo
	}
	if spec.Set.Superseded {
		cc.Superseded = true
		r.archived = append(r.archived, cc)
		delete(r.active, spec.Code)
	}
	cp := *cc
	return &cp, nil
}

func (r *fakeCodeRepo) AssignBatch(_ context.Context, batchID, employee string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, cc := range r.active {
		if cc.BatchID == batchID && cc.Status == model.StatusAvailable {
			cc.Status = model.StatusAssignedEmployee
			cc.AssignedEmployee = employee
			n++
		}
	}
	return n, nil
}

func (r *fakeCodeRepo) ClaimForConsumer(_ context.Context, employee, consumer string, count int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, cc := range r.active {
		if n == count {
			break
		}
		if cc.AssignedEmployee == employee && cc.Status == model.StatusAssignedEmployee {
			cc.Status = model.StatusAssignedConsumer
			cc.AssignedConsumer = consumer
			n++
		}
	}
	return n, nil
}

func (r *fakeCodeRepo) InsertSuccessor(_ context.Context, original *model.CouponCode, newConsumer string) (*model.CouponCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.active[original.Code]; exists {
		return nil, errors.StateConflict("code %s already has an active record", original.Code)
	}
	now := time.Now()
	successor := &model.CouponCode{
		ID:               primitive.NewObjectID(),
		Code:             original.Code,
		Denomination:     original.Denomination,
		Status:           model.StatusAssignedConsumer,
		AssignedAgency:   original.AssignedAgency,
		AssignedEmployee: original.AssignedEmployee,
		AssignedConsumer: newConsumer,
		BatchID:          original.BatchID,
		Serial:           original.Serial,
		PreviousID:       original.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.active[original.Code] = successor
	cp := *successor
	return &cp, nil
}

func (r *fakeCodeRepo) CountByOwner(_ context.Context, employee string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, cc := range r.active {
		if cc.AssignedEmployee == employee && cc.Status == model.StatusAssignedEmployee {
			n++
		}
	}
	return n, nil
}

type fakeWalletRepo struct {
	mu      sync.Mutex
	wallets map[string]*model.Wallet
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: make(map[string]*model.Wallet)}
}

func (r *fakeWalletRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]*model.Wallet, len(r.wallets))
	for k, v := range r.wallets {
		w := *v
		cp[k] = &w
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.wallets = cp
	}
}

func (r *fakeWalletRepo) ApplyEntry(_ context.Context, user string, grossPaise, netPaise int64, taxPercent float64) error {
	if grossPaise < 0 || netPaise < 0 {
		return errors.Validation("ledger entries only credit")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[user]
	if !ok {
		w = &model.Wallet{UserID: user}
		r.wallets[user] = w
	}
	w.MainPaise += grossPaise
	w.WithdrawablePaise += netPaise
	w.TaxPercent = taxPercent
	w.UpdatedAt = time.Now()
	return nil
}

func (r *fakeWalletRepo) DebitWithdrawable(_ context.Context, user string, amountPaise int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[user]
	if !ok || w.WithdrawablePaise < amountPaise {
		return errors.Validation("withdrawable balance below debit amount")
	}
	w.WithdrawablePaise -= amountPaise
	return nil
}

func (r *fakeWalletRepo) Get(_ context.Context, user string) (*model.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.wallets[user]; ok {
		cp := *w
		return &cp, nil
	}
	return &model.Wallet{UserID: user}, nil
}

type fakeLedgerRepo struct {
	mu      sync.Mutex
	entries []*model.CommissionLedgerEntry
}

func (r *fakeLedgerRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]*model.CommissionLedgerEntry, len(r.entries))
	copy(cp, r.entries)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.entries = cp
	}
}

func (r *fakeLedgerRepo) Insert(_ context.Context, entry *model.CommissionLedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	if cp.Status == "" {
		cp.Status = model.EntryPending
	}
	if cp.EarnedAt.IsZero() {
		cp.EarnedAt = time.Now()
	}
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeLedgerRepo) ListByUser(_ context.Context, user string) ([]*model.CommissionLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.CommissionLedgerEntry
	for _, e := range r.entries {
		if e.Beneficiary == user {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeProgressRepo struct {
	mu   sync.Mutex
	rows map[string]*model.MatrixProgress // user + "|" + pool
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{rows: make(map[string]*model.MatrixProgress)}
}

func progressKey(user string, pool model.PoolType) string {
	return user + "|" + string(pool)
}

func (r *fakeProgressRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]*model.MatrixProgress, len(r.rows))
	for k, v := range r.rows {
		row := *v
		row.LevelCounts = copyCounts(v.LevelCounts)
		row.LevelEarned = copyCounts(v.LevelEarned)
		cp[k] = &row
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.rows = cp
	}
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (r *fakeProgressRepo) getOrCreate(user string, pool model.PoolType) *model.MatrixProgress {
	key := progressKey(user, pool)
	row, ok := r.rows[key]
	if !ok {
		row = &model.MatrixProgress{
			UserID:      user,
			Pool:        pool,
			LevelCounts: make(map[string]int64),
			LevelEarned: make(map[string]int64),
		}
		r.rows[key] = row
	}
	return row
}

func (r *fakeProgressRepo) Accumulate(_ context.Context, user string, pool model.PoolType, level int, amountPaise int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.getOrCreate(user, pool)
	lvl := strconv.Itoa(level)
	row.LevelCounts[lvl]++
	row.LevelEarned[lvl] += amountPaise
	row.TotalEarnedPaise += amountPaise
	if level > row.LevelReached {
		row.LevelReached = level
	}
	row.UpdatedAt = time.Now()
	return nil
}

func (r *fakeProgressRepo) EnsureJoined(_ context.Context, user string, pool model.PoolType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getOrCreate(user, pool)
	return nil
}

func (r *fakeProgressRepo) ListByUser(_ context.Context, user string) ([]*model.MatrixProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.MatrixProgress
	for _, row := range r.rows {
		if row.UserID == user {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeRewardRepo struct {
	mu   sync.Mutex
	rows map[string]*model.RewardPoints
}

func newFakeRewardRepo() *fakeRewardRepo {
	return &fakeRewardRepo{rows: make(map[string]*model.RewardPoints)}
}

func (r *fakeRewardRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]*model.RewardPoints, len(r.rows))
	for k, v := range r.rows {
		row := *v
		cp[k] = &row
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.rows = cp
	}
}

func (r *fakeRewardRepo) IncrementCount(_ context.Context, user string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[user]
	if !ok {
		row = &model.RewardPoints{UserID: user}
		r.rows[user] = row
	}
	row.QualifyingCount++
	return row.QualifyingCount, nil
}

func (r *fakeRewardRepo) AddPoints(_ context.Context, user string, points int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[user]
	if !ok {
		row = &model.RewardPoints{UserID: user}
		r.rows[user] = row
	}
	row.Points += points
	return nil
}

func (r *fakeRewardRepo) Get(_ context.Context, user string) (*model.RewardPoints, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[user]; ok {
		cp := *row
		return &cp, nil
	}
	return &model.RewardPoints{UserID: user}, nil
}

type fakeWithdrawalRepo struct {
	mu   sync.Mutex
	byID map[string]*model.WithdrawalRequest
}

func newFakeWithdrawalRepo() *fakeWithdrawalRepo {
	return &fakeWithdrawalRepo{byID: make(map[string]*model.WithdrawalRequest)}
}

func (r *fakeWithdrawalRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]*model.WithdrawalRequest, len(r.byID))
	for k, v := range r.byID {
		row := *v
		cp[k] = &row
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.byID = cp
	}
}

func (r *fakeWithdrawalRepo) Insert(_ context.Context, req *model.WithdrawalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.UserID == req.UserID && existing.WindowKey == req.WindowKey && existing.CountsAgainstCooldown {
			return errors.CooldownActive("a withdrawal request already exists for this window")
		}
	}
	cp := *req
	cp.CountsAgainstCooldown = cp.Status != model.WithdrawalRejected
	r.byID[cp.RequestID] = &cp
	return nil
}

func (r *fakeWithdrawalRepo) SetStatusFrom(_ context.Context, requestID string, from []model.WithdrawalStatus, to model.WithdrawalStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.byID[requestID]
	if !ok {
		return errors.NotFound("withdrawal request %s not found", requestID)
	}
	matched := false
	for _, f := range from {
		if row.Status == f {
			matched = true
			break
		}
	}
	if !matched {
		return errors.StateConflict("withdrawal request %s cannot move to %s", requestID, to)
	}
	row.Status = to
	if to == model.WithdrawalRejected {
		row.CountsAgainstCooldown = false
	}
	return nil
}

func (r *fakeWithdrawalRepo) Get(_ context.Context, requestID string) (*model.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.byID[requestID]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, errors.NotFound("withdrawal request %s not found", requestID)
}

func (r *fakeWithdrawalRepo) ListByUser(_ context.Context, user string) ([]*model.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.WithdrawalRequest
	for _, row := range r.byID {
		if row.UserID == user {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeSubmissionRepo struct {
	mu   sync.Mutex
	byID map[string]*model.CouponSubmission
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{byID: make(map[string]*model.CouponSubmission)}
}

func (r *fakeSubmissionRepo) Insert(_ context.Context, sub *model.CouponSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}
	cp := *sub
	r.byID[cp.ID.Hex()] = &cp
	return nil
}

func (r *fakeSubmissionRepo) Advance(_ context.Context, id string, from, to model.SubmissionStatus, linkedCode string) (*model.CouponSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.byID[id]
	if !ok {
		return nil, errors.NotFound("submission %s not found", id)
	}
	if row.Status != from {
		return nil, errors.StateConflict("submission %s is not in status %s", id, from)
	}
	row.Status = to
	if linkedCode != "" {
		row.LinkedCode = linkedCode
	}
	row.UpdatedAt = time.Now()
	cp := *row
	return &cp, nil
}

func (r *fakeSubmissionRepo) Get(_ context.Context, id string) (*model.CouponSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.byID[id]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, errors.NotFound("submission %s not found", id)
}

type fakeScheduleRepo struct {
	mu sync.Mutex
	s  *model.Schedule
}

func (r *fakeScheduleRepo) Current(_ context.Context) (*model.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.s == nil {
		return nil, errors.NotFound("no schedule configured")
	}
	return r.s, nil
}

func (r *fakeScheduleRepo) Put(_ context.Context, s *model.Schedule) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s = s
	return nil
}
