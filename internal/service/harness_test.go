package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"couponnet/internal/model"
)

// testStack wires every service over the in-memory fakes with a known
// schedule: 10% withholding, ₹10 redemption fee, fixed amounts on the
// shallow levels and percents below them.
type testStack struct {
	codes           *fakeCodeRepo
	walletRepo      *fakeWalletRepo
	ledgerRepo      *fakeLedgerRepo
	progressRepo    *fakeProgressRepo
	rewardRepo      *fakeRewardRepo
	withdrawalRepo  *fakeWithdrawalRepo
	submissionRepo  *fakeSubmissionRepo
	scheduleRepo    *fakeScheduleRepo
	dir             *fakeDirectory
	tx              *fakeTx

	lifecycle   *LifecycleService
	assignments *AssignmentService
	wallets     *WalletService
	matrix      *MatrixEngine
	generation  *GenerationEngine
	rewards     *RewardEngine
	submissions *SubmissionService
}

func testSchedule() *model.Schedule {
	threeFixed := make([]int64, 15)
	threePct := make([]float64, 15)
	threeFixed[0] = 1000
	threeFixed[1] = 500
	for i := 2; i < 15; i++ {
		threePct[i] = 1
	}
	return &model.Schedule{
		Version: 1,
		Pools: map[model.PoolType]model.LevelSchedule{
			model.FiveMatrix: {
				Levels:            6,
				FixedAmountsPaise: []int64{5000, 3000, 2000, 1000, 0, 0},
				Percents:          []float64{0, 0, 0, 0, 2.5, 1.25},
			},
			model.ThreeMatrix: {
				Levels:            15,
				FixedAmountsPaise: threeFixed,
				Percents:          threePct,
			},
		},
		Generations: model.LevelSchedule{
			Levels:            model.GenerationLevels,
			FixedAmountsPaise: []int64{2000, 1000, 500, 0, 0},
			Percents:          []float64{0, 0, 0, 2, 1},
		},
		RewardTiers:        []model.RewardTier{{Count: 2, Points: 50}, {Count: 4, Points: 200}},
		BaseCount:          4,
		PerCouponPoints:    10,
		TaxPercent:         10,
		RedemptionFeePaise: 1000,
		CreatedAt:          time.Now(),
	}
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	st := &testStack{
		codes:          newFakeCodeRepo(),
		walletRepo:     newFakeWalletRepo(),
		ledgerRepo:     &fakeLedgerRepo{},
		progressRepo:   newFakeProgressRepo(),
		rewardRepo:     newFakeRewardRepo(),
		withdrawalRepo: newFakeWithdrawalRepo(),
		submissionRepo: newFakeSubmissionRepo(),
		scheduleRepo:   &fakeScheduleRepo{},
		dir:            newFakeDirectory(),
	}
	st.tx = &fakeTx{stores: []snapshotter{
		st.codes, st.walletRepo, st.ledgerRepo, st.progressRepo, st.rewardRepo, st.withdrawalRepo,
	}}
	require.NoError(t, st.scheduleRepo.Put(context.Background(), testSchedule()))

	logger := zap.NewNop()
	st.matrix = NewMatrixEngine(st.dir, st.ledgerRepo, st.walletRepo, st.progressRepo, logger)
	st.generation = NewGenerationEngine(st.dir, st.ledgerRepo, st.walletRepo)
	st.rewards = NewRewardEngine(st.rewardRepo)
	st.lifecycle = NewLifecycleService(st.codes, st.walletRepo, st.ledgerRepo, st.scheduleRepo, st.dir, st.matrix, st.generation, st.rewards, st.tx, logger)
	st.assignments = NewAssignmentService(st.codes, st.dir, st.tx, logger)
	st.wallets = NewWalletService(st.walletRepo, st.ledgerRepo)
	st.submissions = NewSubmissionService(st.submissionRepo, st.dir)
	return st
}

// seedCode drops a code straight into the store in the given state.
func (st *testStack) seedCode(t *testing.T, code string, denom model.Denomination, status model.CodeStatus, employee, consumer string) {
	t.Helper()
	err := st.codes.CreateBatch(context.Background(), []*model.CouponCode{{
		Code:             code,
		Denomination:     denom,
		Status:           status,
		AssignedEmployee: employee,
		AssignedConsumer: consumer,
		BatchID:          "seed",
	}})
	require.NoError(t, err)
}

// user registers a username/id pair; sponsor links the user under an
// upline.
func (st *testStack) user(username, id string) {
	st.dir.usernames[username] = id
}

func (st *testStack) sponsor(user, sponsor string) {
	st.dir.sponsors[user] = sponsor
}

func (st *testStack) newWithdrawalService(now func() time.Time) *WithdrawalService {
	return NewWithdrawalService(st.walletRepo, st.withdrawalRepo, st.dir, st.tx, time.UTC, now, zap.NewNop())
}
