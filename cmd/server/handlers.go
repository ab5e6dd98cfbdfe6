package main

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"couponnet/internal/model"
	"couponnet/internal/repository"
	"couponnet/internal/service"
	"couponnet/pkg/errors"
)

type server struct {
	assignments *service.AssignmentService
	lifecycle   *service.LifecycleService
	wallets     *service.WalletService
	withdrawals *service.WithdrawalService
	matrix      *service.MatrixEngine
	rewards     *service.RewardEngine
	submissions *service.SubmissionService
	schedules   repository.ScheduleRepository
	logger      *zap.Logger
}

func setupRouter(s *server) *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.POST("/coupons/batches", s.mintBatch)
		api.POST("/coupons/assign-employee", s.assignEmployee)
		api.POST("/coupons/assign", s.assignConsumer)
		api.POST("/coupons/assign-by-count", s.assignByCount)
		api.POST("/coupons/activate", s.activate)
		api.POST("/coupons/redeem", s.redeem)
		api.POST("/coupons/transfer", s.transfer)
		api.POST("/coupons/:code/reject", s.rejectCode)

		api.GET("/wallet", s.getWallet)
		api.GET("/wallet/entries", s.getWalletEntries)
		api.GET("/matrix-progress", s.getMatrixProgress)
		api.GET("/rewards", s.getRewards)

		api.POST("/withdrawals", s.requestWithdrawal)
		api.GET("/withdrawals", s.listWithdrawals)
		api.POST("/withdrawals/:id/approve", s.approveWithdrawal)
		api.POST("/withdrawals/:id/reject", s.rejectWithdrawal)
		api.POST("/withdrawals/:id/paid", s.settleWithdrawal)

		api.POST("/submissions", s.createSubmission)
		api.POST("/submissions/:id/employee-approve", s.employeeApprove)
		api.POST("/submissions/:id/agency-approve", s.agencyApprove)
		api.POST("/submissions/:id/reject", s.rejectSubmission)

		api.PUT("/admin/schedule", s.putSchedule)
	}

	return router
}

// callerID reads the authenticated identity set by the upstream auth layer.
// The core never infers identity from ambient state.
func callerID(c *gin.Context) (string, bool) {
	id := c.GetHeader("X-User-ID")
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return "", false
	}
	return id, true
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch errors.KindOf(err) {
	case errors.KindValidation:
		status = http.StatusBadRequest
	case errors.KindNotFound:
		status = http.StatusNotFound
	case errors.KindStateConflict, errors.KindInsufficientInventory:
		status = http.StatusConflict
	case errors.KindInvalidOperation, errors.KindBelowMinimumBalance,
		errors.KindWindowClosed, errors.KindSponsorInvalid:
		status = http.StatusUnprocessableEntity
	case errors.KindKYCRequired:
		status = http.StatusForbidden
	case errors.KindCooldownActive:
		status = http.StatusTooManyRequests
	}
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
		"kind":  errors.KindOf(err).String(),
	})
}

func (s *server) mintBatch(c *gin.Context) {
	agency, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		Denomination int64 `json:"denomination" binding:"required"`
		Count        int64 `json:"count" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	batchID, err := s.assignments.MintBatch(c.Request.Context(), agency, model.Denomination(req.Denomination), req.Count)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"batch_id": batchID, "count": req.Count})
}

func (s *server) assignEmployee(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	var req struct {
		Code     string `json:"code"`
		BatchID  string `json:"batch_id"`
		Employee string `json:"employee" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.BatchID != "" {
		n, err := s.assignments.AssignBatchToEmployee(c.Request.Context(), req.BatchID, req.Employee)
		if err != nil {
			respondError(c, s.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"assigned": n})
		return
	}
	code, err := s.assignments.AssignToEmployee(c.Request.Context(), req.Code, req.Employee)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, code)
}

func (s *server) assignConsumer(c *gin.Context) {
	employee, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		Code             string `json:"code" binding:"required"`
		ConsumerUsername string `json:"consumer_username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	code, err := s.assignments.AssignToConsumer(c.Request.Context(), req.Code, employee, req.ConsumerUsername)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, code)
}

func (s *server) assignByCount(c *gin.Context) {
	employee, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		ConsumerUsername string `json:"consumer_username" binding:"required"`
		Count            int64  `json:"count" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	n, err := s.assignments.AssignByCount(c.Request.Context(), employee, req.ConsumerUsername, req.Count)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assigned": n})
}

func (s *server) activate(c *gin.Context) {
	consumer, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := s.lifecycle.Activate(c.Request.Context(), req.Code, consumer)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *server) redeem(c *gin.Context) {
	consumer, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := s.lifecycle.Redeem(c.Request.Context(), req.Code, consumer)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *server) transfer(c *gin.Context) {
	consumer, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		Code       string `json:"code" binding:"required"`
		ToUsername string `json:"to_username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	successor, err := s.lifecycle.Transfer(c.Request.Context(), req.Code, consumer, req.ToUsername)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, successor)
}

func (s *server) rejectCode(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	code, err := s.lifecycle.Reject(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, code)
}

func (s *server) getWallet(c *gin.Context) {
	user, ok := callerID(c)
	if !ok {
		return
	}
	w, err := s.wallets.Get(c.Request.Context(), user)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (s *server) getWalletEntries(c *gin.Context) {
	user, ok := callerID(c)
	if !ok {
		return
	}
	entries, err := s.wallets.Entries(c.Request.Context(), user)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *server) getMatrixProgress(c *gin.Context) {
	user, ok := callerID(c)
	if !ok {
		return
	}
	progress, err := s.matrix.Progress(c.Request.Context(), user)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (s *server) getRewards(c *gin.Context) {
	user, ok := callerID(c)
	if !ok {
		return
	}
	standing, err := s.rewards.Standing(c.Request.Context(), user)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, standing)
}

func (s *server) requestWithdrawal(c *gin.Context) {
	user, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		AmountPaise int64  `json:"amount_paise" binding:"required"`
		Method      string `json:"method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	wr, err := s.withdrawals.Request(c.Request.Context(), user, req.AmountPaise, req.Method)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, wr)
}

func (s *server) listWithdrawals(c *gin.Context) {
	user, ok := callerID(c)
	if !ok {
		return
	}
	reqs, err := s.withdrawals.History(c.Request.Context(), user)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

func (s *server) approveWithdrawal(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	if err := s.withdrawals.Approve(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

func (s *server) rejectWithdrawal(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	if err := s.withdrawals.Reject(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

func (s *server) settleWithdrawal(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	if err := s.withdrawals.MarkPaid(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paid"})
}

func (s *server) createSubmission(c *gin.Context) {
	consumer, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		Code       string `json:"code" binding:"required"`
		TRUsername string `json:"tr_username" binding:"required"`
		EvidenceID string `json:"evidence_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	sub, err := s.submissions.Submit(c.Request.Context(), consumer, req.Code, req.TRUsername, req.EvidenceID)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (s *server) employeeApprove(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	sub, err := s.submissions.ApproveByEmployee(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *server) agencyApprove(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	sub, err := s.submissions.ApproveByAgency(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *server) rejectSubmission(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	sub, err := s.submissions.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *server) putSchedule(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	var sched model.Schedule
	if err := c.ShouldBindJSON(&sched); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := s.schedules.Put(c.Request.Context(), &sched); err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"version": sched.Version})
}
