package handler

import (
	"context"
	"net/http"
	"time"

	treasuryapp "github.com/erp/treasury/internal/application/treasury"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/erp/treasury/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepositoryHandler handles fund repository and ledger endpoints
type RepositoryHandler struct {
	BaseHandler
	repositories *treasuryapp.FundRepositoryService
	ledger       *treasuryapp.LedgerService
}

// NewRepositoryHandler creates a new RepositoryHandler
func NewRepositoryHandler(repositories *treasuryapp.FundRepositoryService, ledger *treasuryapp.LedgerService) *RepositoryHandler {
	return &RepositoryHandler{repositories: repositories, ledger: ledger}
}

// RegisterRoutes mounts repository routes on the API group
func (h *RepositoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/repositories", h.Create)
	rg.GET("/repositories", h.List)
	rg.GET("/repositories/:id", h.GetByID)
	rg.GET("/repositories/:id/balance", h.GetBalance)
	rg.GET("/repositories/:id/ledger", h.GetLedger)
	rg.POST("/repositories/:id/activate", h.Activate)
	rg.POST("/repositories/:id/deactivate", h.Deactivate)
	rg.POST("/repositories/:id/rebuild-balance", h.RebuildBalance)
	rg.POST("/repositories/transfer", h.Transfer)
}

// BankDetailsRequest carries bank account identification
type BankDetailsRequest struct {
	BankName      string `json:"bank_name" binding:"required,max=200"`
	BranchCode    string `json:"branch_code" binding:"max=50"`
	AccountNumber string `json:"account_number" binding:"max=50"`
	IBAN          string `json:"iban" binding:"max=34"`
}

// CreateRepositoryRequest is the request body for registering a fund
// repository
type CreateRepositoryRequest struct {
	Code        string              `json:"code" binding:"required,min=1,max=50"`
	Name        string              `json:"name" binding:"required,min=1,max=200"`
	Type        string              `json:"type" binding:"required"`
	BankDetails *BankDetailsRequest `json:"bank_details"`
}

// Create registers a new fund repository with a zero balance
func (h *RepositoryHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req CreateRepositoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	var bank *treasury.BankDetails
	if req.BankDetails != nil {
		bank = &treasury.BankDetails{
			BankName:      req.BankDetails.BankName,
			BranchCode:    req.BankDetails.BranchCode,
			AccountNumber: req.BankDetails.AccountNumber,
			IBAN:          req.BankDetails.IBAN,
		}
	}

	fr, err := h.repositories.CreateRepository(c.Request.Context(), treasuryapp.CreateFundRepositoryRequest{
		TenantID:    tenantID,
		Code:        req.Code,
		Name:        req.Name,
		Type:        treasury.FundRepositoryType(req.Type),
		BankDetails: bank,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, fr)
}

// List returns every fund repository for the tenant
func (h *RepositoryHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	repos, err := h.repositories.ListRepositories(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, repos)
}

// GetByID returns one fund repository
func (h *RepositoryHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	repositoryID, ok := h.pathID(c)
	if !ok {
		return
	}

	fr, err := h.repositories.GetRepository(c.Request.Context(), tenantID, repositoryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, fr)
}

// GetBalance returns the cached running balance of a repository
func (h *RepositoryHandler) GetBalance(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	repositoryID, ok := h.pathID(c)
	if !ok {
		return
	}

	fr, err := h.repositories.GetRepository(c.Request.Context(), tenantID, repositoryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"repository_id": fr.ID,
		"code":          fr.Code,
		"balance":       fr.Balance,
	})
}

// GetLedger returns a repository's entry log, optionally bounded by
// from/to dates
func (h *RepositoryHandler) GetLedger(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	repositoryID, ok := h.pathID(c)
	if !ok {
		return
	}

	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid from, expected YYYY-MM-DD")
			return
		}
		from = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid to, expected YYYY-MM-DD")
			return
		}
		to = &t
	}

	entries, err := h.repositories.Ledger(c.Request.Context(), tenantID, repositoryID, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// Activate re-enables a deactivated repository
func (h *RepositoryHandler) Activate(c *gin.Context) {
	h.toggleActive(c, h.repositories.Activate)
}

// Deactivate stops a repository from accepting new movements
func (h *RepositoryHandler) Deactivate(c *gin.Context) {
	h.toggleActive(c, h.repositories.Deactivate)
}

func (h *RepositoryHandler) toggleActive(c *gin.Context, op func(ctx context.Context, tenantID, repositoryID uuid.UUID) (*treasury.FundRepository, error)) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	repositoryID, ok := h.pathID(c)
	if !ok {
		return
	}

	fr, err := op(c.Request.Context(), tenantID, repositoryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, fr)
}

// RebuildBalance replays the entry log and reconciles the cached balance
func (h *RepositoryHandler) RebuildBalance(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	repositoryID, ok := h.pathID(c)
	if !ok {
		return
	}

	balance, err := h.ledger.RebuildBalance(c.Request.Context(), tenantID, repositoryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"repository_id": repositoryID,
		"balance":       balance,
	})
}

// TransferRequest is the request body for moving funds between
// repositories
type TransferRequest struct {
	FromRepositoryID uuid.UUID       `json:"from_repository_id" binding:"required"`
	ToRepositoryID   uuid.UUID       `json:"to_repository_id" binding:"required"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	CorrelationID    string          `json:"correlation_id" binding:"required,max=100"`
}

// Transfer debits the source and credits the target atomically
func (h *RepositoryHandler) Transfer(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req TransferRequest
	if !h.bindJSON(c, &req) {
		return
	}

	err := h.ledger.Transfer(c.Request.Context(), treasuryapp.TransferRequest{
		TenantID:         tenantID,
		FromRepositoryID: req.FromRepositoryID,
		ToRepositoryID:   req.ToRepositoryID,
		Amount:           req.Amount,
		CorrelationID:    req.CorrelationID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
