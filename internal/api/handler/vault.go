package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bandhub/bandhub/internal/api/middleware"
	"github.com/bandhub/bandhub/internal/api/response"
	"github.com/bandhub/bandhub/internal/api/validation"
	"github.com/bandhub/bandhub/internal/auth"
	"github.com/bandhub/bandhub/internal/band"
	"github.com/bandhub/bandhub/internal/vault"
)

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type createVaultRequest struct {
	BandID         string `json:"bandId"`
	RewardShareBps int    `json:"rewardShareBps"`
}

type withdrawalRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination"`
}

type transitionRequest struct {
	TxHash *string `json:"txHash"`
	Note   string  `json:"note"`
}

type stakeResponse struct {
	ID        string `json:"id"`
	VaultID   string `json:"vaultId"`
	UserID    string `json:"userId"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type walletResponse struct {
	UserID         string          `json:"userId"`
	Balance        string          `json:"balance"`
	OnChainBalance *string         `json:"onChainBalance"`
	Stakes         []stakeResponse `json:"stakes"`
	UpdatedAt      string          `json:"updatedAt"`
}

type vaultResponse struct {
	ID             string `json:"id"`
	BandID         string `json:"bandId"`
	BandName       string `json:"bandName"`
	Treasury       string `json:"treasury"`
	TotalStaked    string `json:"totalStaked"`
	RewardShareBps int    `json:"rewardShareBps"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

type vaultTransactionResponse struct {
	ID             string  `json:"id"`
	VaultID        string  `json:"vaultId"`
	UserID         *string `json:"userId"`
	DistributionID *string `json:"distributionId"`
	Kind           string  `json:"kind"`
	Amount         string  `json:"amount"`
	CreatedAt      string  `json:"createdAt"`
}

type distributionResponse struct {
	ID          string `json:"id"`
	VaultID     string `json:"vaultId"`
	TotalAmount string `json:"totalAmount"`
	Stakers     int    `json:"stakers"`
	TriggeredBy string `json:"triggeredBy"`
	CreatedAt   string `json:"createdAt"`
}

type withdrawalResponse struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Amount      string  `json:"amount"`
	Destination string  `json:"destination"`
	Status      string  `json:"status"`
	TxHash      *string `json:"txHash"`
	Note        string  `json:"note"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
	ProcessedAt *string `json:"processedAt"`
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toStakeResponse(s *vault.Stake) stakeResponse {
	return stakeResponse{
		ID:        s.ID.String(),
		VaultID:   s.VaultID.String(),
		UserID:    s.UserID.String(),
		Amount:    formatAmount(s.Amount),
		Status:    s.Status,
		CreatedAt: formatTime(s.CreatedAt),
		UpdatedAt: formatTime(s.UpdatedAt),
	}
}

func toVaultResponse(v *vault.Vault) vaultResponse {
	return vaultResponse{
		ID:             v.ID.String(),
		BandID:         v.BandID.String(),
		BandName:       v.BandName,
		Treasury:       formatAmount(v.Treasury),
		TotalStaked:    formatAmount(v.TotalStaked),
		RewardShareBps: v.RewardShareBps,
		CreatedAt:      formatTime(v.CreatedAt),
		UpdatedAt:      formatTime(v.UpdatedAt),
	}
}

func toDistributionResponse(d *vault.Distribution) distributionResponse {
	return distributionResponse{
		ID:          d.ID.String(),
		VaultID:     d.VaultID.String(),
		TotalAmount: formatAmount(d.TotalAmount),
		Stakers:     d.Stakers,
		TriggeredBy: d.TriggeredBy,
		CreatedAt:   formatTime(d.CreatedAt),
	}
}

func toWithdrawalResponse(w *vault.Withdrawal) withdrawalResponse {
	return withdrawalResponse{
		ID:          w.ID.String(),
		UserID:      w.UserID.String(),
		Amount:      formatAmount(w.Amount),
		Destination: w.Destination,
		Status:      w.Status,
		TxHash:      w.TxHash,
		Note:        w.Note,
		CreatedAt:   formatTime(w.CreatedAt),
		UpdatedAt:   formatTime(w.UpdatedAt),
		ProcessedAt: formatTimePtr(w.ProcessedAt),
	}
}

func toWithdrawalResponses(ws []vault.Withdrawal) []withdrawalResponse {
	items := make([]withdrawalResponse, 0, len(ws))
	for i := range ws {
		items = append(items, toWithdrawalResponse(&ws[i]))
	}
	return items
}

// VaultHandler handles wallets, vaults, staking and withdrawals.
type VaultHandler struct {
	svc   *vault.Service
	users auth.UserRepository
}

// NewVaultHandler creates a new VaultHandler.
func NewVaultHandler(svc *vault.Service, users auth.UserRepository) *VaultHandler {
	return &VaultHandler{svc: svc, users: users}
}

// Wallet handles GET /wallet.
func (h *VaultHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	u, err := h.users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	view, err := h.svc.Wallet(r.Context(), identity.UserID, u.StellarAddress)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	resp := walletResponse{
		UserID:    identity.UserID.String(),
		Balance:   formatAmount(view.Wallet.Balance),
		Stakes:    make([]stakeResponse, 0, len(view.Stakes)),
		UpdatedAt: formatTime(view.Wallet.UpdatedAt),
	}
	if view.OnChain != nil {
		s := formatAmount(*view.OnChain)
		resp.OnChainBalance = &s
	}
	for i := range view.Stakes {
		resp.Stakes = append(resp.Stakes, toStakeResponse(&view.Stakes[i]))
	}

	response.Success(w, http.StatusOK, resp, requestID)
}

// RequestWithdrawal handles POST /wallet/withdrawals. The destination defaults
// to the Stellar address on the caller's account.
func (h *VaultHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req withdrawalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Destination == "" {
		u, err := h.users.GetByID(r.Context(), identity.UserID)
		if err != nil {
			h.writeError(w, err, requestID)
			return
		}
		if u.StellarAddress != nil {
			req.Destination = *u.StellarAddress
		}
	}
	if validationFailed(w, r, validation.ValidateWithdrawal(req.Amount, req.Destination)) {
		return
	}

	wd, err := h.svc.RequestWithdrawal(r.Context(), identity.UserID, req.Amount, req.Destination)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, toWithdrawalResponse(wd), requestID)
}

// ListMyWithdrawals handles GET /wallet/withdrawals.
func (h *VaultHandler) ListMyWithdrawals(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	ws, err := h.svc.ListWithdrawalsByUser(r.Context(), identity.UserID)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	items := toWithdrawalResponses(ws)
	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// Create handles POST /vaults.
func (h *VaultHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req createVaultRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateCreateVault(req.BandID, req.RewardShareBps)) {
		return
	}

	v, err := h.svc.CreateVault(r.Context(), identity.UserID, identity.IsAdmin(), uuid.MustParse(req.BandID), req.RewardShareBps)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, toVaultResponse(v), requestID)
}

// List handles GET /vaults.
func (h *VaultHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	vaults, err := h.svc.ListVaults(r.Context())
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	items := make([]vaultResponse, 0, len(vaults))
	for i := range vaults {
		items = append(items, toVaultResponse(&vaults[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// GetByID handles GET /vaults/{id}.
func (h *VaultHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	v, err := h.svc.GetVault(r.Context(), id)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toVaultResponse(v), requestID)
}

// Deposit handles POST /vaults/{id}/deposits.
func (h *VaultHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, amount, ok := h.amountRequest(w, r)
	if !ok {
		return
	}

	v, err := h.svc.Deposit(r.Context(), identity.UserID, identity.IsAdmin(), id, amount)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toVaultResponse(v), requestID)
}

// Stake handles POST /vaults/{id}/stakes.
func (h *VaultHandler) Stake(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, amount, ok := h.amountRequest(w, r)
	if !ok {
		return
	}

	s, err := h.svc.Stake(r.Context(), identity.UserID, id, amount)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toStakeResponse(s), requestID)
}

// Unstake handles POST /vaults/{id}/unstake.
func (h *VaultHandler) Unstake(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, amount, ok := h.amountRequest(w, r)
	if !ok {
		return
	}

	s, err := h.svc.Unstake(r.Context(), identity.UserID, id, amount)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toStakeResponse(s), requestID)
}

// Stakes handles GET /vaults/{id}/stakes.
func (h *VaultHandler) Stakes(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	stakes, err := h.svc.ListStakes(r.Context(), id)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	items := make([]stakeResponse, 0, len(stakes))
	for i := range stakes {
		items = append(items, toStakeResponse(&stakes[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// Transactions handles GET /vaults/{id}/transactions?limit=N.
func (h *VaultHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	limit := min(queryInt(r, "limit", 50), 500)

	txs, err := h.svc.ListTransactions(r.Context(), id, limit)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	items := make([]vaultTransactionResponse, 0, len(txs))
	for _, tx := range txs {
		items = append(items, vaultTransactionResponse{
			ID:             tx.ID.String(),
			VaultID:        tx.VaultID.String(),
			UserID:         uuidPtrString(tx.UserID),
			DistributionID: uuidPtrString(tx.DistributionID),
			Kind:           tx.Kind,
			Amount:         formatAmount(tx.Amount),
			CreatedAt:      formatTime(tx.CreatedAt),
		})
	}

	response.SuccessList(w, http.StatusOK, items, len(items), 1, limit, requestID)
}

// Distributions handles GET /vaults/{id}/distributions.
func (h *VaultHandler) Distributions(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	dists, err := h.svc.ListDistributions(r.Context(), id)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	items := make([]distributionResponse, 0, len(dists))
	for i := range dists {
		items = append(items, toDistributionResponse(&dists[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// Distribute handles POST /admin/vaults/{id}/distributions.
func (h *VaultHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	d, err := h.svc.Distribute(r.Context(), id, vault.TriggerAdmin)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, toDistributionResponse(d), requestID)
}

// Credit handles POST /admin/wallets/{userId}/credits.
func (h *VaultHandler) Credit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	userID, ok := urlID(w, r, "userId")
	if !ok {
		return
	}

	var req amountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateAmount(req.Amount)) {
		return
	}

	wallet, err := h.svc.Credit(r.Context(), userID, req.Amount)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, walletResponse{
		UserID:    wallet.UserID.String(),
		Balance:   formatAmount(wallet.Balance),
		Stakes:    []stakeResponse{},
		UpdatedAt: formatTime(wallet.UpdatedAt),
	}, requestID)
}

// ListWithdrawals handles GET /admin/withdrawals?status=.
func (h *VaultHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	status := r.URL.Query().Get("status")
	switch status {
	case "", vault.WithdrawalPending, vault.WithdrawalProcessing, vault.WithdrawalCompleted, vault.WithdrawalRejected:
	default:
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "status", Message: "status must be one of: pending, processing, completed, rejected"}}, requestID)
		return
	}

	ws, err := h.svc.ListWithdrawals(r.Context(), status)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	items := toWithdrawalResponses(ws)
	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// Process handles POST /admin/withdrawals/{id}/process.
func (h *VaultHandler) Process(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, vault.WithdrawalProcessing)
}

// Complete handles POST /admin/withdrawals/{id}/complete.
func (h *VaultHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, vault.WithdrawalCompleted)
}

// Reject handles POST /admin/withdrawals/{id}/reject. The wallet is refunded.
func (h *VaultHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, vault.WithdrawalRejected)
}

func (h *VaultHandler) transition(w http.ResponseWriter, r *http.Request, to string) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req transitionRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateTransition(req.TxHash, req.Note)) {
		return
	}

	wd, err := h.svc.TransitionWithdrawal(r.Context(), id, to, req.TxHash, req.Note, "admin")
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toWithdrawalResponse(wd), requestID)
}

func (h *VaultHandler) amountRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, decimal.Decimal, bool) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return uuid.Nil, decimal.Zero, false
	}

	var req amountRequest
	if !decodeBody(w, r, &req) {
		return uuid.Nil, decimal.Zero, false
	}
	if validationFailed(w, r, validation.ValidateAmount(req.Amount)) {
		return uuid.Nil, decimal.Zero, false
	}
	return id, req.Amount, true
}

func (h *VaultHandler) writeError(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, vault.ErrVaultNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Vault not found", requestID)
	case errors.Is(err, band.ErrBandNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Band not found", requestID)
	case errors.Is(err, vault.ErrWithdrawalNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Withdrawal not found", requestID)
	case errors.Is(err, vault.ErrUserNotFound), errors.Is(err, auth.ErrUserNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "User not found", requestID)
	case errors.Is(err, vault.ErrStakeNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "No active stake in this vault", requestID)
	case errors.Is(err, vault.ErrForbidden):
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "Only the band owner can manage this vault", requestID)
	case errors.Is(err, vault.ErrVaultExists):
		response.Err(w, http.StatusConflict, "VAULT_EXISTS", "This band already has a vault", requestID)
	case errors.Is(err, vault.ErrInsufficientFunds):
		response.Err(w, http.StatusConflict, "INSUFFICIENT_FUNDS", "Wallet balance is too low", requestID)
	case errors.Is(err, vault.ErrAmountOutOfRange):
		response.Err(w, http.StatusConflict, "AMOUNT_OUT_OF_RANGE", "Resulting balance exceeds the maximum amount", requestID)
	case errors.Is(err, vault.ErrInsufficientStake):
		response.Err(w, http.StatusConflict, "INSUFFICIENT_STAKE", "Amount exceeds your stake", requestID)
	case errors.Is(err, vault.ErrInvalidTransition):
		response.Err(w, http.StatusConflict, "INVALID_TRANSITION", "Withdrawal cannot move to that status", requestID)
	case errors.Is(err, vault.ErrNothingToDistribute):
		response.Err(w, http.StatusConflict, "NOTHING_TO_DISTRIBUTE", "The vault has no reward pool or no stakers", requestID)
	case errors.Is(err, vault.ErrInvalidAmount):
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "amount", Message: err.Error()}}, requestID)
	default:
		slog.Error("vault request failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Vault request failed", requestID)
	}
}
