package httphandlers

import (
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slices"

	"github.com/Ghravitee/dex-court-sub000/internal/agreementmanager"
	"github.com/Ghravitee/dex-court-sub000/internal/orchestrator"
	"github.com/Ghravitee/dex-court-sub000/internal/repositories/contracts"
	"github.com/Ghravitee/dex-court-sub000/internal/resources/escrow"
)

func (h *HTTPHandler) GetAgreements(ctx *gin.Context) {
	data := []AgreementResponse{}
	h.manager.Range(func(w *agreementmanager.AgreementWatcher) bool {
		if resp := h.mapAgreement(w); resp != nil {
			data = append(data, *resp)
		}
		return true
	})

	slices.SortStableFunc(data, func(a AgreementResponse, b AgreementResponse) bool {
		return a.ID < b.ID
	})

	ctx.JSON(200, data)
}

func (h *HTTPHandler) GetAgreement(ctx *gin.Context) {
	id, ok := parseAgreementID(ctx)
	if !ok {
		return
	}

	watcher := h.manager.GetWatcher(id)
	if watcher == nil {
		ctx.JSON(404, gin.H{"error": "agreement is not watched"})
		return
	}

	resp := h.mapAgreement(watcher)
	if resp == nil {
		ctx.JSON(404, gin.H{"error": "agreement snapshot not available"})
		return
	}
	ctx.JSON(200, resp)
}

func (h *HTTPHandler) WatchAgreement(ctx *gin.Context) {
	id, ok := parseAgreementID(ctx)
	if !ok {
		return
	}

	_, err := h.manager.Watch(ctx, id)
	if err != nil {
		if errors.Is(err, escrow.ErrAgreementNotFound) {
			ctx.JSON(404, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(502, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{"status": "ok"})
}

func (h *HTTPHandler) UnwatchAgreement(ctx *gin.Context) {
	id, ok := parseAgreementID(ctx)
	if !ok {
		return
	}
	h.manager.Unwatch(id)
	ctx.JSON(200, gin.H{"status": "ok"})
}

// CheckAction evaluates an action against the current snapshot without
// submitting anything
func (h *HTTPHandler) CheckAction(ctx *gin.Context) {
	id, ok := parseAgreementID(ctx)
	if !ok {
		return
	}
	req, ok := parseActionRequest(ctx, ctx.Query("action"))
	if !ok {
		return
	}

	watcher := h.manager.GetWatcher(id)
	if watcher == nil || watcher.Snapshot() == nil {
		ctx.JSON(404, gin.H{"error": "agreement is not watched"})
		return
	}

	verdict := escrow.Evaluate(watcher.Snapshot(), req, time.Now())
	ctx.JSON(200, VerdictResponse{
		Action:  string(req.Action),
		Allowed: verdict.Allowed,
		Reason:  verdict.Reason,
	})
}

func (h *HTTPHandler) ExecuteAction(ctx *gin.Context) {
	id, ok := parseAgreementID(ctx)
	if !ok {
		return
	}
	req, ok := parseActionRequest(ctx, ctx.Param("action"))
	if !ok {
		return
	}

	flow, err := h.orchestrator.Execute(ctx, id, req)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, orchestrator.ErrFlowInProgress), errors.Is(err, orchestrator.ErrFlowNotIdle):
			status = http.StatusConflict
		case errors.Is(err, escrow.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, escrow.ErrStaleState):
			status = http.StatusServiceUnavailable
		}
		resp := gin.H{"error": err.Error()}
		if flow != nil {
			resp["flow"] = mapFlow(flow)
		}
		ctx.JSON(status, resp)
		return
	}

	ctx.JSON(200, mapFlow(flow))
}

func (h *HTTPHandler) GetFlow(ctx *gin.Context) {
	id, ok := parseAgreementID(ctx)
	if !ok {
		return
	}
	action, ok := escrow.ParseAction(ctx.Param("action"))
	if !ok {
		ctx.JSON(400, gin.H{"error": "unknown action"})
		return
	}

	flow, ok := h.orchestrator.GetFlow(id, action)
	if !ok {
		ctx.JSON(404, gin.H{"error": "flow not found"})
		return
	}
	ctx.JSON(200, mapFlow(flow))
}

func (h *HTTPHandler) ResetFlow(ctx *gin.Context) {
	id, ok := parseAgreementID(ctx)
	if !ok {
		return
	}
	action, ok := escrow.ParseAction(ctx.Param("action"))
	if !ok {
		ctx.JSON(400, gin.H{"error": "unknown action"})
		return
	}

	if !h.orchestrator.Reset(id, action) {
		ctx.JSON(409, gin.H{"error": "flow is not in the error state"})
		return
	}
	ctx.JSON(200, gin.H{"status": "ok"})
}

// GetTransaction resolves a confirmed transaction hash back to the
// action that produced it. Only recently confirmed writes are tracked
func (h *HTTPHandler) GetTransaction(ctx *gin.Context) {
	raw := ctx.Param("hash")
	if len(raw) != 66 || !strings.HasPrefix(raw, "0x") {
		ctx.JSON(400, gin.H{"error": "invalid transaction hash"})
		return
	}

	action, ok := h.orchestrator.RecentAction(common.HexToHash(raw))
	if !ok {
		ctx.JSON(404, gin.H{"error": "transaction not tracked"})
		return
	}
	ctx.JSON(200, gin.H{"txHash": common.HexToHash(raw).Hex(), "action": string(action)})
}

func (h *HTTPHandler) CreateAgreement(ctx *gin.Context) {
	var body CreateAgreementRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	amount, ok := new(big.Int).SetString(body.Amount, 10)
	if !ok {
		ctx.JSON(400, gin.H{"error": "invalid amount"})
		return
	}
	deadline, err := time.ParseDuration(body.DeadlineDuration)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	offsets := make([]time.Duration, len(body.Offsets))
	for i, s := range body.Offsets {
		offsets[i], err = time.ParseDuration(s)
		if err != nil {
			ctx.JSON(400, gin.H{"error": err.Error()})
			return
		}
	}

	token := escrow.NativeAsset
	if body.Token != "" {
		token = common.HexToAddress(body.Token)
	}

	params := contracts.CreateAgreementParams{
		Provider:         common.HexToAddress(body.Provider),
		Recipient:        common.HexToAddress(body.Recipient),
		Token:            token,
		Amount:           amount,
		DeadlineDuration: deadline,
		PrivateMode:      body.PrivateMode,
		FundUpfront:      body.FundUpfront,
	}

	tx, err := h.orchestrator.CreateAgreement(ctx, params, body.Percents, offsets)
	if err != nil {
		if errors.Is(err, escrow.ErrValidation) {
			ctx.JSON(400, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(502, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{"status": "ok", "txHash": tx.Hash().Hex()})
}

func parseAgreementID(ctx *gin.Context) (*big.Int, bool) {
	raw := ctx.Param("ID")
	if raw == "" {
		ctx.JSON(400, gin.H{"error": "agreement id is required"})
		return nil, false
	}
	id, ok := new(big.Int).SetString(raw, 10)
	if !ok || id.Sign() <= 0 {
		ctx.JSON(400, gin.H{"error": "invalid agreement id"})
		return nil, false
	}
	return id, true
}

func parseActionRequest(ctx *gin.Context, rawAction string) (escrow.Request, bool) {
	action, ok := escrow.ParseAction(rawAction)
	if !ok {
		ctx.JSON(400, gin.H{"error": "unknown action"})
		return escrow.Request{}, false
	}

	req := escrow.Request{
		Action: action,
		Caller: common.HexToAddress(ctx.Query("caller")),
		Final:  ctx.Query("final") == "true",
		Hold:   ctx.Query("hold") == "true",
	}

	if raw := ctx.Query("milestoneIndex"); raw != "" {
		index, ok := new(big.Int).SetString(raw, 10)
		if !ok || !index.IsInt64() {
			ctx.JSON(400, gin.H{"error": "invalid milestone index"})
			return escrow.Request{}, false
		}
		req.MilestoneIndex = int(index.Int64())
	}

	return req, true
}

func (h *HTTPHandler) mapAgreement(w *agreementmanager.AgreementWatcher) *AgreementResponse {
	snap := w.Snapshot()
	if snap == nil || snap.Agreement == nil {
		return nil
	}
	a := snap.Agreement

	resp := &AgreementResponse{
		ID:            a.ID.String(),
		State:         a.State().String(),
		SchemaVersion: snap.SchemaVersion,

		Creator:   a.Creator.Hex(),
		Provider:  a.Provider.Hex(),
		Recipient: a.Recipient.Hex(),

		Asset:           a.Asset.Hex(),
		NativeAsset:     a.IsNativeAsset(),
		Amount:          a.Amount.String(),
		RemainingAmount: a.RemainingAmount.String(),

		CreatedAt: a.CreatedAt,
		Deadline:  a.Deadline,

		Funded:              a.Funded,
		Signed:              a.Signed,
		AcceptedByProvider:  a.AcceptedByProvider,
		AcceptedByRecipient: a.AcceptedByRecipient,
		Completed:           a.Completed,
		Disputed:            a.Disputed,
		PrivateMode:         a.PrivateMode,
		Frozen:              a.Frozen,
		PendingCancellation: a.PendingCancellation,
		OrderCancelled:      a.OrderCancelled,
		VestingEnabled:      a.VestingEnabled,
		DeliverySubmitted:   a.DeliverySubmitted,

		FetchedAt:      snap.FetchedAt,
		DecodeWarnings: snap.DecodeWarnings,
	}

	for _, m := range snap.Milestones {
		resp.Milestones = append(resp.Milestones, MilestoneResponse{
			Index:           m.Index,
			PercentBP:       m.PercentBP,
			UnlockAt:        m.UnlockAt,
			HeldByRecipient: m.HeldByRecipient,
			Claimed:         m.Claimed,
			Amount:          m.Amount.String(),
		})
	}

	now := time.Now()
	for name, target := range w.Deadlines() {
		resp.Countdowns = append(resp.Countdowns, CountdownResponse{
			Name:      name,
			Target:    target,
			Remaining: escrow.FormatRemaining(escrow.TimeLeft(target, now)),
		})
	}
	slices.SortStableFunc(resp.Countdowns, func(a CountdownResponse, b CountdownResponse) bool {
		return a.Target.Before(b.Target)
	})

	return resp
}

func mapFlow(flow *orchestrator.Flow) FlowResponse {
	resp := FlowResponse{
		FlowID:      flow.FlowID(),
		AgreementID: flow.AgreementID().String(),
		Action:      string(flow.Request().Action),
		State:       flow.State().String(),
		Error:       flow.Err(),
		Journal:     []TransitionResponse{},
	}
	for _, t := range flow.Journal() {
		entry := TransitionResponse{
			State: t.State.String(),
			At:    t.At,
			Error: t.Err,
		}
		if t.TxHash != (common.Hash{}) {
			entry.TxHash = t.TxHash.Hex()
		}
		resp.Journal = append(resp.Journal, entry)
	}
	return resp
}
