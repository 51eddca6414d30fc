package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"telegram-forecast-store/internal/domain"
)

type statsResponse struct {
	Users int        `json:"users"`
	Sales []salesRow `json:"sales"`
}

type salesRow struct {
	ProductID   string `json:"product_id"`
	PaidCount   int    `json:"paid_count"`
	TotalAmount int64  `json:"total_amount_minor"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := s.statsUC.CountUsers(ctx)
	if err != nil {
		http.Error(w, "Failed to count users", http.StatusInternalServerError)
		return
	}
	totals, err := s.statsUC.SalesTotals(ctx)
	if err != nil {
		http.Error(w, "Failed to get sales totals", http.StatusInternalServerError)
		return
	}

	resp := statsResponse{Users: users, Sales: make([]salesRow, 0, len(totals))}
	for _, t := range totals {
		resp.Sales = append(resp.Sales, salesRow{ProductID: t.ProductID, PaidCount: t.PaidCount, TotalAmount: t.TotalAmount})
	}
	writeJSON(w, http.StatusOK, resp)
}

type userResponse struct {
	UserID      int64   `json:"user_id"`
	State       string  `json:"state"`
	LastOrderID *string `json:"last_order_id,omitempty"`
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	user, err := s.lifecycleUC.Get(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to get user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{UserID: user.UserID, State: string(user.State), LastOrderID: user.LastOrderID})
}

// handleForceIdle is the operator escape hatch for a user stuck mid-flow.
func (s *Server) handleForceIdle(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	user, err := s.lifecycleUC.ForceIdle(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to reset user", http.StatusInternalServerError)
		return
	}
	s.log.Info().Int64("user_id", userID).Msg("operator forced user to idle")
	writeJSON(w, http.StatusOK, userResponse{UserID: user.UserID, State: string(user.State), LastOrderID: user.LastOrderID})
}

type promoResponse struct {
	Code          string `json:"code"`
	OwnerUserID   int64  `json:"owner_user_id"`
	PaidReferrals int    `json:"paid_referrals"`
	ReferralLink  string `json:"referral_link,omitempty"`
}

func (s *Server) handleGetPromo(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	ownerID, err := strconv.ParseInt(code, 10, 64)
	if err == nil {
		// Numeric lookup resolves by owner instead. Read-only: a GET must
		// not mint a code for a user who never asked for one.
		promo, err := s.promoUC.CodeByOwner(r.Context(), ownerID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "Promo code not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to get promo code", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, promoResponse{
			Code:          promo.Code,
			OwnerUserID:   promo.OwnerUserID,
			PaidReferrals: promo.PaidReferrals,
			ReferralLink:  s.promoUC.ReferralLink(promo.Code),
		})
		return
	}

	promo, err := s.promoUC.FindCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Promo code not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get promo code", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, promoResponse{
		Code:          promo.Code,
		OwnerUserID:   promo.OwnerUserID,
		PaidReferrals: promo.PaidReferrals,
		ReferralLink:  s.promoUC.ReferralLink(promo.Code),
	})
}

type createPaidOrderRequest struct {
	UserID       int64  `json:"user_id"`
	ProductID    string `json:"product_id"`
	AmountMinor  int64  `json:"amount_minor"`
	Currency     string `json:"currency"`
	ProviderTxID string `json:"provider_tx_id"`
}

type orderResponse struct {
	OrderID     string `json:"order_id"`
	UserID      int64  `json:"user_id"`
	ProductID   string `json:"product_id"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
}

// handleCreatePaidOrder backfills a settled order from the provider's
// dashboard when the success callback never reached the bot.
func (s *Server) handleCreatePaidOrder(w http.ResponseWriter, r *http.Request) {
	var req createPaidOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	order, err := s.orderUC.CreatePaid(r.Context(), req.UserID, req.ProductID, req.AmountMinor, req.Currency, req.ProviderTxID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			http.Error(w, "Invalid order fields", http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to create order", http.StatusInternalServerError)
		return
	}
	s.log.Info().Int64("user_id", req.UserID).Str("order_id", order.ID).Msg("operator backfilled paid order")
	writeJSON(w, http.StatusCreated, orderResponse{
		OrderID:     order.ID,
		UserID:      order.UserID,
		ProductID:   order.ProductID,
		AmountMinor: order.AmountMinor,
		Currency:    order.Currency,
		Status:      string(order.Status),
	})
}

func parseUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "userID")
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return 0, false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
