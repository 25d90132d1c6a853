package handlers

import (
	"net/http"
	"strconv"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"go.uber.org/zap"
)

// GetRulesHandler godoc
// @Summary List notification rules
// @Tags notify
// @Produce json
// @Security BearerAuth
// @Param user query int false "Only rules of this user"
// @Success 200 {array} models.NotifyRule
// @Failure 400 {string} string "Invalid user ID"
// @Failure 403 {string} string "Forbidden"
// @Router /notify/rules [get]
func GetRulesHandler(w http.ResponseWriter, r *http.Request) {
	var (
		rules []models.NotifyRule
		err   error
	)
	if s := r.URL.Query().Get("user"); s != "" {
		userID, convErr := strconv.ParseInt(s, 10, 64)
		if convErr != nil {
			http.Error(w, "invalid user ID", http.StatusBadRequest)
			return
		}
		rules, err = ruleRepo.ListByUser(r.Context(), userID)
	} else {
		rules, err = ruleRepo.ListRules(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if rules == nil {
		rules = []models.NotifyRule{}
	}
	respond(w, http.StatusOK, rules)
}

// PutRuleHandler godoc
// @Summary Create or replace a notification rule
// @Description A rule without product_id applies to every product; a product rule overrides it for that product.
// @Tags notify
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param rule body RuleRequest true "Rule"
// @Success 200 {object} models.NotifyRule
// @Failure 400 {array} ValidationError
// @Failure 403 {string} string "Forbidden"
// @Router /notify/rules [put]
func PutRuleHandler(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	if validationErrors := validateRule(req); len(validationErrors) > 0 {
		respond(w, http.StatusBadRequest, validationErrors)
		return
	}
	if req.ProductID != nil {
		if _, err := catalogService.GetProduct(r.Context(), *req.ProductID); err != nil {
			writeError(w, err)
			return
		}
	}

	rule, err := ruleRepo.UpsertRule(r.Context(), models.NotifyRule{
		UserID:    req.UserID,
		ProductID: req.ProductID,
		Condition: models.Condition(req.Condition),
		Mode:      models.NotifyMode(req.Mode),
		Floor:     req.Floor,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	logger.Info("🔔 notify rule saved", zap.Int64("rule_id", rule.ID), zap.Int64("user_id", rule.UserID),
		zap.String("condition", string(rule.Condition)), zap.String("mode", string(rule.Mode)))
	respond(w, http.StatusOK, rule)
}

// DeleteRuleHandler godoc
// @Summary Delete a notification rule
// @Tags notify
// @Security BearerAuth
// @Param id path int true "Rule ID"
// @Success 204 "Deleted successfully"
// @Failure 400 {string} string "Invalid ID"
// @Failure 404 {string} string "Not found"
// @Router /notify/rules/{id} [delete]
func DeleteRuleHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid rule ID", http.StatusBadRequest)
		return
	}
	if err := ruleRepo.DeleteRule(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
