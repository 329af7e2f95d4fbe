package patterns

import (
	"strings"

	"github.com/platformops/faultline/internal/models"
)

// authCodes are machine codes treated as authentication failures even when
// the message and category give no hint.
var authCodes = map[string]struct{}{
	"AUTH_FAILED":       {},
	"TOKEN_EXPIRED":     {},
	"UNAUTHORIZED":      {},
	"PERMISSION_DENIED": {},
}

// AuthPropagationMatcher detects authentication failures spreading across
// subsystems, typically after a token service degrades: every caller starts
// rejecting requests at once.
type AuthPropagationMatcher struct{}

// Name implements Matcher.
func (m *AuthPropagationMatcher) Name() models.Pattern {
	return models.PatternAuthPropagation
}

// Match implements Matcher.
func (m *AuthPropagationMatcher) Match(newErr models.SystemError, recent []models.SystemError) (models.ErrorCorrelation, bool) {
	if !isAuthError(newErr) {
		return models.ErrorCorrelation{}, false
	}

	related := make([]models.SystemError, 0)
	for _, candidate := range othersThan(newErr, recent) {
		if isAuthError(candidate) || hasAuthCode(candidate) {
			related = append(related, candidate)
		}
	}
	if len(related) == 0 {
		return models.ErrorCorrelation{}, false
	}

	contributing := append([]models.SystemError{newErr}, related...)
	corr := newCorrelation(
		models.PatternAuthPropagation,
		"authentication failure propagating across subsystems",
		contributing,
		0.9,
		[]string{models.ActionNameRefreshTokens, models.ActionNameCheckAuthService, models.ActionNameValidatePermissions},
	)
	return corr, true
}

func isAuthError(e models.SystemError) bool {
	return strings.EqualFold(e.Category, "authentication") || strings.Contains(strings.ToLower(e.Message), "auth")
}

func hasAuthCode(e models.SystemError) bool {
	_, ok := authCodes[e.Code]
	return ok
}
