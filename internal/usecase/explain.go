// File: internal/usecase/explain.go
package usecase

import (
	"errors"

	"yoyaktube/internal/domain"
	"yoyaktube/internal/infra/i18n"
)

// ExplainError maps a use case failure to a localized, user-facing hint.
// Technical detail stays in the logs; this is what the CLI prints.
// provider is the configured provider name, used for the unsupported-
// provider message.
func ExplainError(err error, provider string, tr *i18n.Translator) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, domain.ErrInvalidVideoURL):
		return tr.T("invalid_video_url")
	case errors.Is(err, domain.ErrNoTranscript):
		return tr.T("no_transcript")
	case errors.Is(err, domain.ErrUnsupportedProvider):
		return tr.T("llm_unsupported_provider", provider)
	case errors.Is(err, domain.ErrMissingCredentials):
		return tr.T("llm_auth")
	}

	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case domain.FailureAuth:
			return tr.T("llm_auth")
		case domain.FailureRateLimited:
			return tr.T("llm_rate")
		case domain.FailureTransient:
			return tr.T("llm_unavailable")
		case domain.FailureMalformed:
			return tr.T("llm_malformed")
		}
	}
	return tr.T("llm_generic")
}
