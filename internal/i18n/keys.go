package i18n

// Catalogue keys used by the bot.
const (
	KeyWelcome         = "start.welcome"
	KeyHelp            = "help.text"
	KeyPromptAddress   = "prompt.address"
	KeyPromptTokenName = "prompt.token_name"
	KeyInvalidAddress  = "validation.invalid_address"
	KeyPlainText       = "validation.plain_text"
	KeyNotSupported    = "notice.not_supported"
	KeyTxNotSupported  = "notice.tx_not_supported"
	KeyCancelled       = "notice.cancelled"
	KeyNothingToCancel = "notice.nothing_to_cancel"
	KeyRateLimited     = "notice.rate_limited"
	KeyMenuExpired     = "notice.menu_expired"
	KeyInternalError   = "errors.internal"
)

// Keys lists every key the bot looks up.
func Keys() []string {
	return []string{
		KeyWelcome, KeyHelp, KeyPromptAddress, KeyPromptTokenName,
		KeyInvalidAddress, KeyPlainText, KeyNotSupported, KeyTxNotSupported,
		KeyCancelled, KeyNothingToCancel, KeyRateLimited, KeyMenuExpired,
		KeyInternalError,
	}
}
